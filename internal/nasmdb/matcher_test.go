package nasmdb

import "testing"

// TestMatchAddRm32Imm8DirectRegister exercises spec scenario 1: ADD rm32,imm8
// encoded as 83 /0 ib,s against a direct (register) ModR/M byte.
func TestMatchAddRm32Imm8DirectRegister(t *testing.T) {
	entry, err := parseLine("ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		MainByte:             0x83,
		ModRM:                ModRM{Present: true, Mod: 3, Reg: 0, Rm: 3},
		ImmediateSizeInBytes: 1,
	}

	matched, hasModRM, immSize, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if !matched {
		t.Fatal("expected a match")
	}
	if !hasModRM {
		t.Error("expected hasModRM = true")
	}
	if immSize != 1 {
		t.Errorf("immediateSize = %d, want 1", immSize)
	}
}

// TestMatchAddRm32Imm8WrongModRMDigit covers the fixed /0 reg-field
// discriminator rejecting a different opcode extension.
func TestMatchAddRm32Imm8WrongModRMDigit(t *testing.T) {
	entry, err := parseLine("ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		MainByte:             0x83,
		ModRM:                ModRM{Present: true, Mod: 3, Reg: 5, Rm: 3}, // /5 is SUB, not ADD
		ImmediateSizeInBytes: 1,
	}

	matched, _, _, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if matched {
		t.Error("expected no match: ModR/M reg field selects a different opcode extension")
	}
}

// TestMatchAddRm32Imm8WrongOperandSize covers spec scenario 5: the same
// encoding rejected when the operand-size token's requirement isn't met
// (here, a 16-bit operand size via the 0x66 override).
func TestMatchAddRm32Imm8WrongOperandSize(t *testing.T) {
	entry, err := parseLine("ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		LegacyPrefixes:       NewLegacyPrefixList(PrefixOperandSizeOverride),
		MainByte:             0x83,
		ModRM:                ModRM{Present: true, Mod: 3, Reg: 0, Rm: 3},
		ImmediateSizeInBytes: 1,
	}

	matched, _, _, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if matched {
		t.Error("expected no match: 0x66 override makes the operand size 16, not 32")
	}
}

// TestMatchMovReg32Imm32 exercises spec scenario 2: the +r register-coded
// opcode byte and a 4-byte immediate.
func TestMatchMovReg32Imm32(t *testing.T) {
	entry, err := parseLine("MOV reg32,imm32 [ri: o32 b8+r id] 386")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		MainByte:             0xBB, // b8 | 3 (ebx)
		ImmediateSizeInBytes: 4,
	}

	matched, hasModRM, immSize, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if !matched {
		t.Fatal("expected a match")
	}
	if hasModRM {
		t.Error("expected hasModRM = false: +r opcodes carry no ModR/M byte")
	}
	if immSize != 4 {
		t.Errorf("immediateSize = %d, want 4", immSize)
	}
}

// TestMatchMovRegPlusRegisterRejectsWrongByte ensures the +r branch masks
// off only the low three bits.
func TestMatchMovRegPlusRegisterRejectsWrongByte(t *testing.T) {
	entry, err := parseLine("MOV reg32,imm32 [ri: o32 b8+r id] 386")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		MainByte:             0xB0, // b0+r is the reg8,imm8 form, not reg32
		ImmediateSizeInBytes: 4,
	}

	matched, _, _, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if matched {
		t.Error("expected no match: 0xB0 does not share the 0xB8 base with the top five bits masked")
	}
}

// TestMatchVaddpsVex exercises spec scenario 3: a VEX-encoded three-operand
// form with no legacy-prefix escape involved.
func TestMatchVaddpsVex(t *testing.T) {
	entry, err := parseLine("VADDPS xmmreg,xmmreg,xmmrm [rvm: vex.nds.128.0f.wig 58 /r] AVX")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		Xex:                  Xex{Family: XexVex3},
		MainByte:             0x58,
		ModRM:                ModRM{Present: true, Mod: 3, Reg: 0, Rm: 1},
	}

	matched, hasModRM, immSize, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if !matched {
		t.Fatal("expected a match")
	}
	if !hasModRM {
		t.Error("expected hasModRM = true")
	}
	if immSize != 0 {
		t.Errorf("immediateSize = %d, want 0", immSize)
	}
}

// TestMatchVaddpsVexRejectsNonVexFamily ensures the Vex token's family check
// actually discriminates against a plain-escape encoded instruction sharing
// the same main byte.
func TestMatchVaddpsVexRejectsNonVexFamily(t *testing.T) {
	entry, err := parseLine("VADDPS xmmreg,xmmreg,xmmrm [rvm: vex.nds.128.0f.wig 58 /r] AVX")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		Xex:                  Xex{Family: XexEscapes},
		MainByte:             0x58,
		ModRM:                ModRM{Present: true, Mod: 3, Reg: 0, Rm: 1},
	}

	matched, _, _, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if matched {
		t.Error("expected no match: instr carries no VEX prefix")
	}
}

// TestMatchJccShort exercises spec scenario 4: the +cc condition-code byte
// and a signed rel8 immediate.
func TestMatchJccShort(t *testing.T) {
	entry, err := parseLine("Jcc imm8 [i: 70+c rb] 8086")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		MainByte:             0x74, // JE/JZ: 70 | cc(4)
		ImmediateSizeInBytes: 1,
	}

	matched, hasModRM, immSize, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if !matched {
		t.Fatal("expected a match")
	}
	if hasModRM {
		t.Error("expected hasModRM = false")
	}
	if immSize != 1 {
		t.Errorf("immediateSize = %d, want 1", immSize)
	}
}

// TestMatchMovsdEscape exercises spec scenario 6: an F2-prefixed 0F-escaped
// instruction with a ModR/M byte and no immediate.
func TestMatchMovsdEscape(t *testing.T) {
	entry, err := parseLine("MOVSD xmmreg,xmmrm [rm: f2i 0f 10 /r] SSE2")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		LegacyPrefixes:       NewLegacyPrefixList(PrefixRepeatNotEqual),
		OpcodeMap:            MapEscape0F,
		MainByte:             0x10,
		ModRM:                ModRM{Present: true, Mod: 3, Reg: 0, Rm: 1},
	}

	matched, hasModRM, immSize, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if !matched {
		t.Fatal("expected a match")
	}
	if !hasModRM {
		t.Error("expected hasModRM = true")
	}
	if immSize != 0 {
		t.Errorf("immediateSize = %d, want 0", immSize)
	}
}

// TestMatchMovsdEscapeRejectsMissingF2 ensures the EndsWith check on the
// legacy-prefix list actually requires F2 to be present.
func TestMatchMovsdEscapeRejectsMissingF2(t *testing.T) {
	entry, err := parseLine("MOVSD xmmreg,xmmrm [rm: f2i 0f 10 /r] SSE2")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		OpcodeMap:            MapEscape0F,
		MainByte:             0x10,
		ModRM:                ModRM{Present: true, Mod: 3, Reg: 0, Rm: 1},
	}

	matched, _, _, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if matched {
		t.Error("expected no match: MOVSD requires the F2 prefix")
	}
}

// TestMatchMovsdEscapeMemoryOperand confirms a memory-form ModR/M byte also
// matches (the rm operand type accepts either addressing mode).
func TestMatchMovsdEscapeMemoryOperand(t *testing.T) {
	entry, err := parseLine("MOVSD xmmreg,xmmrm [rm: f2i 0f 10 /r] SSE2")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		LegacyPrefixes:       NewLegacyPrefixList(PrefixRepeatNotEqual),
		OpcodeMap:            MapEscape0F,
		MainByte:             0x10,
		ModRM:                ModRM{Present: true, Mod: 0, Reg: 0, Rm: 5}, // indirect, disp32
	}

	matched, _, _, err := Match(entry, instr, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if !matched {
		t.Error("expected a match: xmmrm accepts memory addressing")
	}
}

// TestMatchPseudoInstructionNeverMatches covers the assemble-only / pseudo
// short-circuit at the top of Match.
func TestMatchPseudoInstructionNeverMatches(t *testing.T) {
	entry, err := parseLine("DB ignore ignore ND")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	matched, hasModRM, immSize, err := Match(entry, Instruction{}, false)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if matched || hasModRM || immSize != 0 {
		t.Errorf("expected a clean non-match for a pseudo-instruction, got matched=%v hasModRM=%v immSize=%d", matched, hasModRM, immSize)
	}
}

// TestMatchUpToOpcodeSkipsModRMAndImmediateChecks verifies the upToOpcode
// mode matches on the opcode byte alone, ignoring ModR/M and immediate size
// discrepancies that would otherwise reject the instruction.
func TestMatchUpToOpcodeSkipsModRMAndImmediateChecks(t *testing.T) {
	entry, err := parseLine("ADD rm32,imm8 [mi: o32 83 /0 ib,s] 8086,LOCK")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	instr := Instruction{
		DefaultAddressSize:   Size32,
		EffectiveAddressSize: Size32,
		MainByte:             0x83,
		// ModRM deliberately absent and ImmediateSizeInBytes deliberately
		// wrong; upToOpcode must not consult either.
	}

	matched, _, _, err := Match(entry, instr, true)
	if err != nil {
		t.Fatalf("unexpected matcher error: %v", err)
	}
	if !matched {
		t.Error("expected a match: upToOpcode stops consulting fields after MainByte")
	}
}

func TestIntegerOperandSize(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		want int
	}{
		{
			name: "64-bit default with REX.W",
			in:   Instruction{DefaultAddressSize: Size64, Xex: Xex{OperandSize64: true}},
			want: Size64,
		},
		{
			name: "64-bit default without REX.W defaults to 32",
			in:   Instruction{DefaultAddressSize: Size64},
			want: Size32,
		},
		{
			name: "32-bit default",
			in:   Instruction{DefaultAddressSize: Size32},
			want: Size32,
		},
		{
			name: "32-bit default with 0x66 override becomes 16",
			in:   Instruction{DefaultAddressSize: Size32, LegacyPrefixes: NewLegacyPrefixList(PrefixOperandSizeOverride)},
			want: Size16,
		},
		{
			name: "16-bit default",
			in:   Instruction{DefaultAddressSize: Size16},
			want: Size16,
		},
		{
			name: "16-bit default with 0x66 override becomes 32",
			in:   Instruction{DefaultAddressSize: Size16, LegacyPrefixes: NewLegacyPrefixList(PrefixOperandSizeOverride)},
			want: Size32,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := integerOperandSize(tt.in); got != tt.want {
				t.Errorf("integerOperandSize() = %d, want %d", got, tt.want)
			}
		})
	}
}
