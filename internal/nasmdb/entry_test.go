package nasmdb

import "testing"

func TestVexOpcodeEncodingRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		t    VexOpcodeEncodingType
		m    VexMap
		w    VexRexW
		l    VexVectorLength
		p    VexSimdPrefix
		nd   VexNonDestructiveReg
	}{
		{"vex.nds.128.0f.wig", VexTypeVex, VexMap0F, VexRexWIgnored, VexVectorLength128, VexSimdPrefixNone, VexNonDestructiveSource},
		{"vex.nds.128.66.0f.wig", VexTypeVex, VexMap0F, VexRexWIgnored, VexVectorLength128, VexSimdPrefix66, VexNonDestructiveSource},
		{"evex.nds.512.66.0f.w1", VexTypeEVex, VexMap0F, VexRexW1, VexVectorLength512, VexSimdPrefix66, VexNonDestructiveSource},
		{"xop.m8.w0", VexTypeXop, VexMapXop8, VexRexW0, VexVectorLengthIgnored, VexSimdPrefixNone, VexNonDestructiveInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewVexOpcodeEncoding(tt.t, tt.m, tt.w, tt.l, tt.p, tt.nd)
			if enc.Type() != tt.t {
				t.Errorf("Type() = %v, want %v", enc.Type(), tt.t)
			}
			if enc.Map() != tt.m {
				t.Errorf("Map() = %v, want %v", enc.Map(), tt.m)
			}
			if enc.RexW() != tt.w {
				t.Errorf("RexW() = %v, want %v", enc.RexW(), tt.w)
			}
			if enc.VectorLength() != tt.l {
				t.Errorf("VectorLength() = %v, want %v", enc.VectorLength(), tt.l)
			}
			if enc.SimdPrefix() != tt.p {
				t.Errorf("SimdPrefix() = %v, want %v", enc.SimdPrefix(), tt.p)
			}
			if enc.NonDestructiveReg() != tt.nd {
				t.Errorf("NonDestructiveReg() = %v, want %v", enc.NonDestructiveReg(), tt.nd)
			}
		})
	}
}

func TestVexOpcodeEncodingXexType(t *testing.T) {
	tests := []struct {
		name string
		t    VexOpcodeEncodingType
		want XexFamily
	}{
		{"vex", VexTypeVex, XexVex3},
		{"xop", VexTypeXop, XexXop},
		{"evex", VexTypeEVex, XexEVex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewVexOpcodeEncoding(tt.t, VexMap0F, VexRexWIgnored, VexVectorLengthIgnored, VexSimdPrefixNone, VexNonDestructiveInvalid)
			if got := enc.XexType(); got != tt.want {
				t.Errorf("XexType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntryIsAssembleOnly(t *testing.T) {
	nd := Entry{Mnemonic: "VBROADCASTSS", Flags: InstructionFlagSet{FlagND: true}}
	if !nd.IsAssembleOnly() {
		t.Error("expected entry with ND flag to be assemble-only")
	}

	plain := Entry{Mnemonic: "ADD", Flags: InstructionFlagSet{FlagLock: true}}
	if plain.IsAssembleOnly() {
		t.Error("did not expect entry without ND flag to be assemble-only")
	}
}

func TestEntryIsPseudo(t *testing.T) {
	tests := []struct {
		mnemonic string
		want     bool
	}{
		{"DB", true}, {"RESQ", true}, {"ADD", false}, {"MOVSD", false},
	}
	for _, tt := range tests {
		t.Run(tt.mnemonic, func(t *testing.T) {
			e := Entry{Mnemonic: tt.mnemonic}
			if got := e.IsPseudo(); got != tt.want {
				t.Errorf("IsPseudo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperandTypeClassification(t *testing.T) {
	tests := []struct {
		name   string
		typ    OperandType
		isReg  bool
		isMem  bool
	}{
		{"reg32", OperandTypeReg32, true, false},
		{"xmmreg", OperandTypeXmmReg, true, false},
		{"mem32", OperandTypeMem32, false, true},
		{"rm32", OperandTypeRm32, false, false},
		{"imm8", OperandTypeImm8, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsRegisterType(); got != tt.isReg {
				t.Errorf("IsRegisterType() = %v, want %v", got, tt.isReg)
			}
			if got := tt.typ.IsMemoryType(); got != tt.isMem {
				t.Errorf("IsMemoryType() = %v, want %v", got, tt.isMem)
			}
		})
	}
}
