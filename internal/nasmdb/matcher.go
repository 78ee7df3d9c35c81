package nasmdb

import "fmt"

// matchState tracks how far through an entry's encoding-token stream the
// matcher has progressed. States only ever advance.
type matchState int

const (
	statePrefixes matchState = iota
	statePostSimdPrefix
	stateEscape0F
	statePostEscape // aka "PreOpcode"
	statePostOpcode
	statePostModRM
	stateImmediates
)

// Match runs entry's encoding-token stream as a declarative matcher against
// instr, returning whether it matches along with the derived has_modrm and
// immediate_size_in_bytes. When upToOpcode is true, only fields of instr up
// to and including MainByte are authoritative; the ModR/M, SIB and
// immediate-size acceptance checks are skipped. The BaseReg operand
// post-pass still reads instr.ModRM in both modes, treating an absent ModRM
// as register addressing.
//
// A non-nil error indicates an ErrUnimplemented branch (spec.md §9), not a
// clean non-match; callers should treat it distinctly from matched==false.
func Match(entry Entry, instr Instruction, upToOpcode bool) (matched bool, hasModRM bool, immediateSize int, err error) {
	if entry.IsAssembleOnly() || entry.IsPseudo() {
		return false, false, 0, nil
	}

	expectedXexType := XexEscapes
	expectedOpcodeMap := MapDefault
	state := statePrefixes

	for _, tok := range entry.Tokens {
		switch tok.Kind {
		case TokenAddressSizeFixed16:
			if instr.EffectiveAddressSize != Size16 {
				return false, false, 0, nil
			}
		case TokenAddressSizeFixed32:
			if instr.EffectiveAddressSize != Size32 {
				return false, false, 0, nil
			}
		case TokenAddressSizeFixed64:
			if instr.EffectiveAddressSize != Size64 {
				return false, false, 0, nil
			}
		case TokenAddressSizeNoOverride:
			if instr.EffectiveAddressSize != instr.DefaultAddressSize {
				return false, false, 0, nil
			}

		case TokenOperandSize16:
			if integerOperandSize(instr) != Size16 {
				return false, false, 0, nil
			}
		case TokenOperandSize32:
			if integerOperandSize(instr) != Size32 {
				return false, false, 0, nil
			}
		case TokenOperandSize64:
			if integerOperandSize(instr) != Size64 {
				return false, false, 0, nil
			}
		case TokenOperandSizeNoOverride:
			if instr.LegacyPrefixes.HasOperandSizeOverride() {
				return false, false, 0, nil
			}
		case TokenOperandSize64WithoutW:
			if instr.DefaultAddressSize != Size64 || instr.LegacyPrefixes.HasOperandSizeOverride() {
				return false, false, 0, nil
			}

		case TokenLegacyPrefixF2:
			if !instr.LegacyPrefixes.Contains(PrefixRepeatNotEqual) {
				return false, false, 0, nil
			}
		case TokenLegacyPrefixF3:
			if !instr.LegacyPrefixes.Contains(PrefixRepeatEqual) {
				return false, false, 0, nil
			}
		case TokenLegacyPrefixNoF3:
			if instr.LegacyPrefixes.Contains(PrefixRepeatEqual) {
				return false, false, 0, nil
			}
		case TokenLegacyPrefixNoSimd:
			if instr.LegacyPrefixes.Contains(PrefixRepeatEqual) || instr.LegacyPrefixes.Contains(PrefixRepeatNotEqual) ||
				instr.LegacyPrefixes.ContainsFromGroup(GroupOperandSizeOverride) {
				return false, false, 0, nil
			}
		case TokenLegacyPrefixMustRep:
			if instr.SimdPrefix != SimdF3 {
				return false, false, 0, nil
			}
		case TokenLegacyPrefixNoRep:
			if instr.LegacyPrefixes.Contains(PrefixRepeatEqual) || instr.LegacyPrefixes.Contains(PrefixRepeatNotEqual) {
				return false, false, 0, nil
			}
		case TokenLegacyPrefixDisassembleRepAsRepE, TokenLegacyPrefixHleAlways,
			TokenLegacyPrefixHleWithLock, TokenLegacyPrefixXReleaseAlways:
			// Informational only; no effect on matching.

		case TokenVex:
			expectedXexType = entry.VexEncoding.XexType()
			if instr.Xex.Family != expectedXexType {
				return false, false, 0, nil
			}

		case TokenRexNoB:
			if instr.Xex.BaseRegExtension {
				return false, false, 0, nil
			}
		case TokenRexNoW:
			if instr.Xex.OperandSize64 {
				return false, false, 0, nil
			}
		case TokenRexLockAsRexR:
			// Informational only.

		case TokenByte:
			newState, newOpcodeMap, newHasModRM, unimplemented := matchByteToken(tok, instr, state, expectedOpcodeMap, upToOpcode, hasModRM)
			if unimplemented {
				return false, false, 0, fmt.Errorf("%w: constant-immediate Byte token after ModR/M in %s", ErrUnimplemented, entry.Mnemonic)
			}
			if newState < 0 {
				return false, false, 0, nil
			}
			state, expectedOpcodeMap, hasModRM = newState, newOpcodeMap, newHasModRM

		case TokenBytePlusRegister:
			if state > statePostOpcode {
				return false, false, 0, fmt.Errorf("%w: +r token past opcode state in %s", ErrUnimplemented, entry.Mnemonic)
			}
			if instr.MainByte&0xF8 != tok.Byte {
				return false, false, 0, nil
			}
			state = statePostOpcode

		case TokenBytePlusConditionCode:
			if state > statePostOpcode {
				return false, false, 0, fmt.Errorf("%w: +cc token past opcode state in %s", ErrUnimplemented, entry.Mnemonic)
			}
			if instr.MainByte&0xF0 != tok.Byte {
				return false, false, 0, nil
			}
			state = statePostOpcode

		case TokenModRM:
			if !upToOpcode {
				if !instr.ModRM.Present {
					return false, false, 0, nil
				}
			}
			hasModRM = true
			state = statePostModRM

		case TokenModRMFixedReg:
			if !upToOpcode {
				if !instr.ModRM.Present || instr.ModRM.Reg != tok.Byte {
					return false, false, 0, nil
				}
			}
			hasModRM = true
			state = statePostModRM

		case TokenVectorSibX32, TokenVectorSibX64, TokenVectorSibY32, TokenVectorSibY64,
			TokenVectorSibZ32, TokenVectorSibZ64:
			if !upToOpcode && !instr.SIB.Present {
				return false, false, 0, nil
			}

		case TokenImmediateByte, TokenImmediateByteSigned, TokenImmediateByteUnsigned,
			TokenImmediateIs4, TokenImmediateRelativeOffset8, TokenImmediateWord,
			TokenImmediateDword, TokenImmediateDwordSigned, TokenImmediateQword,
			TokenImmediateRelativeOffset:
			immediateSize += tok.immediateWidth(instr.DefaultAddressSize)
			if state < stateImmediates {
				state = stateImmediates
			}

		case TokenMiscAssembleWaitPrefix, TokenMiscNoHigh8Register:
			// Informational only.
		}
	}

	if state < statePostOpcode {
		return false, false, 0, nil
	}

	if expectedXexType == XexEscapes {
		if !instr.Xex.AllowsEscapes() {
			return false, false, 0, nil
		}
	} else if instr.Xex.Family != expectedXexType {
		return false, false, 0, nil
	}

	if instr.OpcodeMap != expectedOpcodeMap {
		return false, false, 0, nil
	}

	if !upToOpcode {
		if instr.ModRM.Present != hasModRM {
			return false, false, 0, nil
		}
		if instr.ImmediateSizeInBytes != immediateSize {
			return false, false, 0, nil
		}
	}

	if !matchOperandPostPass(entry, instr, hasModRM) {
		return false, false, 0, nil
	}

	return true, hasModRM, immediateSize, nil
}

// matchByteToken implements the Byte token's six-branch state machine from
// spec.md §4.2. It returns the new state (or -1 to signal a clean
// non-match), the new expected opcode map, the new has_modrm, and whether
// the unimplemented sixth branch (a constant immediate byte after ModR/M)
// was hit.
func matchByteToken(tok Token, instr Instruction, state matchState, expectedOpcodeMap OpcodeMap, upToOpcode bool, hasModRM bool) (matchState, OpcodeMap, bool, bool) {
	switch {
	case state < statePostSimdPrefix && (tok.Byte == 0x66 || tok.Byte == 0xF2 || tok.Byte == 0xF3):
		var want LegacyPrefix
		switch tok.Byte {
		case 0x66:
			want = PrefixOperandSizeOverride
		case 0xF2:
			want = PrefixRepeatNotEqual
		default:
			want = PrefixRepeatEqual
		}
		if !instr.LegacyPrefixes.EndsWith(want) {
			return -1, expectedOpcodeMap, hasModRM, false
		}
		return statePostSimdPrefix, expectedOpcodeMap, hasModRM, false

	case state < stateEscape0F && tok.Byte == 0x0F:
		if !instr.Xex.AllowsEscapes() {
			return -1, expectedOpcodeMap, hasModRM, false
		}
		return stateEscape0F, MapEscape0F, hasModRM, false

	case state == stateEscape0F && (tok.Byte == 0x38 || tok.Byte == 0x3A):
		if tok.Byte == 0x38 {
			return statePostEscape, MapEscape0F38, hasModRM, false
		}
		return statePostEscape, MapEscape0F3A, hasModRM, false

	case state < statePostOpcode:
		if instr.MainByte != tok.Byte {
			return -1, expectedOpcodeMap, hasModRM, false
		}
		return statePostOpcode, expectedOpcodeMap, hasModRM, false

	case state == statePostOpcode:
		if !upToOpcode {
			if !instr.ModRM.Present || instr.ModRM.Mod<<6|instr.ModRM.Reg<<3|instr.ModRM.Rm != tok.Byte {
				return -1, expectedOpcodeMap, hasModRM, false
			}
		}
		return statePostModRM, expectedOpcodeMap, true, false

	default:
		return state, expectedOpcodeMap, hasModRM, true
	}
}

// matchOperandPostPass enforces the register/memory consistency check for
// BaseReg-field operands described in spec.md §4.2.
func matchOperandPostPass(entry Entry, instr Instruction, hasModRM bool) bool {
	for _, op := range entry.Operands {
		if op.Field != FieldBaseReg {
			continue
		}
		isReg := !instr.ModRM.Present || instr.ModRM.IsModDirect()
		if op.Type.IsRegisterType() && !isReg {
			return false
		}
		if op.Type.IsMemoryType() && isReg {
			return false
		}
	}
	return true
}

// integerOperandSize implements spec.md §4.2's helper of the same name.
func integerOperandSize(instr Instruction) int {
	if instr.DefaultAddressSize == Size64 && instr.Xex.OperandSize64 {
		return Size64
	}
	base := Size32
	if instr.DefaultAddressSize == Size16 {
		base = Size16
	}
	if instr.LegacyPrefixes.HasOperandSizeOverride() {
		if base == Size16 {
			return Size32
		}
		return Size16
	}
	return base
}
