// Package nasmdb parses NASM insns.dat-format instruction definitions and
// matches a partially decoded x86/x86-64 instruction against them.
//
// The database built by ParseDatabase is immutable once constructed; Match
// and TryLookup are pure functions over that database and caller-supplied
// values, safe to call from many goroutines without synchronisation.
package nasmdb

// LegacyPrefix identifies a single-byte x86 legacy prefix.
type LegacyPrefix byte

const (
	PrefixLock LegacyPrefix = iota
	PrefixRepeatEqual
	PrefixRepeatNotEqual
	PrefixSegmentCS
	PrefixSegmentSS
	PrefixSegmentDS
	PrefixSegmentES
	PrefixSegmentFS
	PrefixSegmentGS
	PrefixOperandSizeOverride
	PrefixAddressSizeOverride
)

// PrefixGroup partitions legacy prefixes into the four disjoint groups a
// legal prefix list may draw at most one member from.
type PrefixGroup int

const (
	GroupLockRep PrefixGroup = iota
	GroupSegment
	GroupOperandSizeOverride
	GroupAddressSizeOverride
)

func (p LegacyPrefix) group() PrefixGroup {
	switch p {
	case PrefixLock, PrefixRepeatEqual, PrefixRepeatNotEqual:
		return GroupLockRep
	case PrefixSegmentCS, PrefixSegmentSS, PrefixSegmentDS, PrefixSegmentES, PrefixSegmentFS, PrefixSegmentGS:
		return GroupSegment
	case PrefixOperandSizeOverride:
		return GroupOperandSizeOverride
	default:
		return GroupAddressSizeOverride
	}
}

// LegacyPrefixList is an ordered sequence of at most four distinct legacy
// prefixes, at most one per PrefixGroup.
type LegacyPrefixList struct {
	prefixes []LegacyPrefix
}

// NewLegacyPrefixList builds a LegacyPrefixList from prefixes in the order
// they were observed in the instruction stream.
func NewLegacyPrefixList(prefixes ...LegacyPrefix) LegacyPrefixList {
	list := make([]LegacyPrefix, len(prefixes))
	copy(list, prefixes)
	return LegacyPrefixList{prefixes: list}
}

// Contains reports whether p appears anywhere in the list.
func (l LegacyPrefixList) Contains(p LegacyPrefix) bool {
	for _, have := range l.prefixes {
		if have == p {
			return true
		}
	}
	return false
}

// ContainsFromGroup reports whether any prefix belonging to g appears in the list.
func (l LegacyPrefixList) ContainsFromGroup(g PrefixGroup) bool {
	for _, have := range l.prefixes {
		if have.group() == g {
			return true
		}
	}
	return false
}

// EndsWith reports whether the last prefix in the list equals p.
func (l LegacyPrefixList) EndsWith(p LegacyPrefix) bool {
	if len(l.prefixes) == 0 {
		return false
	}
	return l.prefixes[len(l.prefixes)-1] == p
}

// HasOperandSizeOverride reports whether the 0x66 operand-size override
// prefix is present.
func (l LegacyPrefixList) HasOperandSizeOverride() bool {
	return l.Contains(PrefixOperandSizeOverride)
}

// XexFamily identifies which extended-prefix family applied to an instruction.
type XexFamily int

const (
	XexEscapes XexFamily = iota // No extended prefix; plain escape bytes may still follow.
	XexRex
	XexVex2
	XexVex3
	XexXop
	XexEVex
)

// AllowsEscapes reports whether this Xex family permits the 0x0F escape
// byte (and its 0F38/0F3A sub-escapes) to select an opcode map.
func (f XexFamily) AllowsEscapes() bool {
	return f == XexEscapes || f == XexRex
}

// Xex carries the decoded fields of whichever extended-prefix family applied
// to an instruction. Only OperandSize64 and BaseRegExtension are consumed by
// the matcher; the remaining fields exist for a complete decoder but are
// otherwise inert here.
type Xex struct {
	Family XexFamily

	OperandSize64    bool // REX.W / VEX.W
	BaseRegExtension bool // REX.B

	VectorLength int // 0=128, 1=256, 2=512; meaningful only for Vex2/Vex3/Xop/EVex.
	Vvvv         byte
}

// AllowsEscapes reports whether this instruction's extended-prefix family
// permits a 0x0F escape byte to select an opcode map.
func (x Xex) AllowsEscapes() bool {
	return x.Family.AllowsEscapes()
}

// OpcodeMap identifies the table used to interpret the main opcode byte.
type OpcodeMap int

const (
	MapDefault OpcodeMap = iota
	MapEscape0F
	MapEscape0F38
	MapEscape0F3A
	MapXop8
	MapXop9
	MapXop10
)

// ModRM is the optional ModR/M byte following certain opcodes.
type ModRM struct {
	Present bool
	Mod     byte
	Reg     byte
	Rm      byte
}

// IsModDirect reports whether Mod selects direct (register) addressing.
func (m ModRM) IsModDirect() bool {
	return m.Mod == 3
}

// SIB is the optional scale-index-base byte. The matcher only needs to know
// whether one is present; scale/index/base decoding is out of scope.
type SIB struct {
	Present bool
}

// Address and operand sizes, in bits.
const (
	Size16 = 16
	Size32 = 32
	Size64 = 64
)

// SimdPrefix identifies which legacy prefix, if any, is acting as part of a
// SIMD opcode's encoding rather than as a true legacy prefix.
type SimdPrefix int

const (
	SimdNone SimdPrefix = iota
	Simd66
	SimdF2
	SimdF3
)

// Instruction is the partially (or fully) decoded instruction presented to
// the matcher. When a lookup is performed with upToOpcode set, only the
// fields up to and including MainByte are authoritative.
type Instruction struct {
	DefaultAddressSize    int
	EffectiveAddressSize  int
	LegacyPrefixes        LegacyPrefixList
	Xex                   Xex
	OpcodeMap             OpcodeMap
	MainByte              byte
	ModRM                 ModRM
	SIB                   SIB
	SimdPrefix            SimdPrefix
	ImmediateSizeInBytes  int
}
