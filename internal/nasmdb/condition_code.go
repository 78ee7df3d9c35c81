package nasmdb

// ConditionCode is the 4-bit condition-code field used by Jcc, SETcc, CMOVcc,
// and similar instruction families. There is one canonical variant per
// underlying value; aliases (e.g. CCCarry == CCBelow) are named constants
// sharing that value rather than separate enum members.
type ConditionCode uint8

const (
	CCOverflow ConditionCode = iota // 0x0
	CCNoOverflow
	CCBelow // 0x2; alias: CCCarry
	CCAboveOrEqual // 0x3; alias: CCNoCarry
	CCEqual // 0x4; alias: CCZero
	CCNotEqual // 0x5; alias: CCNotZero
	CCBelowOrEqual // 0x6
	CCAbove // 0x7
	CCSign // 0x8
	CCNoSign // 0x9
	CCParityEven // 0xA; alias: CCParity
	CCParityOdd // 0xB; alias: CCNoParity
	CCLess // 0xC
	CCGreaterOrEqual // 0xD
	CCLessOrEqual // 0xE
	CCGreater // 0xF
)

// Aliases for condition codes that share an underlying value.
const (
	CCCarry    = CCBelow
	CCNoCarry  = CCAboveOrEqual
	CCZero     = CCEqual
	CCNotZero  = CCNotEqual
	CCParity   = CCParityEven
	CCNoParity = CCParityOdd
)

// Negate returns the condition code testing the opposite condition.
func (c ConditionCode) Negate() ConditionCode {
	return c ^ 1
}

// EFlag is a single x86 status flag, restricted to the handful condition
// codes test. This is not a general flags-register model.
type EFlag int

const (
	FlagCF EFlag = iota
	FlagZF
	FlagSF
	FlagOF
	FlagPF
)

var conditionCodeTestedEFlags = [16][]EFlag{
	CCOverflow:        {FlagOF},
	CCNoOverflow:      {FlagOF},
	CCBelow:           {FlagCF},
	CCAboveOrEqual:    {FlagCF},
	CCEqual:           {FlagZF},
	CCNotEqual:        {FlagZF},
	CCBelowOrEqual:    {FlagCF, FlagZF},
	CCAbove:           {FlagCF, FlagZF},
	CCSign:            {FlagSF},
	CCNoSign:          {FlagSF},
	CCParityEven:      {FlagPF},
	CCParityOdd:       {FlagPF},
	CCLess:            {FlagSF, FlagOF},
	CCGreaterOrEqual:  {FlagSF, FlagOF},
	CCLessOrEqual:     {FlagZF, FlagSF, FlagOF},
	CCGreater:         {FlagZF, FlagSF, FlagOF},
}

// TestedEFlags returns the status flags this condition code examines.
func (c ConditionCode) TestedEFlags() []EFlag {
	return conditionCodeTestedEFlags[c&0xF]
}

// isUnsignedComparisonCode has true for each condition code in
// {Below, AboveOrEqual, BelowOrEqual, Above} (0x2, 0x3, 0x6, 0x7).
var isUnsignedComparisonCode = [16]bool{
	CCBelow: true, CCAboveOrEqual: true, CCBelowOrEqual: true, CCAbove: true,
}

// isSignedComparisonCode has true for each condition code in
// {Less, GreaterOrEqual, LessOrEqual, Greater} (0xC, 0xD, 0xE, 0xF).
var isSignedComparisonCode = [16]bool{
	CCLess: true, CCGreaterOrEqual: true, CCLessOrEqual: true, CCGreater: true,
}

// IsUnsignedComparison reports whether this condition code is one of the
// four unsigned-comparison codes {2,3,6,7}.
func (c ConditionCode) IsUnsignedComparison() bool {
	return isUnsignedComparisonCode[c&0xF]
}

// IsSignedComparison reports whether this condition code is one of the four
// signed-comparison codes {C,D,E,F}.
func (c ConditionCode) IsSignedComparison() bool {
	return isSignedComparisonCode[c&0xF]
}

var conditionCodeMnemonicSuffixes = [16]string{
	CCOverflow: "o", CCNoOverflow: "no",
	CCBelow: "b", CCAboveOrEqual: "ae",
	CCEqual: "e", CCNotEqual: "ne",
	CCBelowOrEqual: "be", CCAbove: "a",
	CCSign: "s", CCNoSign: "ns",
	CCParityEven: "p", CCParityOdd: "np",
	CCLess: "l", CCGreaterOrEqual: "ge",
	CCLessOrEqual: "le", CCGreater: "g",
}

// MnemonicSuffix returns the lower-case mnemonic suffix used by instruction
// families parameterised by condition code (e.g. "e" for Jcc -> JE).
func (c ConditionCode) MnemonicSuffix() string {
	return conditionCodeMnemonicSuffixes[c&0xF]
}
