package nasmdb

import (
	"fmt"
	"strings"
)

// literalTokenText is the inverse of literalTokenNames: the canonical
// encoding-syntax spelling for every fixed-name token kind.
var literalTokenText = func() map[TokenKind]string {
	m := make(map[TokenKind]string, len(literalTokenNames))
	for text, tok := range literalTokenNames {
		m[tok.Kind] = text
	}
	return m
}()

// PrintTokens renders tokens back into space-separated NASM-style
// encoding-syntax text. It is a best-effort inverse of parseEncodingWords,
// used by the round-trip property test: for any token stream ParseDatabase
// produced, re-parsing PrintTokens(stream) yields an equivalent stream.
//
// A Vex token renders without its decoded VexOpcodeEncoding (PrintTokens
// takes only a token stream); callers needing a faithful VEX round-trip
// should use PrintVexDescriptor directly and substitute it in place of the
// "vex" placeholder this emits.
func PrintTokens(tokens []Token) string {
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		words = append(words, printToken(tok))
	}
	return strings.Join(words, " ")
}

func printToken(tok Token) string {
	switch tok.Kind {
	case TokenByte:
		return fmt.Sprintf("%02x", tok.Byte)
	case TokenBytePlusRegister:
		return fmt.Sprintf("%02x+r", tok.Byte)
	case TokenBytePlusConditionCode:
		return fmt.Sprintf("%02x+c", tok.Byte)
	case TokenModRMFixedReg:
		return fmt.Sprintf("/%d", tok.Byte)
	case TokenVex:
		return "vex"
	default:
		if text, ok := literalTokenText[tok.Kind]; ok {
			return text
		}
		return ""
	}
}

// PrintVexDescriptor renders enc back into NASM's dotted descriptor syntax
// ("vex.nds.128.66.0f.wig"), the inverse of parseVexDescriptor. Always emits
// Intel-style field order (family, nd-prefix, vector-length, simd-prefix,
// map, rexw): parseVexDescriptor's AMD/Intel branch only triggers on a map
// name beginning with "m" (the xop8/9/10 spellings), which never appears in
// this position, so the rendered text reparses through the Intel-style
// branch regardless of which order the original text used.
func PrintVexDescriptor(enc VexOpcodeEncoding) string {
	var parts []string

	switch enc.Type() {
	case VexTypeXop:
		parts = append(parts, "xop")
	case VexTypeEVex:
		parts = append(parts, "evex")
	default:
		parts = append(parts, "vex")
	}

	switch enc.NonDestructiveReg() {
	case VexNonDestructiveSource:
		parts = append(parts, "nds")
	case VexNonDestructiveDest:
		parts = append(parts, "ndd")
	case VexNonDestructiveSecondSource:
		parts = append(parts, "dds")
	}

	switch enc.VectorLength() {
	case VexVectorLength128:
		parts = append(parts, "128")
	case VexVectorLength256:
		parts = append(parts, "256")
	case VexVectorLength512:
		parts = append(parts, "512")
	case VexVectorLengthIgnored:
		parts = append(parts, "lig")
	}

	switch enc.SimdPrefix() {
	case VexSimdPrefix66:
		parts = append(parts, "66")
	case VexSimdPrefixF2:
		parts = append(parts, "f2")
	case VexSimdPrefixF3:
		parts = append(parts, "f3")
	}

	switch enc.Map() {
	case VexMap0F:
		parts = append(parts, "0f")
	case VexMap0F38:
		parts = append(parts, "0f38")
	case VexMap0F3A:
		parts = append(parts, "0f3a")
	case VexMapXop8:
		parts = append(parts, "m8")
	case VexMapXop9:
		parts = append(parts, "m9")
	case VexMapXop10:
		parts = append(parts, "m10")
	}

	switch enc.RexW() {
	case VexRexW0:
		parts = append(parts, "w0")
	case VexRexW1:
		parts = append(parts, "w1")
	case VexRexWIgnored:
		parts = append(parts, "wig")
	}

	return strings.Join(parts, ".")
}
