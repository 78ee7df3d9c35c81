package nasmdb

import (
	"fmt"
	"strings"
)

// vexFamilyNames maps the dotted descriptor's leading family word to a
// VexOpcodeEncodingType.
var vexFamilyNames = map[string]VexOpcodeEncodingType{
	"vex":  VexTypeVex,
	"xop":  VexTypeXop,
	"evex": VexTypeEVex,
}

var vexMapNames = map[string]VexMap{
	"0f":   VexMap0F,
	"0f38": VexMap0F38,
	"0f3a": VexMap0F3A,
	"m8":   VexMapXop8,
	"m9":   VexMapXop9,
	"m10":  VexMapXop10,
	"xop8":  VexMapXop8,
	"xop9":  VexMapXop9,
	"xop10": VexMapXop10,
}

var vexRexWNames = map[string]VexRexW{
	"w0":   VexRexW0,
	"w1":   VexRexW1,
	"wig":  VexRexWIgnored,
}

var vexVectorLengthNames = map[string]VexVectorLength{
	"128":  VexVectorLength128,
	"l0":   VexVectorLength128,
	"256":  VexVectorLength256,
	"l1":   VexVectorLength256,
	"512":  VexVectorLength512,
	"lig":  VexVectorLengthIgnored,
	"lz":   VexVectorLengthIgnored,
}

var vexSimdPrefixNamesIntel = map[string]VexSimdPrefix{
	"p0":  VexSimdPrefixNone,
	"66":  VexSimdPrefix66,
	"f2":  VexSimdPrefixF2,
	"f3":  VexSimdPrefixF3,
}

var vexSimdPrefixNamesAmd = map[string]VexSimdPrefix{
	"":   VexSimdPrefixNone,
	"66": VexSimdPrefix66,
	"f2": VexSimdPrefixF2,
	"f3": VexSimdPrefixF3,
}

// parseVexDescriptor parses a lower-cased dotted VEX/XOP/EVEX descriptor
// (e.g. "vex.nds.128.0f.wig", "xop.m8.w0", "evex.512.66.0f3a.w1") into a
// VexOpcodeEncoding, implementing spec.md §4.1's AMD-style/Intel-style
// sub-parser.
func parseVexDescriptor(descriptor string) (VexOpcodeEncoding, error) {
	parts := strings.Split(descriptor, ".")
	if len(parts) == 0 {
		return VexOpcodeEncoding{}, fmt.Errorf("empty vex descriptor")
	}

	family, ok := vexFamilyNames[parts[0]]
	if !ok {
		return VexOpcodeEncoding{}, fmt.Errorf("unknown vex descriptor family %q", parts[0])
	}
	rest := parts[1:]

	nd := VexNonDestructiveInvalid
	switch {
	case len(rest) > 0 && rest[0] == "nds":
		nd = VexNonDestructiveSource
		rest = rest[1:]
	case len(rest) > 0 && rest[0] == "ndd":
		nd = VexNonDestructiveDest
		rest = rest[1:]
	case len(rest) > 0 && rest[0] == "dds":
		nd = VexNonDestructiveSecondSource
		rest = rest[1:]
	}

	var vexMap VexMap
	var haveMap bool
	var rexW = VexRexWIgnored
	var vectorLength = VexVectorLengthIgnored
	var simdPrefix = VexSimdPrefixNone

	amdStyle := len(rest) > 0 && strings.HasPrefix(rest[0], "m")

	if amdStyle {
		vexMap, haveMap, rest = consumeVexMap(rest)
		rexW, rest = consumeVexRexW(rest)
		rest = consumeVvvvPlaceholder(rest)
		vectorLength, rest = consumeVexVectorLength(rest)
		simdPrefix, rest = consumeVexSimdPrefixAmd(rest)
	} else {
		rest = consumeVvvvPlaceholder(rest)
		vectorLength, rest = consumeVexVectorLength(rest)
		simdPrefix, rest = consumeVexSimdPrefixIntel(rest)
		vexMap, haveMap, rest = consumeVexMap(rest)
		rexW, rest = consumeVexRexW(rest)
	}

	if !haveMap {
		return VexOpcodeEncoding{}, fmt.Errorf("vex descriptor %q is missing a mandatory map component", descriptor)
	}
	_ = rest

	return NewVexOpcodeEncoding(family, vexMap, rexW, vectorLength, simdPrefix, nd), nil
}

// consumeVvvvPlaceholder skips an explicit "vvvv" style placeholder token if
// present. NASM's dotted syntax does not encode Vvvv directly (it is
// inferred from the nds/ndd/dds prefix above); this only guards against a
// stray token slipping into the wrong slot.
func consumeVvvvPlaceholder(rest []string) []string {
	if len(rest) > 0 && rest[0] == "vvvv" {
		return rest[1:]
	}
	return rest
}

func consumeVexMap(rest []string) (VexMap, bool, []string) {
	if len(rest) == 0 {
		return VexMap0F, false, rest
	}
	if m, ok := vexMapNames[rest[0]]; ok {
		return m, true, rest[1:]
	}
	return VexMap0F, false, rest
}

func consumeVexRexW(rest []string) (VexRexW, []string) {
	if len(rest) == 0 {
		return VexRexWIgnored, rest
	}
	if w, ok := vexRexWNames[rest[0]]; ok {
		return w, rest[1:]
	}
	return VexRexWIgnored, rest
}

func consumeVexVectorLength(rest []string) (VexVectorLength, []string) {
	if len(rest) == 0 {
		return VexVectorLengthIgnored, rest
	}
	if l, ok := vexVectorLengthNames[rest[0]]; ok {
		return l, rest[1:]
	}
	return VexVectorLengthIgnored, rest
}

func consumeVexSimdPrefixIntel(rest []string) (VexSimdPrefix, []string) {
	if len(rest) == 0 {
		return VexSimdPrefixNone, rest
	}
	if p, ok := vexSimdPrefixNamesIntel[rest[0]]; ok {
		return p, rest[1:]
	}
	return VexSimdPrefixNone, rest
}

func consumeVexSimdPrefixAmd(rest []string) (VexSimdPrefix, []string) {
	if len(rest) == 0 {
		return VexSimdPrefixNone, rest
	}
	if p, ok := vexSimdPrefixNamesAmd[rest[0]]; ok {
		return p, rest[1:]
	}
	return VexSimdPrefixNone, rest
}
