package nasmdb

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/keurnel/assembler/internal/debugcontext"
)

var (
	skipLineRe        = regexp.MustCompile(`^\s*(;.*)?$`)
	mnemonicRe        = regexp.MustCompile(`^[A-Z_0-9]+(cc)?$`)
	hexByteRe         = regexp.MustCompile(`^[0-9a-f]{2}(\+[rc])?$`)
	modRMFixedRegRe   = regexp.MustCompile(`^/[0-7]$`)
	bracketFieldsRe   = regexp.MustCompile(`^([a-z\-+]+):(?:([a-zA-Z0-9_]+):)?$`)
)

// ParseDatabase reads an insns.dat-format instruction database from r,
// returning a Database built from every line that parsed successfully. If
// dbg is non-nil, each malformed line is also recorded as an Error entry
// there (with the offending line text attached via WithSnippet). Parsing
// never aborts on a single bad line (spec.md §7): the returned ParseErrors
// lists every failure, but the Database is still usable.
func ParseDatabase(r io.Reader, dbg *debugcontext.DebugContext) (*Database, ParseErrors) {
	var entries []Entry
	var parseErrors ParseErrors

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if skipLineRe.MatchString(line) {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			pe := &ParseError{Line: lineNo, Text: line, Message: err.Error()}
			parseErrors = append(parseErrors, pe)
			if dbg != nil {
				dbg.Error(dbg.Loc(lineNo, 0), err.Error()).WithSnippet(line)
			}
			continue
		}
		entries = append(entries, entry)
	}

	return &Database{entries: entries}, parseErrors
}

// splitColumns splits a database line into its four whitespace-separated
// columns, treating a bracketed `[...]` code-string as a single column even
// when it contains internal spaces.
func splitColumns(line string) ([]string, error) {
	var columns []string
	var current strings.Builder
	depth := 0

	flush := func() {
		if current.Len() > 0 {
			columns = append(columns, current.String())
			current.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == '[':
			depth++
			current.WriteRune(r)
		case r == ']':
			depth--
			current.WriteRune(r)
		case depth == 0 && (r == ' ' || r == '\t'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets")
	}
	return columns, nil
}

// parseLine parses one non-skipped database line into an Entry.
func parseLine(line string) (Entry, error) {
	columns, err := splitColumns(line)
	if err != nil {
		return Entry{}, err
	}
	if len(columns) != 4 {
		return Entry{}, fmt.Errorf("expected 4 columns, got %d", len(columns))
	}

	mnemonicCol, valuesCol, codeCol, flagsCol := columns[0], columns[1], columns[2], columns[3]

	if !mnemonicRe.MatchString(mnemonicCol) {
		return Entry{}, fmt.Errorf("malformed mnemonic %q", mnemonicCol)
	}

	tokens, operandFields, evexTupleType, vexEncoding, err := parseCodeString(codeCol)
	if err != nil {
		return Entry{}, fmt.Errorf("in code string %q: %w", codeCol, err)
	}

	operands, err := parseOperandValues(valuesCol, operandFields)
	if err != nil {
		return Entry{}, fmt.Errorf("in operand values %q: %w", valuesCol, err)
	}

	flags, err := parseFlags(flagsCol)
	if err != nil {
		return Entry{}, fmt.Errorf("in flags %q: %w", flagsCol, err)
	}

	entry := Entry{
		Mnemonic:      mnemonicCol,
		Tokens:        tokens,
		Operands:      operands,
		VexEncoding:   vexEncoding,
		EVexTupleType: evexTupleType,
		Flags:         flags,
	}
	for _, tok := range tokens {
		if tok.Kind == TokenVex {
			entry.HasVex = true
			break
		}
	}
	return entry, nil
}

// parseCodeString parses the third column: either the literal "ignore" or
// the bracket form "[ (operand_fields: (tuple_type:)? )? encoding ]".
func parseCodeString(codeCol string) (tokens []Token, operandFields string, tupleType EVexTupleType, vexEncoding VexOpcodeEncoding, err error) {
	if codeCol == "ignore" {
		return nil, "", TupleNone, VexOpcodeEncoding{}, nil
	}
	if !strings.HasPrefix(codeCol, "[") || !strings.HasSuffix(codeCol, "]") {
		return nil, "", TupleNone, VexOpcodeEncoding{}, fmt.Errorf("code string must be %q or a bracketed encoding", "ignore")
	}

	inner := strings.TrimSpace(codeCol[1 : len(codeCol)-1])
	if inner == "" {
		return nil, "", TupleNone, VexOpcodeEncoding{}, nil
	}

	words := strings.Fields(inner)
	encodingWords := words

	if m := bracketFieldsRe.FindStringSubmatch(words[0]); m != nil {
		operandFields = m[1]
		if m[2] != "" {
			tt, ok := evexTupleTypeNames[strings.ToLower(m[2])]
			if !ok {
				return nil, "", TupleNone, VexOpcodeEncoding{}, fmt.Errorf("unknown evex tuple type %q", m[2])
			}
			tupleType = tt
		}
		encodingWords = words[1:]
	}

	tokens, vexEncoding, err = parseEncodingWords(encodingWords)
	if err != nil {
		return nil, "", TupleNone, VexOpcodeEncoding{}, err
	}
	return tokens, operandFields, tupleType, vexEncoding, nil
}

// parseEncodingWords parses the space-separated encoding tokens, trying
// each recognition rule in the order given by spec.md §4.1.3. It also
// returns the decoded VexOpcodeEncoding when the entry contains a Vex token
// (the zero value otherwise).
func parseEncodingWords(words []string) ([]Token, VexOpcodeEncoding, error) {
	var tokens []Token
	var vexEncoding VexOpcodeEncoding
	var sawVex bool

	for _, w := range words {
		lw := strings.ToLower(w)

		if tok, ok := literalTokenNames[lw]; ok {
			tokens = append(tokens, tok)
			continue
		}

		if hexByteRe.MatchString(lw) {
			b, _ := strconv.ParseUint(lw[:2], 16, 8)
			switch {
			case strings.HasSuffix(lw, "+r"):
				tokens = append(tokens, Token{Kind: TokenBytePlusRegister, Byte: byte(b)})
			case strings.HasSuffix(lw, "+c"):
				tokens = append(tokens, Token{Kind: TokenBytePlusConditionCode, Byte: byte(b)})
			default:
				tokens = append(tokens, Token{Kind: TokenByte, Byte: byte(b)})
			}
			continue
		}

		if modRMFixedRegRe.MatchString(w) {
			digit := w[1] - '0'
			tokens = append(tokens, Token{Kind: TokenModRMFixedReg, Byte: digit})
			continue
		}

		if strings.HasPrefix(lw, "vex.") || strings.HasPrefix(lw, "xop.") || strings.HasPrefix(lw, "evex.") {
			if sawVex {
				return nil, VexOpcodeEncoding{}, fmt.Errorf("more than one Vex token in entry")
			}
			enc, err := parseVexDescriptor(lw)
			if err != nil {
				return nil, VexOpcodeEncoding{}, err
			}
			tokens = append(tokens, Token{Kind: TokenVex})
			sawVex = true
			vexEncoding = enc
			continue
		}

		return nil, VexOpcodeEncoding{}, fmt.Errorf("unrecognised encoding token %q", w)
	}

	return tokens, vexEncoding, nil
}

// parseOperandValues parses the second column against the operand-fields
// string decoded from the code-string column.
func parseOperandValues(valuesCol, fields string) ([]Operand, error) {
	if valuesCol == "void" || valuesCol == "ignore" {
		if fields != "" {
			return nil, fmt.Errorf("operand-values is %q but fields string %q is non-empty", valuesCol, fields)
		}
		return nil, nil
	}

	cleaned := strings.ReplaceAll(valuesCol, "*", "")

	rawFields := fields
	if rawFields == "r+mi" {
		rawFields = "rmi"
	}

	values := splitOperandValues(cleaned)

	if fields == "r+mi" {
		if len(values) != 2 {
			return nil, fmt.Errorf("r+mi special case expects 2 values, got %d", len(values))
		}
		v0 := values[0]
		v1 := values[1]
		v0Rm := strings.ReplaceAll(v0, "reg", "rm")
		values = []string{v0, v0Rm, v1}
	}

	if len(values) != len(rawFields) {
		return nil, fmt.Errorf("operand count mismatch: %d values, %d fields", len(values), len(rawFields))
	}

	operands := make([]Operand, len(values))
	for i, v := range values {
		field, ok := operandFieldChars[rawFields[i]]
		if !ok {
			return nil, fmt.Errorf("unknown operand field char %q", rawFields[i])
		}
		parts := strings.Split(v, "|")
		typeName := strings.ToLower(parts[0])
		opType, ok := operandTypeNames[typeName]
		if !ok {
			return nil, fmt.Errorf("unknown operand type %q", parts[0])
		}
		operands[i] = Operand{Field: field, Type: opType}
	}
	return operands, nil
}

// splitOperandValues splits the operand-values column on "," or ":".
func splitOperandValues(s string) []string {
	return regexp.MustCompile(`[,:]`).Split(s, -1)
}

// parseFlags parses the fourth column: "ignore", or a comma-separated list
// of flag names. A flag name starting with a digit is prefixed with "_"
// before lookup.
func parseFlags(flagsCol string) (InstructionFlagSet, error) {
	flags := make(InstructionFlagSet)
	if flagsCol == "ignore" {
		return flags, nil
	}
	for _, name := range strings.Split(flagsCol, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		lookup := name
		if lookup[0] >= '0' && lookup[0] <= '9' {
			lookup = "_" + lookup
		}
		f, ok := instructionFlagNames[strings.ToUpper(lookup)]
		if !ok {
			// Unknown flag names are recorded as a soft failure: the flag is
			// skipped rather than aborting the whole entry, since the
			// matcher only consults a handful of flags (ND) and the rest
			// are purely informational to this database's purposes.
			continue
		}
		flags[f] = true
	}
	return flags, nil
}

// instructionFlagNames maps NASM flag-column names to InstructionFlag.
var instructionFlagNames = map[string]InstructionFlag{
	"ND":       FlagND,
	"_8086":    Flag8086,
	"LOCK":     FlagLock,
	"SM":       FlagSM,
	"SB":       FlagSB,
	"AR0":      FlagAR0,
	"AR1":      FlagAR1,
	"AR2":      FlagAR2,
	"OPT":      FlagOptimize,
	"NOLONG":   FlagNoLong,
	"LONG":     FlagLong,
	"UNDOC":    FlagUndoc,
	"OBSOLETE": FlagObsolete,
	"AMD":      FlagVendorAmd,
	"INTEL":    FlagVendorIntel,
	"CYRIX":    FlagVendorCyrix,
	"PRIV":     FlagPrivileged,
	"PROT":     FlagProtected,
	"DEFAULT":  FlagDefault,
	"FPU":      FlagFpu,
	"MMX":      FlagMmx,
	"SSE":      FlagSse,
	"SSE2":     FlagSse2,
	"SSE3":     FlagSse3,
	"SSE41":    FlagSse41,
	"SSE42":    FlagSse42,
	"AVX":      FlagAvx,
	"AVX2":     FlagAvx2,
	"AVX512":   FlagAvx512,
}
