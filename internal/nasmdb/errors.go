package nasmdb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnimplemented marks a matcher branch that spec.md §9 flags as a known
// gap: a constant-immediate Byte token after ModR/M, or a +r/+cc token
// encountered past the opcode state. A Vex token checks only the
// extended-prefix family; its map, vector length, W bit, SIMD prefix and
// Vvvv sub-fields are not compared and do not produce this error. Callers
// should distinguish this from a plain non-match via errors.Is.
var ErrUnimplemented = errors.New("nasmdb: unimplemented matcher branch")

// ErrAmbiguousMatch is returned by TryLookup when more than one database
// entry matches an instruction with differing derived has_modrm or
// immediate_size. It is distinguishable from "no entry matched" (which
// returns a nil error and a nil entry).
var ErrAmbiguousMatch = errors.New("nasmdb: ambiguous match")

// ParseError describes one malformed line encountered while parsing an
// insns.dat-format database.
type ParseError struct {
	Line    int
	Text    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("nasmdb: line %d: %s: %q", e.Line, e.Message, e.Text)
}

// ParseErrors collects every ParseError encountered during ParseDatabase. A
// non-empty ParseErrors still returns alongside a usable *Database built
// from every line that did parse (spec.md §7: the parser does not attempt
// recovery within a line but continues at the next line).
type ParseErrors []*ParseError

func (e ParseErrors) Error() string {
	if len(e) == 0 {
		return "nasmdb: no parse errors"
	}
	messages := make([]string, len(e))
	for i, pe := range e {
		messages[i] = pe.Error()
	}
	return strings.Join(messages, "\n")
}
