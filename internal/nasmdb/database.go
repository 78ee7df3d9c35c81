package nasmdb

import "fmt"

// Database is an immutable collection of instruction-database entries built
// by ParseDatabase. Zero value is an empty database.
type Database struct {
	entries []Entry
}

// Entries returns the database's entries in parse order. The returned slice
// must not be mutated.
func (d *Database) Entries() []Entry {
	return d.entries
}

// Len returns the number of entries in the database.
func (d *Database) Len() int {
	return len(d.entries)
}

// TryLookup matches instr against every entry in d, in parse order,
// returning the first matching Entry along with its derived has_modrm and
// immediate_size_in_bytes.
//
// When more than one entry matches, entries whose derived (hasModRM,
// immediateSize) agree with the first match are treated as duplicates of the
// same encoding and do not affect the result: TryLookup returns the first
// match in parse order. An entry that matches with a *different* derived
// pair is a genuine ambiguity and causes TryLookup to return
// ErrAmbiguousMatch rather than silently picking one.
//
// A matcher branch hitting ErrUnimplemented aborts the lookup immediately:
// the caller cannot tell whether that entry would have matched, so no
// overall result can be trusted.
func (d *Database) TryLookup(instr Instruction, upToOpcode bool) (*Entry, bool, int, error) {
	var found *Entry
	var foundHasModRM bool
	var foundImmediateSize int

	for i := range d.entries {
		entry := d.entries[i]
		matched, hasModRM, immediateSize, err := Match(entry, instr, upToOpcode)
		if err != nil {
			return nil, false, 0, err
		}
		if !matched {
			continue
		}
		if found == nil {
			found = &d.entries[i]
			foundHasModRM = hasModRM
			foundImmediateSize = immediateSize
			continue
		}
		if hasModRM != foundHasModRM || immediateSize != foundImmediateSize {
			return nil, false, 0, fmt.Errorf("%w: %s and %s disagree on has_modrm/immediate_size", ErrAmbiguousMatch, found.Mnemonic, entry.Mnemonic)
		}
	}

	if found == nil {
		return nil, false, 0, nil
	}
	return found, foundHasModRM, foundImmediateSize, nil
}
