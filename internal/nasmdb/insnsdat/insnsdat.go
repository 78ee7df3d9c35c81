// Package insnsdat embeds a sample NASM insns.dat-format instruction
// database, giving callers a ready corpus without requiring a file argument.
package insnsdat

import _ "embed"

//go:embed sample.dat
var Sample string
