package x86_64

import (
	"fmt"
	"os"
	"strings"

	"github.com/keurnel/assembler/internal/nasmdb"
	"github.com/keurnel/assembler/internal/nasmdb/insnsdat"
	"github.com/spf13/cobra"
)

var MatchOpcodeCmd = &cobra.Command{
	Use:     "match-opcode",
	Short:   "Match a partially decoded instruction against the NASM instruction database.",
	Long:    `Match a partially decoded instruction against the NASM instruction database.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMatchOpcode(cmd); err != nil {
			cmd.PrintErrln("Error:", err)
		}
	},
}

var (
	matchOpcodeDatabasePath  string
	matchOpcodePrefixes      []string
	matchOpcodeXex           string
	matchOpcodeOpcodeMap     string
	matchOpcodeByte          []byte
	matchOpcodeModRM         []byte
	matchOpcodeImmediateSize int
	matchOpcodeAddressSize   int
)

func init() {
	MatchOpcodeCmd.Flags().StringVar(&matchOpcodeDatabasePath, "database", "", "path to an insns.dat-format database (defaults to the embedded sample)")
	MatchOpcodeCmd.Flags().StringSliceVar(&matchOpcodePrefixes, "prefixes", nil, "legacy prefixes observed, in order (e.g. f2,66)")
	MatchOpcodeCmd.Flags().StringVar(&matchOpcodeXex, "xex", "escapes", "extended-prefix family: escapes, rex, vex2, vex3, xop, evex")
	MatchOpcodeCmd.Flags().StringVar(&matchOpcodeOpcodeMap, "opcode-map", "default", "opcode map: default, 0f, 0f38, 0f3a, xop8, xop9, xop10")
	MatchOpcodeCmd.Flags().BytesHexVar(&matchOpcodeByte, "byte", nil, "main opcode byte, hex (e.g. 58)")
	MatchOpcodeCmd.Flags().BytesHexVar(&matchOpcodeModRM, "modrm", nil, "ModR/M byte, hex, if present")
	MatchOpcodeCmd.Flags().IntVar(&matchOpcodeImmediateSize, "immediate-size", 0, "total immediate size in bytes")
	MatchOpcodeCmd.Flags().IntVar(&matchOpcodeAddressSize, "address-size", 32, "default/effective address size in bits (16, 32, or 64)")
}

func runMatchOpcode(cmd *cobra.Command) error {
	db, err := loadDatabase(matchOpcodeDatabasePath)
	if err != nil {
		return err
	}

	instr, err := buildInstructionFromFlags()
	if err != nil {
		return err
	}

	entry, hasModRM, immediateSize, err := db.TryLookup(instr, false)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	if entry == nil {
		cmd.Println("no match")
		return nil
	}

	cmd.Printf("matched %s (has_modrm=%t, immediate_size=%d)\n", entry.Mnemonic, hasModRM, immediateSize)
	return nil
}

// loadDatabase parses the database at path, or the embedded sample when path
// is empty.
func loadDatabase(path string) (*nasmdb.Database, error) {
	if path == "" {
		db, parseErrors := nasmdb.ParseDatabase(strings.NewReader(insnsdat.Sample), nil)
		if len(parseErrors) > 0 {
			return nil, fmt.Errorf("embedded sample database has %d malformed line(s): %w", len(parseErrors), parseErrors)
		}
		return db, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer f.Close()

	db, parseErrors := nasmdb.ParseDatabase(f, nil)
	if len(parseErrors) > 0 {
		return nil, fmt.Errorf("database has %d malformed line(s): %w", len(parseErrors), parseErrors)
	}
	return db, nil
}

var xexFamilyNames = map[string]nasmdb.XexFamily{
	"escapes": nasmdb.XexEscapes,
	"rex":     nasmdb.XexRex,
	"vex2":    nasmdb.XexVex2,
	"vex3":    nasmdb.XexVex3,
	"xop":     nasmdb.XexXop,
	"evex":    nasmdb.XexEVex,
}

var opcodeMapNames = map[string]nasmdb.OpcodeMap{
	"default": nasmdb.MapDefault,
	"0f":      nasmdb.MapEscape0F,
	"0f38":    nasmdb.MapEscape0F38,
	"0f3a":    nasmdb.MapEscape0F3A,
	"xop8":    nasmdb.MapXop8,
	"xop9":    nasmdb.MapXop9,
	"xop10":   nasmdb.MapXop10,
}

var legacyPrefixNames = map[string]nasmdb.LegacyPrefix{
	"lock": nasmdb.PrefixLock,
	"repe": nasmdb.PrefixRepeatEqual,
	"f3":   nasmdb.PrefixRepeatEqual,
	"repne": nasmdb.PrefixRepeatNotEqual,
	"f2":   nasmdb.PrefixRepeatNotEqual,
	"cs":   nasmdb.PrefixSegmentCS,
	"ss":   nasmdb.PrefixSegmentSS,
	"ds":   nasmdb.PrefixSegmentDS,
	"es":   nasmdb.PrefixSegmentES,
	"fs":   nasmdb.PrefixSegmentFS,
	"gs":   nasmdb.PrefixSegmentGS,
	"66":   nasmdb.PrefixOperandSizeOverride,
	"67":   nasmdb.PrefixAddressSizeOverride,
}

// buildInstructionFromFlags assembles a partial nasmdb.Instruction from the
// command's flag values.
func buildInstructionFromFlags() (nasmdb.Instruction, error) {
	xexFamily, ok := xexFamilyNames[strings.ToLower(matchOpcodeXex)]
	if !ok {
		return nasmdb.Instruction{}, fmt.Errorf("unknown --xex value %q", matchOpcodeXex)
	}
	opcodeMap, ok := opcodeMapNames[strings.ToLower(matchOpcodeOpcodeMap)]
	if !ok {
		return nasmdb.Instruction{}, fmt.Errorf("unknown --opcode-map value %q", matchOpcodeOpcodeMap)
	}

	var prefixes []nasmdb.LegacyPrefix
	for _, name := range matchOpcodePrefixes {
		p, ok := legacyPrefixNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nasmdb.Instruction{}, fmt.Errorf("unknown prefix name %q", name)
		}
		prefixes = append(prefixes, p)
	}

	if len(matchOpcodeByte) != 1 {
		return nasmdb.Instruction{}, fmt.Errorf("--byte must be exactly one hex byte, got %d", len(matchOpcodeByte))
	}
	mainByte := matchOpcodeByte[0]

	var modrm nasmdb.ModRM
	if len(matchOpcodeModRM) > 0 {
		if len(matchOpcodeModRM) != 1 {
			return nasmdb.Instruction{}, fmt.Errorf("--modrm must be exactly one hex byte, got %d", len(matchOpcodeModRM))
		}
		b := matchOpcodeModRM[0]
		modrm = nasmdb.ModRM{Present: true, Mod: b >> 6, Reg: (b >> 3) & 0x7, Rm: b & 0x7}
	}

	return nasmdb.Instruction{
		DefaultAddressSize:   matchOpcodeAddressSize,
		EffectiveAddressSize: matchOpcodeAddressSize,
		LegacyPrefixes:       nasmdb.NewLegacyPrefixList(prefixes...),
		Xex:                  nasmdb.Xex{Family: xexFamily},
		OpcodeMap:            opcodeMap,
		MainByte:             mainByte,
		ModRM:                modrm,
		ImmediateSizeInBytes: matchOpcodeImmediateSize,
	}, nil
}
