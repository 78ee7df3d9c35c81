package x86_64

import (
	"os"
	"strings"

	"github.com/keurnel/assembler/internal/debugcontext"
	"github.com/keurnel/assembler/internal/nasmdb"
	"github.com/keurnel/assembler/internal/nasmdb/insnsdat"
	"github.com/spf13/cobra"
)

var DumpDbCmd = &cobra.Command{
	Use:   "dump-db",
	Short: "Parse an insns.dat-format database and list its entries.",
	Long:  `Parse an insns.dat-format database and list its entries.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDumpDb(cmd); err != nil {
			cmd.PrintErrln("Error:", err)
		}
	},
}

var dumpDbDatabasePath string

func init() {
	DumpDbCmd.Flags().StringVar(&dumpDbDatabasePath, "database", "", "path to an insns.dat-format database (defaults to the embedded sample)")
}

func runDumpDb(cmd *cobra.Command) error {
	var r = strings.NewReader(insnsdat.Sample)
	filePath := "(embedded sample)"
	if dumpDbDatabasePath != "" {
		filePath = dumpDbDatabasePath
	}

	dbg := debugcontext.NewDebugContext(filePath)
	dbg.SetPhase("nasmdb-parse")

	var db *nasmdb.Database
	var parseErrors nasmdb.ParseErrors
	if dumpDbDatabasePath != "" {
		f, err := os.Open(dumpDbDatabasePath)
		if err != nil {
			return err
		}
		defer f.Close()
		db, parseErrors = nasmdb.ParseDatabase(f, dbg)
	} else {
		db, parseErrors = nasmdb.ParseDatabase(r, dbg)
	}

	for _, entry := range db.Entries() {
		cmd.Printf("%-16s tokens=%d operands=%d\n", entry.Mnemonic, len(entry.Tokens), len(entry.Operands))
	}

	if len(parseErrors) > 0 {
		cmd.PrintErrf("%d parse error(s):\n", len(parseErrors))
		for _, e := range dbg.Errors() {
			cmd.PrintErrln(" ", e.String())
		}
	}

	return nil
}
