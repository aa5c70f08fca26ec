package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/exchange"
)

var (
	importMode   string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an export file into the library",
	Long: `Analyze an export file against the library and merge it in.

Modes:
  replace          - Replace the whole library with the file's prompts
  merge-skip       - Add new prompts, keep existing ones on conflict
  merge-overwrite  - Add new prompts, overwrite existing ones on conflict
  merge-duplicate  - Add new prompts, keep both sides of a conflict under a new id

Without --mode the configured import.default_mode is used, or else
merge-overwrite when the file conflicts with the library and merge-skip
when it does not.

The library is backed up before every import and restored if the
import fails. Backups are kept until removed with "prompts backups".

Examples:
  prompts import prompts-export-2025-01-01T10-00-00.json --dry-run
  prompts import library.json --mode merge-duplicate
  cat library.json | prompts import -`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importMode, "mode", "", "Import mode: replace|merge-skip|merge-overwrite|merge-duplicate")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Only analyze the file")
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := readImportFile(args[0])
	if err != nil {
		return err
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	session := exchange.NewSession(
		exchange.NewAnalyzer(lib),
		exchange.NewImporter(lib, exchange.WithLocker(newLocker())),
	)

	analysis, err := session.Analyze(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to analyze import: %w", err)
	}
	if !analysis.Valid {
		return fmt.Errorf("import rejected: %s", analysis.Reason)
	}

	printAnalysis(analysis)

	mode, err := chooseMode(importMode, session.SuggestedMode())
	if err != nil {
		return err
	}

	if importDryRun {
		fmt.Printf("\nDry run: would import with mode %s\n", mode)
		return nil
	}

	res, err := session.Apply(ctx, mode)
	if err != nil {
		return err
	}
	if !res.Applied {
		if res.BackupKey != "" {
			fmt.Fprintf(os.Stderr, "Library restored from backup: %s\n", res.BackupKey)
		}
		return errors.New("import failed: " + strings.Join(res.Errors, "; "))
	}

	fmt.Printf("\n✓ %s\n", res.Summary())
	fmt.Printf("  Backup: %s\n", res.BackupKey)
	return nil
}

func readImportFile(name string) ([]byte, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return data, nil
}

// chooseMode picks the flag value, then the configured default, then the
// suggested mode.
func chooseMode(flag string, suggested exchange.Mode) (exchange.Mode, error) {
	name := flag
	if name == "" {
		name = config.GetDefaultImportMode()
	}
	if name == "" {
		return suggested, nil
	}
	return exchange.ParseMode(name)
}

func printAnalysis(a *exchange.Analysis) {
	fmt.Printf("Import file: %d prompt(s), version %d\n", a.ImportedCount, *a.Version)

	if a.HasInternalDuplicates {
		fmt.Printf("\nRepeated ids in file (%d):\n", len(a.DuplicateIDs))
		for _, id := range a.DuplicateIDs {
			fmt.Printf("  %s\n", id)
		}
	}

	if len(a.Conflicts) == 0 {
		fmt.Println("No conflicts with the library")
		return
	}

	fmt.Printf("\nConflicts with the library (%d):\n", len(a.Conflicts))
	for _, c := range a.Conflicts {
		fmt.Printf("  %s\n", c.ID)
		fmt.Printf("    Existing: %s\n", c.ExistingTitle)
		fmt.Printf("    Incoming: %s\n", c.IncomingTitle)
	}
}
