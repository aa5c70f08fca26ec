package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/exchange"
)

var (
	exportOutput string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the library to a versioned JSON file",
	Long: `Write every prompt, together with summary stats, to
prompts-export-<timestamp>.json.

The export is refused if any stored record is not a valid prompt.

Examples:
  prompts export
  prompts export --output ~/backups
  prompts export --stdout > library.json`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportOutput, "output", "", "Output directory (default: export.dir)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Write the export to standard output")
}

func runExport(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	exporter := exchange.NewExporter(lib)

	if exportStdout {
		f, err := exporter.Build(ctx)
		if err != nil {
			return fmt.Errorf("export refused: %w", err)
		}
		data, err := exchange.Encode(f)
		if err != nil {
			return err
		}
		if _, err := os.Stdout.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		return nil
	}

	dir := exportOutput
	if dir == "" {
		dir = config.GetExportDir()
	}

	path, err := exporter.WriteFile(ctx, dir)
	if err != nil {
		return fmt.Errorf("export refused: %w", err)
	}

	fmt.Printf("✓ Exported library: %s\n", path)
	return nil
}
