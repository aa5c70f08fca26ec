package cmd

import (
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/exchange"
	"github.com/pders01/prompt-library/internal/models"
)

var (
	diffJSON bool
	diffToon bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <file>",
	Short: "Compare an export file with the library",
	Long: `Compare an export file with the library and show:
  - Prompts only in the file
  - Prompts only in the library
  - Prompts present in both, with the fields that differ

Nothing is changed. Use "prompts import" to apply the file.

Example:
  prompts diff prompts-export-2025-01-01T10-00-00.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffToon, "toon", false, "Output in LLM-friendly toon format")
}

type libraryDiff struct {
	OnlyInFile    []promptRef   `json:"only_in_file"`
	OnlyInLibrary []promptRef   `json:"only_in_library"`
	Changed       []promptDelta `json:"changed"`
	Unchanged     int           `json:"unchanged"`
}

type promptRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type promptDelta struct {
	ID            string   `json:"id"`
	ExistingTitle string   `json:"existing_title"`
	IncomingTitle string   `json:"incoming_title"`
	Fields        []string `json:"fields"`
}

// changedFields lists the fields an import would change in existing.
func changedFields(existing, incoming models.Prompt) []string {
	var fields []string
	if existing.Title != incoming.Title {
		fields = append(fields, "title")
	}
	if existing.Content != incoming.Content {
		fields = append(fields, "content")
	}
	if existing.CreatedAt != incoming.CreatedAt {
		fields = append(fields, "createdAt")
	}
	if existing.Model() != incoming.Model() {
		fields = append(fields, "model")
	}
	return fields
}

func diffPrompts(library, file []models.Prompt) *libraryDiff {
	d := &libraryDiff{
		OnlyInFile:    []promptRef{},
		OnlyInLibrary: []promptRef{},
		Changed:       []promptDelta{},
	}

	stored := make(map[string]models.Prompt, len(library))
	for _, p := range library {
		stored[p.ID] = p
	}
	incoming := make(map[string]bool, len(file))

	for _, p := range file {
		if incoming[p.ID] {
			continue
		}
		incoming[p.ID] = true

		existing, ok := stored[p.ID]
		if !ok {
			d.OnlyInFile = append(d.OnlyInFile, promptRef{ID: p.ID, Title: p.Title})
			continue
		}
		if fields := changedFields(existing, p); len(fields) > 0 {
			d.Changed = append(d.Changed, promptDelta{
				ID:            p.ID,
				ExistingTitle: existing.Title,
				IncomingTitle: p.Title,
				Fields:        fields,
			})
		} else {
			d.Unchanged++
		}
	}

	for _, p := range library {
		if !incoming[p.ID] {
			d.OnlyInLibrary = append(d.OnlyInLibrary, promptRef{ID: p.ID, Title: p.Title})
		}
	}
	return d
}

func runDiff(cmd *cobra.Command, args []string) error {
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
	analysis, payload, err := exchange.NewAnalyzer(lib).Analyze(ctx, data)
	if err != nil {
		return err
	}
	if !analysis.Valid {
		return fmt.Errorf("cannot compare: %s", analysis.Reason)
	}

	prompts, err := lib.Prompts(ctx)
	if err != nil {
		return err
	}
	d := diffPrompts(prompts, payload.Prompts)

	if diffJSON {
		output, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if diffToon {
		output, err := gotoon.Encode(d)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Comparing %s with the library\n", args[0])
	fmt.Println("═══════════════════════════════")
	fmt.Println()

	if len(d.OnlyInFile) > 0 {
		fmt.Printf("Only in file (%d):\n", len(d.OnlyInFile))
		for _, r := range d.OnlyInFile {
			fmt.Printf("  + %s  %s\n", r.ID, r.Title)
		}
		fmt.Println()
	}

	if len(d.OnlyInLibrary) > 0 {
		fmt.Printf("Only in library (%d):\n", len(d.OnlyInLibrary))
		for _, r := range d.OnlyInLibrary {
			fmt.Printf("  - %s  %s\n", r.ID, r.Title)
		}
		fmt.Println()
	}

	if len(d.Changed) > 0 {
		fmt.Printf("Changed (%d):\n", len(d.Changed))
		for _, c := range d.Changed {
			fmt.Printf("  ~ %s  %s\n", c.ID, c.ExistingTitle)
			if c.IncomingTitle != c.ExistingTitle {
				fmt.Printf("      title:  %s → %s\n", c.ExistingTitle, c.IncomingTitle)
			}
			fmt.Printf("      fields: %v\n", c.Fields)
		}
		fmt.Println()
	}

	fmt.Printf("Unchanged: %d\n", d.Unchanged)
	return nil
}
