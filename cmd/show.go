package cmd

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/metadata"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a prompt with its metadata, rating and notes",
	Long: `Display a single prompt in full.

Example:
  prompts show 3f2a9c1e-...`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output the stored record as JSON")
}

func runShow(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	p, err := lib.Prompt(ctx, args[0])
	if err != nil {
		return err
	}

	if showJSON {
		output, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	rating, err := lib.Rating(ctx, p.ID)
	if err != nil {
		return err
	}
	notes, err := lib.Notes(ctx, p.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Prompt: %s\n\n", p.Title)
	fmt.Printf("ID:         %s\n", p.ID)
	fmt.Printf("Created:    %s\n", formatMillis(int64(p.CreatedAt)))
	if rating > 0 {
		fmt.Printf("Rating:     %s\n", stars(rating))
	}

	if meta := p.Metadata; meta != nil {
		fmt.Printf("Model:      %s\n", meta.Model)
		fmt.Printf("Tokens:     %d-%d (%s confidence)\n",
			meta.TokenEstimate.Min, meta.TokenEstimate.Max, meta.TokenEstimate.Confidence)
		fmt.Printf("Tracked:    %s\n", metadata.FormatHuman(meta.CreatedAt))
		if meta.UpdatedAt != meta.CreatedAt {
			fmt.Printf("Updated:    %s\n", metadata.FormatHuman(meta.UpdatedAt))
		}
	}

	fmt.Printf("\nContent:\n%s\n", p.Content)

	if len(notes) > 0 {
		fmt.Printf("\nNotes (%d):\n", len(notes))
		for _, n := range notes {
			fmt.Printf("  [%s] %s\n", formatMillis(n.UpdatedAt), n.Content)
		}
	}

	return nil
}
