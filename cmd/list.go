package cmd

import (
	"fmt"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/models"
)

var (
	listModel string
	listSince string
	listJSON  bool
	listToon  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts in the library",
	Long: `List prompts, most recently added first, with optional filtering.

Examples:
  prompts list
  prompts list --model gpt-4
  prompts list --since 2025-10-01
  prompts list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listModel, "model", "", "Filter by model")
	listCmd.Flags().StringVar(&listSince, "since", "", "Show prompts created since date (YYYY-MM-DD)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output in LLM-friendly toon format")
}

type promptSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	CreatedAt string  `json:"created_at"`
	Model     string  `json:"model,omitempty"`
	Rating    float64 `json:"rating,omitempty"`
	Notes     int     `json:"notes,omitempty"`
}

// filterPrompts applies the model and since filters.
func filterPrompts(prompts []models.Prompt, model, since string) ([]models.Prompt, error) {
	var sinceMs float64
	if since != "" {
		sinceDate, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --since date format (use YYYY-MM-DD): %w", err)
		}
		sinceMs = float64(sinceDate.UnixMilli())
	}

	var out []models.Prompt
	for _, p := range prompts {
		if model != "" && p.Model() != model {
			continue
		}
		if since != "" && p.CreatedAt < sinceMs {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func runList(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	prompts, err := lib.Prompts(ctx)
	if err != nil {
		return err
	}

	if len(prompts) == 0 {
		fmt.Println("No prompts found")
		return nil
	}

	prompts, err = filterPrompts(prompts, listModel, listSince)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		fmt.Println("No prompts match the filter criteria")
		return nil
	}

	ratings, err := lib.Ratings(ctx)
	if err != nil {
		return err
	}

	summaries := make([]promptSummary, 0, len(prompts))
	for _, p := range prompts {
		notes, err := lib.Notes(ctx, p.ID)
		if err != nil {
			return err
		}
		summaries = append(summaries, promptSummary{
			ID:        p.ID,
			Title:     p.Title,
			CreatedAt: formatMillis(int64(p.CreatedAt)),
			Model:     p.Model(),
			Rating:    ratings[p.ID],
			Notes:     len(notes),
		})
	}

	if listJSON {
		output, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if listToon {
		output, err := gotoon.Encode(summaries)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Found %d prompt(s):\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Printf("  %s\n", s.Title)
		fmt.Printf("    ID:      %s\n", s.ID)
		fmt.Printf("    Created: %s\n", s.CreatedAt)
		if s.Model != "" {
			fmt.Printf("    Model:   %s\n", s.Model)
		}
		if s.Rating > 0 {
			fmt.Printf("    Rating:  %s\n", stars(s.Rating))
		}
		if s.Notes > 0 {
			fmt.Printf("    Notes:   %d\n", s.Notes)
		}
		fmt.Println()
	}

	return nil
}

func stars(rating float64) string {
	full := int(rating + 0.5)
	out := ""
	for i := 0; i < 5; i++ {
		if i < full {
			out += "★"
		} else {
			out += "☆"
		}
	}
	return fmt.Sprintf("%s (%.1f)", out, rating)
}
