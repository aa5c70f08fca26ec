package cmd

import (
	"fmt"
	"sort"

	"github.com/alpkeskin/gotoon"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pders01/prompt-library/internal/exchange"
	"github.com/pders01/prompt-library/internal/models"
)

var (
	statsJSON bool
	statsToon bool
	statsYAML bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Long: `Display statistics about your prompt library including:
  - Total prompt count and average rating
  - Most used model and usage by model
  - Token estimates
  - Notes and backup counts

The total, average rating and most used model are the same values
written into export files.

Examples:
  prompts stats
  prompts stats --json
  prompts stats --toon
  prompts stats --yaml`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
	statsCmd.Flags().BoolVar(&statsYAML, "yaml", false, "Output as YAML")
}

type libraryStats struct {
	TotalPrompts  int         `json:"total_prompts" yaml:"total_prompts"`
	RatedPrompts  int         `json:"rated_prompts" yaml:"rated_prompts"`
	AverageRating float64     `json:"average_rating" yaml:"average_rating"`
	MostUsedModel string      `json:"most_used_model,omitempty" yaml:"most_used_model,omitempty"`
	ByModel       []modelStat `json:"by_model" yaml:"by_model"`
	WithMetadata  int         `json:"with_metadata" yaml:"with_metadata"`
	TokensMin     int         `json:"tokens_min" yaml:"tokens_min"`
	TokensMax     int         `json:"tokens_max" yaml:"tokens_max"`
	Notes         int         `json:"notes" yaml:"notes"`
	Backups       int         `json:"backups" yaml:"backups"`
	OldestPrompt  string      `json:"oldest_prompt,omitempty" yaml:"oldest_prompt,omitempty"`
	NewestPrompt  string      `json:"newest_prompt,omitempty" yaml:"newest_prompt,omitempty"`
}

type modelStat struct {
	Model string `json:"model" yaml:"model"`
	Count int    `json:"count" yaml:"count"`
}

// modelCounts returns the usage count of every model, most used first.
// Equal counts keep first-seen order.
func modelCounts(prompts []models.Prompt) []modelStat {
	var out []modelStat
	index := make(map[string]int)
	for _, p := range prompts {
		m := p.Model()
		if m == "" {
			continue
		}
		if i, ok := index[m]; ok {
			out[i].Count++
			continue
		}
		index[m] = len(out)
		out = append(out, modelStat{Model: m, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

func runStats(cmd *cobra.Command, args []string) error {
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
	ratings, err := lib.Ratings(ctx)
	if err != nil {
		return err
	}
	backups, err := lib.Backups(ctx)
	if err != nil {
		return err
	}

	summary := exchange.ComputeStats(prompts, ratings)
	stats := &libraryStats{
		TotalPrompts:  summary.TotalPrompts,
		AverageRating: summary.AverageRating,
		ByModel:       modelCounts(prompts),
		Backups:       len(backups),
	}
	if summary.MostUsedModel != nil {
		stats.MostUsedModel = *summary.MostUsedModel
	}

	var oldest, newest float64
	for i, p := range prompts {
		if ratings[p.ID] > 0 {
			stats.RatedPrompts++
		}
		if p.Metadata != nil {
			stats.WithMetadata++
			stats.TokensMin += p.Metadata.TokenEstimate.Min
			stats.TokensMax += p.Metadata.TokenEstimate.Max
		}
		notes, err := lib.Notes(ctx, p.ID)
		if err != nil {
			return err
		}
		stats.Notes += len(notes)

		if i == 0 || p.CreatedAt < oldest {
			oldest = p.CreatedAt
		}
		if i == 0 || p.CreatedAt > newest {
			newest = p.CreatedAt
		}
	}
	if len(prompts) > 0 {
		stats.OldestPrompt = formatMillis(int64(oldest))
		stats.NewestPrompt = formatMillis(int64(newest))
	}

	if statsJSON {
		output, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if statsToon {
		output, err := gotoon.Encode(stats)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	if statsYAML {
		output, err := yaml.Marshal(stats)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Print(string(output))
		return nil
	}

	if stats.TotalPrompts == 0 {
		fmt.Println("No prompts found")
		return nil
	}

	fmt.Println("Library Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Total Prompts:   %d\n", stats.TotalPrompts)
	fmt.Printf("Date Range:      %s to %s\n", stats.OldestPrompt, stats.NewestPrompt)
	if stats.RatedPrompts > 0 {
		fmt.Printf("Average Rating:  %.2f (%d rated)\n", stats.AverageRating, stats.RatedPrompts)
	}
	fmt.Printf("Notes:           %d\n", stats.Notes)
	fmt.Printf("Backups:         %d\n", stats.Backups)
	fmt.Println()

	if len(stats.ByModel) > 0 {
		fmt.Println("By Model:")
		limit := min(10, len(stats.ByModel))
		for _, ms := range stats.ByModel[:limit] {
			percentage := float64(ms.Count) / float64(stats.TotalPrompts) * 100
			fmt.Printf("  %-20s %3d  (%.1f%%)\n", ms.Model, ms.Count, percentage)
		}
		fmt.Println()
	}

	if stats.WithMetadata > 0 {
		fmt.Println("Token Estimates:")
		fmt.Printf("  Tracked prompts:  %d\n", stats.WithMetadata)
		fmt.Printf("  Total range:      %d-%d tokens\n", stats.TokensMin, stats.TokensMax)
	}

	return nil
}
