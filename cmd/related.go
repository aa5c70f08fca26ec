package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alpkeskin/gotoon"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/embeddings"
)

var (
	relatedJSON bool
	relatedToon bool
)

var relatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Find related prompts",
	Long: `Find prompts related to a given prompt based on:
  - Embedding similarity (when both prompts have embeddings)
  - Same model
  - Shared title words

Results are ranked by relevance.

Example:
  prompts related 3f2a9c1e-...`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)

	relatedCmd.Flags().BoolVar(&relatedJSON, "json", false, "Output as JSON")
	relatedCmd.Flags().BoolVar(&relatedToon, "toon", false, "Output in LLM-friendly toon format")
}

type relatedPrompt struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Model  string `json:"model,omitempty"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// minRelatedSimilarity is the cosine similarity below which embeddings do
// not count as related.
const minRelatedSimilarity = 0.5

func titleWords(title string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, ".,:;!?\"'()[]")
		if len([]rune(w)) > 2 {
			words[w] = true
		}
	}
	return words
}

func runRelated(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	target, err := lib.Prompt(ctx, args[0])
	if err != nil {
		return err
	}
	prompts, err := lib.Prompts(ctx)
	if err != nil {
		return err
	}

	targetVec, hasTargetVec, err := lib.Embedding(ctx, target.ID)
	if err != nil {
		return err
	}
	targetWords := titleWords(target.Title)

	var related []relatedPrompt
	for _, p := range prompts {
		if p.ID == target.ID {
			continue
		}

		score := 0
		var reasons []string

		if hasTargetVec {
			vec, ok, err := lib.Embedding(ctx, p.ID)
			if err == nil && ok {
				if sim, err := embeddings.CosineSimilarity(targetVec, vec); err == nil && sim >= minRelatedSimilarity {
					score += int(sim * 100)
					reasons = append(reasons, fmt.Sprintf("%.0f%% similar", sim*100))
				}
			}
		}

		if m := target.Model(); m != "" && p.Model() == m {
			score += 20
			reasons = append(reasons, "same model")
		}

		shared := 0
		for w := range titleWords(p.Title) {
			if targetWords[w] {
				shared++
			}
		}
		if shared > 0 {
			score += shared * 10
			reasons = append(reasons, fmt.Sprintf("%d shared title words", shared))
		}

		if score > 0 {
			related = append(related, relatedPrompt{
				ID:     p.ID,
				Title:  p.Title,
				Model:  p.Model(),
				Score:  score,
				Reason: strings.Join(reasons, ", "),
			})
		}
	}

	if len(related) == 0 {
		fmt.Println("No related prompts found")
		return nil
	}

	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Score > related[j].Score
	})

	if relatedJSON {
		output, err := json.MarshalIndent(related, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if relatedToon {
		output, err := gotoon.Encode(related)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Found %d related prompt(s) for %s:\n\n", len(related), target.Title)
	for i, r := range related {
		fmt.Printf("%d. %s [score: %d]\n", i+1, r.Title, r.Score)
		fmt.Printf("   Relationship: %s\n", r.Reason)
		fmt.Printf("   ID:      %s\n", r.ID)
		if r.Model != "" {
			fmt.Printf("   Model:   %s\n", r.Model)
		}
		fmt.Println()
	}

	return nil
}

