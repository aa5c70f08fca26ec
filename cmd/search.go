package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/embeddings"
	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/models"
)

var (
	searchModel string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search prompts using hybrid keyword and semantic search",
	Long: `Search prompt titles, content, models and notes.

Combines keyword matching with semantic similarity when embeddings are
enabled and Ollama is running.

Example:
  prompts search "code review"
  prompts search --model gpt-4 "summarize"

Search modes:
  - Keyword only: When embeddings are disabled or Ollama is not running
  - Hybrid: Combines keyword (30%) + semantic (70%) for prompts with embeddings`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchModel, "model", "", "Filter by model")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

type searchResult struct {
	Prompt        models.Prompt `json:"prompt"`
	Score         float64       `json:"score"`
	KeywordScore  int           `json:"keyword_score"`
	SemanticScore float64       `json:"semantic_score,omitempty"`
	UsedSemantic  bool          `json:"used_semantic"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return fmt.Errorf("query must not be empty")
	}

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

	queryEmbedding := queryVector(ctx, query)
	if !searchJSON {
		if queryEmbedding != nil {
			fmt.Println("Using hybrid search (keyword + semantic)")
		} else {
			fmt.Println("Using keyword search only")
		}
	}

	results, err := rankPrompts(ctx, lib, prompts, queryWords, queryEmbedding)
	if err != nil {
		return err
	}
	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	if searchJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No prompts match the search query")
		return nil
	}

	fmt.Printf("\nFound %d matching prompt(s):\n\n", len(results))
	for i, r := range results {
		scoreDisplay := fmt.Sprintf("%.1f", r.Score)
		if r.UsedSemantic {
			scoreDisplay += fmt.Sprintf(" (keyword: %d, semantic: %.1f%%)", r.KeywordScore, r.SemanticScore)
		} else {
			scoreDisplay += " (keyword only)"
		}

		fmt.Printf("%d. %s [score: %s]\n", i+1, r.Prompt.Title, scoreDisplay)
		fmt.Printf("   ID:      %s\n", r.Prompt.ID)
		if m := r.Prompt.Model(); m != "" {
			fmt.Printf("   Model:   %s\n", m)
		}
		fmt.Printf("   Content: %s\n", truncate(strings.Join(strings.Fields(r.Prompt.Content), " "), 80))
		fmt.Println()
	}

	return nil
}

// queryVector embeds the query, or returns nil when semantic search is
// unavailable.
func queryVector(ctx context.Context, query string) []float64 {
	if !config.GetEmbeddingsEnabled() {
		return nil
	}
	client, err := newEmbedder(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Semantic search unavailable")
		return nil
	}
	vec, err := client.Embed(ctx, query)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to embed query")
		return nil
	}
	return vec
}

// rankPrompts scores every prompt against the query, highest first.
// Prompts with no relevance are dropped.
func rankPrompts(ctx context.Context, lib *library.Library, prompts []models.Prompt, queryWords []string, queryEmbedding []float64) ([]searchResult, error) {
	keywordWeight := config.GetKeywordWeight()
	semanticWeight := config.GetSemanticWeight()

	var results []searchResult
	for _, p := range prompts {
		if searchModel != "" && p.Model() != searchModel {
			continue
		}

		notes, err := lib.Notes(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		keywordScore := calculateRelevance(queryWords, p, notes)

		var semanticScore float64
		usedSemantic := false
		if queryEmbedding != nil {
			vec, ok, err := lib.Embedding(ctx, p.ID)
			if err != nil {
				log.Warn().Err(err).Str("prompt", p.ID).Msg("Ignoring unreadable embedding")
			} else if ok {
				if similarity, err := embeddings.CosineSimilarity(queryEmbedding, vec); err == nil {
					// [-1, 1] to [0, 100]
					semanticScore = (similarity + 1) * 50
					usedSemantic = true
				}
			}
		}

		keyword := float64(keywordScore)
		if usedSemantic {
			keyword = min(keyword/2.0, 100)
		}
		score := embeddings.Blend(keyword, semanticScore, usedSemantic, keywordWeight, semanticWeight)

		if score > 0 || keywordScore > 0 {
			results = append(results, searchResult{
				Prompt:        p,
				Score:         score,
				KeywordScore:  keywordScore,
				SemanticScore: semanticScore,
				UsedSemantic:  usedSemantic,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func calculateRelevance(queryWords []string, p models.Prompt, notes []models.Note) int {
	title := strings.ToLower(p.Title)
	model := strings.ToLower(p.Model())

	var noteText strings.Builder
	for _, n := range notes {
		noteText.WriteString(strings.ToLower(n.Content))
		noteText.WriteByte(' ')
	}
	searchableText := strings.Join([]string{title, strings.ToLower(p.Content), model, noteText.String()}, " ")

	score := 0
	for _, word := range queryWords {
		score += strings.Count(searchableText, word) * 10

		if strings.Contains(title, word) {
			score += 50
		}
		if model != "" && strings.Contains(model, word) {
			score += 30
		}
	}
	return score
}
