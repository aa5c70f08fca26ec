package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/embeddings"
	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/models"
	"github.com/pders01/prompt-library/internal/ollama"
)

// nomic-embed-text supports ~8K tokens, roughly 32K chars.
const maxEmbeddingChars = 30000

// newEmbedder connects to the configured Ollama server.
func newEmbedder(ctx context.Context) (*ollama.Client, error) {
	ollamaURL := config.GetOllamaURL()
	if !ollama.IsAvailable(ollamaURL) {
		return nil, fmt.Errorf("Ollama is not available at %s", ollamaURL)
	}

	client, err := ollama.NewClient(ollamaURL, config.GetEmbeddingModel())
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	if err := client.CheckModel(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// embedPrompt generates and stores the search embedding of p.
func embedPrompt(ctx context.Context, lib *library.Library, p models.Prompt) error {
	client, err := newEmbedder(ctx)
	if err != nil {
		return err
	}

	fmt.Println("  Generating embedding...")
	vec, err := client.Embed(ctx, embeddingText(p))
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}
	if err := embeddings.Validate(vec); err != nil {
		return fmt.Errorf("invalid embedding: %w", err)
	}
	if err := lib.SaveEmbedding(ctx, p.ID, vec); err != nil {
		return err
	}

	log.Debug().Str("prompt", p.ID).Int("dimensions", len(vec)).Msg("Embedding stored")
	fmt.Printf("  ✓ Embedding generated (%d dimensions)\n", len(vec))
	return nil
}

// embeddingText combines the searchable fields of a prompt.
func embeddingText(p models.Prompt) string {
	parts := []string{"Title: " + p.Title}
	if m := p.Model(); m != "" {
		parts = append(parts, "Model: "+m)
	}
	parts = append(parts, p.Content)

	text := strings.Join(parts, "\n\n")
	if r := []rune(text); len(r) > maxEmbeddingChars {
		text = string(r[:maxEmbeddingChars])
	}
	return text
}
