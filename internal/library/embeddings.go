package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/pders01/prompt-library/internal/embeddings"
	"github.com/pders01/prompt-library/internal/storage"
)

// SaveEmbedding stores the search embedding of a prompt.
func (l *Library) SaveEmbedding(ctx context.Context, promptID string, vec []float64) error {
	data, err := embeddings.Encode(vec)
	if err != nil {
		return err
	}
	if err := l.store.Put(ctx, EmbeddingPrefix+promptID, data); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

// Embedding returns the stored embedding of a prompt. ok is false when
// the prompt has none.
func (l *Library) Embedding(ctx context.Context, promptID string) (vec []float64, ok bool, err error) {
	data, err := l.store.Get(ctx, EmbeddingPrefix+promptID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read embedding: %w", err)
	}

	vec, err = embeddings.Decode(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// DeleteEmbedding drops the embedding of a prompt, if any.
func (l *Library) DeleteEmbedding(ctx context.Context, promptID string) error {
	if err := l.store.Delete(ctx, EmbeddingPrefix+promptID); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}
