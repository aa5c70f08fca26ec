package library

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/pders01/prompt-library/internal/models"
)

// RawPrompts returns the stored prompt records undecoded, in store order.
func (l *Library) RawPrompts(ctx context.Context) ([]json.RawMessage, error) {
	return readTable[[]json.RawMessage](ctx, l, PromptsKey)
}

// Prompts returns the stored prompts, most recently added first. Any record
// that fails the shape check yields ErrInvalidRecords.
func (l *Library) Prompts(ctx context.Context) ([]models.Prompt, error) {
	raw, err := l.RawPrompts(ctx)
	if err != nil {
		return nil, err
	}

	prompts := make([]models.Prompt, 0, len(raw))
	for i, rec := range raw {
		p, err := models.DecodePrompt(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidRecords, i, err)
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

// SavePrompts replaces the whole prompt table.
func (l *Library) SavePrompts(ctx context.Context, prompts []models.Prompt) error {
	if prompts == nil {
		prompts = []models.Prompt{}
	}
	return l.writeTable(ctx, PromptsKey, prompts)
}

// SaveRawPrompts replaces the whole prompt table with undecoded records.
func (l *Library) SaveRawPrompts(ctx context.Context, raw []json.RawMessage) error {
	if raw == nil {
		raw = []json.RawMessage{}
	}
	return l.writeTable(ctx, PromptsKey, raw)
}

// Prompt returns the prompt with the given id.
func (l *Library) Prompt(ctx context.Context, id string) (models.Prompt, error) {
	prompts, err := l.Prompts(ctx)
	if err != nil {
		return models.Prompt{}, err
	}
	for _, p := range prompts {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Prompt{}, fmt.Errorf("%w: %s", ErrPromptNotFound, id)
}

// AddPrompt stores p in front of the existing prompts.
func (l *Library) AddPrompt(ctx context.Context, p models.Prompt) error {
	if !p.Valid() {
		return fmt.Errorf("%w: id must not be empty", models.ErrInvalidShape)
	}

	prompts, err := l.Prompts(ctx)
	if err != nil {
		return err
	}
	for _, existing := range prompts {
		if existing.ID == p.ID {
			return fmt.Errorf("%w: %s", ErrPromptExists, p.ID)
		}
	}

	return l.SavePrompts(ctx, append([]models.Prompt{p}, prompts...))
}

// UpdatePrompt replaces the stored prompt that has p's id, keeping its position.
func (l *Library) UpdatePrompt(ctx context.Context, p models.Prompt) error {
	prompts, err := l.Prompts(ctx)
	if err != nil {
		return err
	}
	for i := range prompts {
		if prompts[i].ID == p.ID {
			prompts[i] = p
			return l.SavePrompts(ctx, prompts)
		}
	}
	return fmt.Errorf("%w: %s", ErrPromptNotFound, p.ID)
}

// DeletePrompt removes a prompt together with its rating, notes and embedding.
func (l *Library) DeletePrompt(ctx context.Context, id string) error {
	prompts, err := l.Prompts(ctx)
	if err != nil {
		return err
	}

	next := make([]models.Prompt, 0, len(prompts))
	for _, p := range prompts {
		if p.ID != id {
			next = append(next, p)
		}
	}
	if len(next) == len(prompts) {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	if err := l.SavePrompts(ctx, next); err != nil {
		return err
	}

	if err := l.SetRating(ctx, id, 0); err != nil {
		return err
	}
	if err := l.deleteNotesFor(ctx, id); err != nil {
		return err
	}
	return l.DeleteEmbedding(ctx, id)
}

// Clear removes every prompt. Notes, ratings and backups are kept.
func (l *Library) Clear(ctx context.Context) error {
	if err := l.store.Delete(ctx, PromptsKey); err != nil {
		return fmt.Errorf("clear prompts: %w", err)
	}
	return nil
}
