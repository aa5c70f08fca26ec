// Package library exposes the typed tables of the prompt library on top of
// a storage.Store: prompts, notes by prompt, ratings by prompt, import
// backups and search embeddings.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pders01/prompt-library/internal/storage"
)

// Storage keys. They match the keys used by earlier versions of the library
// so existing data keeps loading.
const (
	PromptsKey      = "prompt-library.prompts"
	NotesKey        = "prompt-notes:v1"
	RatingsKey      = "prompt-library.ratings"
	BackupPrefix    = "prompt-library.backup:"
	EmbeddingPrefix = "prompt-library.embedding:"
)

var (
	ErrInvalidRecords = errors.New("library contains invalid prompt records")
	ErrPromptNotFound = errors.New("prompt not found")
	ErrPromptExists   = errors.New("prompt already exists")
	ErrBackupNotFound = errors.New("backup not found")
	ErrInvalidRating  = errors.New("rating must be between 0 and 5")
)

// Library reads and writes whole tables.
type Library struct {
	store storage.Store
	now   func() time.Time
	newID func() string
}

// Option configures a Library.
type Option func(*Library)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithIDFunc overrides id generation for new prompts and notes.
func WithIDFunc(newID func() string) Option {
	return func(l *Library) { l.newID = newID }
}

// New creates a Library backed by store.
func New(store storage.Store, opts ...Option) *Library {
	l := &Library{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the underlying store.
func (l *Library) Store() storage.Store {
	return l.store
}

// Now returns the library clock's current time.
func (l *Library) Now() time.Time {
	return l.now()
}

// NewID returns a fresh record id.
func (l *Library) NewID() string {
	return l.newID()
}

// readTable decodes the table under key. A missing table and an
// unparsable one both read as the zero value; the latter is logged.
func readTable[T any](ctx context.Context, l *Library, key string) (T, error) {
	var v T
	data, err := l.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, &v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Ignoring unparsable table")
		var zero T
		return zero, nil
	}
	return v, nil
}

func (l *Library) writeTable(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := l.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
