package exchange

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/metadata"
	"github.com/pders01/prompt-library/internal/models"
)

const filenameLayout = "2006-01-02T15-04-05"

// ValidationError refuses an export because a stored record is not a prompt.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("storage contains invalid prompt records: record %d: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{library.ErrInvalidRecords, e.Err}
}

// Exporter builds export files from a library.
type Exporter struct {
	lib *library.Library
}

// NewExporter creates an Exporter for lib.
func NewExporter(lib *library.Library) *Exporter {
	return &Exporter{lib: lib}
}

// Build assembles the export payload. Prompts keep their stored order.
func (e *Exporter) Build(ctx context.Context) (*ExportFile, error) {
	return e.build(ctx, e.lib.Now())
}

func (e *Exporter) build(ctx context.Context, now time.Time) (*ExportFile, error) {
	raw, err := e.lib.RawPrompts(ctx)
	if err != nil {
		return nil, err
	}

	prompts := make([]models.Prompt, 0, len(raw))
	for i, rec := range raw {
		p, err := models.DecodePrompt(rec)
		if err != nil {
			return nil, &ValidationError{Index: i, Err: err}
		}
		prompts = append(prompts, p)
	}

	ratings, err := e.lib.Ratings(ctx)
	if err != nil {
		return nil, err
	}

	return &ExportFile{
		Version:    CurrentVersion,
		ExportedAt: metadata.ISO(now),
		Stats:      ComputeStats(prompts, ratings),
		Prompts:    prompts,
	}, nil
}

// Encode renders f as two-space indented JSON without a trailing newline.
func Encode(f *ExportFile) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Filename returns the export file name for an export taken at t.
func Filename(t time.Time) string {
	return "prompts-export-" + t.UTC().Format(filenameLayout) + ".json"
}

// WriteFile exports the library into dir and returns the written path.
func (e *Exporter) WriteFile(ctx context.Context, dir string) (string, error) {
	now := e.lib.Now()
	f, err := e.build(ctx, now)
	if err != nil {
		return "", err
	}
	data, err := Encode(f)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, Filename(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	log.Info().Str("path", path).Int("prompts", len(f.Prompts)).Msg("Export written")
	return path, nil
}
