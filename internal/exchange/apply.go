package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/lock"
	"github.com/pders01/prompt-library/internal/models"
)

// Precondition failures reported by Apply.
const (
	ErrTextUnsupportedVersion = "Unsupported version"
	ErrTextInvalidPromptData  = "Invalid prompt data"
)

// maxIDAttempts bounds the search for an unused duplicate id.
const maxIDAttempts = 100

// IDGenerator derives a candidate id for a duplicated prompt. Apply retries
// until the candidate is unused.
type IDGenerator func(base string, now time.Time) string

// DefaultIDGenerator appends the base-36 millisecond time and four random
// hex characters to base.
func DefaultIDGenerator(base string, now time.Time) string {
	return base + "-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + uuid.NewString()[:4]
}

// Importer applies analyzed export files to a library.
type Importer struct {
	lib    *library.Library
	locker lock.Locker
	newID  IDGenerator
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLocker guards Apply with l.
func WithLocker(l lock.Locker) ImporterOption {
	return func(im *Importer) { im.locker = l }
}

// WithIDGenerator overrides how merge-duplicate ids are derived.
func WithIDGenerator(gen IDGenerator) ImporterOption {
	return func(im *Importer) { im.newID = gen }
}

// NewImporter creates an Importer for lib.
func NewImporter(lib *library.Library, opts ...ImporterOption) *Importer {
	im := &Importer{
		lib:    lib,
		locker: lock.NoOpLocker{},
		newID:  DefaultIDGenerator,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

type counters struct {
	imported, skipped, overwritten, duplicated int
}

// Apply merges payload into the library using mode. The prompt table is
// backed up first; any failure after that restores the backup. The backup
// is kept either way. Apply reports every failure through Result.
func (im *Importer) Apply(ctx context.Context, payload *ExportFile, mode Mode) *Result {
	res := &Result{Mode: mode, Errors: []string{}}

	if !mode.Valid() {
		res.Errors = append(res.Errors, fmt.Sprintf("Unsupported import mode %q", mode))
		return res
	}
	if payload == nil {
		res.Errors = append(res.Errors, ErrTextInvalidPromptData)
		return res
	}
	if payload.Version != CurrentVersion {
		res.Errors = append(res.Errors, ErrTextUnsupportedVersion)
		return res
	}
	if payload.Prompts == nil {
		res.Errors = append(res.Errors, ErrTextInvalidPromptData)
		return res
	}

	if err := im.locker.Acquire(); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	defer func() {
		if err := im.locker.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to release import lock")
		}
	}()

	existing, err := im.lib.RawPrompts(ctx)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	backupKey, err := im.lib.CreateBackup(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("backup failed: %v", err))
		return res
	}
	res.BackupKey = backupKey

	c, err := im.commit(ctx, existing, payload.Prompts, mode)
	if err != nil {
		if rerr := im.lib.RestoreBackup(ctx, backupKey); rerr != nil {
			log.Error().Err(rerr).Str("backup", backupKey).Msg("Failed to restore backup after failed import")
		}
		log.Warn().Err(err).Str("backup", backupKey).Str("mode", string(mode)).Msg("Import rolled back")
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	res.Applied = true
	res.Imported = c.imported
	res.Skipped = c.skipped
	res.Overwritten = c.overwritten
	res.Duplicated = c.duplicated

	log.Info().
		Str("mode", string(mode)).
		Int("imported", c.imported).
		Int("skipped", c.skipped).
		Int("overwritten", c.overwritten).
		Int("duplicated", c.duplicated).
		Str("backup", backupKey).
		Msg("Import applied")
	return res
}

// record is one entry of the prompt table during a commit. Stored records
// are carried as they are, including ones that fail the shape check; keyed
// is false when the record has no string id.
type record struct {
	id    string
	keyed bool
	raw   json.RawMessage
}

func storedRecords(raw []json.RawMessage) []record {
	records := make([]record, 0, len(raw))
	unreadable := 0
	for _, r := range raw {
		id := gjson.GetBytes(r, "id")
		records = append(records, record{id: id.Str, keyed: id.Type == gjson.String, raw: r})
		if models.CheckPromptShape(r) != nil {
			unreadable++
		}
	}
	if unreadable > 0 {
		log.Warn().Int("records", unreadable).Msg("Keeping prompt records that fail the shape check")
	}
	return records
}

func encodeRecord(p models.Prompt) (record, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return record{}, fmt.Errorf("encode prompt %q: %w", p.ID, err)
	}
	return record{id: p.ID, keyed: true, raw: raw}, nil
}

// commit builds the final collection and writes it in one operation. Under
// replace the stored records are not consulted.
func (im *Importer) commit(ctx context.Context, stored []json.RawMessage, incoming []models.Prompt, mode Mode) (c counters, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = counters{}
			err = fmt.Errorf("import failed unexpectedly: %v", r)
		}
	}()

	var next []record
	if mode != ModeReplace {
		next = storedRecords(stored)
	}
	index := make(map[string]int, len(next))
	for i, r := range next {
		if r.keyed {
			index[r.id] = i
		}
	}

	for _, p := range incoming {
		pos, exists := index[p.ID]
		if !exists {
			rec, err := encodeRecord(p)
			if err != nil {
				return counters{}, err
			}
			index[p.ID] = len(next)
			next = append(next, rec)
			c.imported++
			continue
		}

		switch mode {
		case ModeMergeSkip:
			c.skipped++
		case ModeMergeOverwrite:
			rec, err := encodeRecord(p)
			if err != nil {
				return counters{}, err
			}
			next[pos] = rec
			c.overwritten++
		case ModeMergeDuplicate:
			id, err := im.freshID(p.ID, index)
			if err != nil {
				return counters{}, err
			}
			dup := p
			dup.ID = id
			rec, err := encodeRecord(dup)
			if err != nil {
				return counters{}, err
			}
			index[id] = len(next)
			next = append(next, rec)
			c.duplicated++
		case ModeReplace:
			// A repeated id within the file; the last value wins below.
			rec, err := encodeRecord(p)
			if err != nil {
				return counters{}, err
			}
			next[pos] = rec
		}
	}

	if mode == ModeReplace {
		c = counters{imported: len(incoming)}
	}

	final := dedupe(next)
	raw := make([]json.RawMessage, len(final))
	for i, r := range final {
		raw[i] = r.raw
	}
	if err := im.lib.SaveRawPrompts(ctx, raw); err != nil {
		return counters{}, err
	}
	return c, nil
}

func (im *Importer) freshID(base string, taken map[string]int) (string, error) {
	for range maxIDAttempts {
		id := im.newID(base, im.lib.Now())
		if _, used := taken[id]; !used && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not derive an unused id for %q", base)
}

// dedupe keeps one record per id at the position of its first occurrence,
// holding the value of its last occurrence. Records without a string id are
// all kept.
func dedupe(records []record) []record {
	index := make(map[string]int, len(records))
	out := make([]record, 0, len(records))
	for _, r := range records {
		if !r.keyed {
			out = append(out, r)
			continue
		}
		if i, ok := index[r.id]; ok {
			out[i] = r
			continue
		}
		index[r.id] = len(out)
		out = append(out, r)
	}
	return out
}
