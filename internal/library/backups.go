package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pders01/prompt-library/internal/metadata"
	"github.com/pders01/prompt-library/internal/storage"
)

// Backup is a snapshot of the prompt table taken before an import.
// Records are kept exactly as they were stored.
type Backup struct {
	CreatedAt string            `json:"createdAt"`
	Prompts   []json.RawMessage `json:"prompts"`
}

// BackupInfo describes a stored backup.
type BackupInfo struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	Count     int       `json:"count"`
}

// Name returns the key without the backup prefix.
func (b BackupInfo) Name() string {
	return strings.TrimPrefix(b.Key, BackupPrefix)
}

// BackupKey turns a backup name into its storage key. Full keys are
// returned unchanged.
func BackupKey(name string) string {
	if strings.HasPrefix(name, BackupPrefix) {
		return name
	}
	return BackupPrefix + name
}

// CreateBackup snapshots the current prompt table and returns the key it
// was stored under.
func (l *Library) CreateBackup(ctx context.Context) (string, error) {
	raw, err := l.RawPrompts(ctx)
	if err != nil {
		return "", err
	}
	if raw == nil {
		raw = []json.RawMessage{}
	}

	now := l.now()
	key := BackupPrefix + metadata.ISO(now)
	if _, err := l.store.Get(ctx, key); err == nil {
		key += "-" + uuid.NewString()[:8]
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("check backup key: %w", err)
	}

	backup := Backup{CreatedAt: metadata.ISO(now), Prompts: raw}
	if err := l.writeTable(ctx, key, backup); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Int("prompts", len(raw)).Msg("Backup created")
	return key, nil
}

// Backup loads the backup stored under key.
func (l *Library) Backup(ctx context.Context, key string) (*Backup, error) {
	key = BackupKey(key)
	data, err := l.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode backup %s: %w", key, err)
	}
	return &b, nil
}

// RestoreBackup overwrites the prompt table with the backup's records.
func (l *Library) RestoreBackup(ctx context.Context, key string) error {
	b, err := l.Backup(ctx, key)
	if err != nil {
		return err
	}
	return l.SaveRawPrompts(ctx, b.Prompts)
}

// Backups lists stored backups, newest first. Unreadable backups are
// skipped with a warning.
func (l *Library) Backups(ctx context.Context) ([]BackupInfo, error) {
	keys, err := l.store.Keys(ctx, BackupPrefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	infos := make([]BackupInfo, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		b, err := l.Backup(ctx, keys[i])
		if err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Msg("Skipping unreadable backup")
			continue
		}
		created, err := metadata.ParseISO(b.CreatedAt, "createdAt")
		if err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Msg("Backup has no valid timestamp")
		}
		infos = append(infos, BackupInfo{
			Key:       keys[i],
			CreatedAt: created,
			Count:     len(b.Prompts),
		})
	}
	return infos, nil
}

// DeleteBackup removes a backup.
func (l *Library) DeleteBackup(ctx context.Context, key string) error {
	key = BackupKey(key)
	if _, err := l.store.Get(ctx, key); errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, key)
	}
	if err := l.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}
