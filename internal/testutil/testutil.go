package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/models"
	"github.com/pders01/prompt-library/internal/storage"
)

// TempLibrary is an on-disk library in a temporary home directory. It
// points the config at itself for the duration of the test.
type TempLibrary struct {
	Home   string
	DBPath string
	T      *testing.T
}

// NewTempLibrary creates an empty library and configures viper to use it.
func NewTempLibrary(t *testing.T) *TempLibrary {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	viper.Reset()
	t.Cleanup(viper.Reset)
	config.SetDefaults()

	dbPath := filepath.Join(home, ".local", "share", "prompts", "library.db")
	viper.Set("storage.path", dbPath)

	return &TempLibrary{
		Home:   home,
		DBPath: dbPath,
		T:      t,
	}
}

// With opens the library, runs fn and closes it again.
func (l *TempLibrary) With(fn func(ctx context.Context, lib *library.Library), opts ...library.Option) {
	l.T.Helper()

	store, err := storage.NewSQLiteStore(l.DBPath)
	if err != nil {
		l.T.Fatalf("failed to open library: %v", err)
	}
	defer store.Close()

	fn(context.Background(), library.New(store, opts...))
}

// AddPrompt stores a prompt with the given id and title.
func (l *TempLibrary) AddPrompt(id, title, content string) models.Prompt {
	l.T.Helper()

	p := models.Prompt{ID: id, Title: title, Content: content, CreatedAt: 1700000000000}
	l.With(func(ctx context.Context, lib *library.Library) {
		if err := lib.AddPrompt(ctx, p); err != nil {
			l.T.Fatalf("failed to add prompt: %v", err)
		}
	})
	return p
}

// Prompts returns the stored prompts.
func (l *TempLibrary) Prompts() []models.Prompt {
	l.T.Helper()

	var prompts []models.Prompt
	l.With(func(ctx context.Context, lib *library.Library) {
		var err error
		prompts, err = lib.Prompts(ctx)
		if err != nil {
			l.T.Fatalf("failed to read prompts: %v", err)
		}
	})
	return prompts
}

// PromptIDs returns the stored prompt ids in store order.
func (l *TempLibrary) PromptIDs() []string {
	l.T.Helper()

	ids := []string{}
	for _, p := range l.Prompts() {
		ids = append(ids, p.ID)
	}
	return ids
}

// Backups returns the stored backups, newest first.
func (l *TempLibrary) Backups() []library.BackupInfo {
	l.T.Helper()

	var backups []library.BackupInfo
	l.With(func(ctx context.Context, lib *library.Library) {
		var err error
		backups, err = lib.Backups(ctx)
		if err != nil {
			l.T.Fatalf("failed to list backups: %v", err)
		}
	})
	return backups
}

// CreateFile writes a file below the temporary home and returns its path.
func (l *TempLibrary) CreateFile(name, content string) string {
	l.T.Helper()

	path := filepath.Join(l.Home, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		l.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		l.T.Fatalf("failed to create file: %v", err)
	}
	return path
}
