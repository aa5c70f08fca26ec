package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/lock"
	"github.com/pders01/prompt-library/internal/storage"
)

// openLibrary opens the configured library. The returned func closes it.
func openLibrary() (*library.Library, func(), error) {
	path := config.GetStoragePath()
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open library: %w", err)
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to close library")
		}
	}
	return library.New(store), closeFn, nil
}

// newLocker returns the lock that serializes writers of the configured library.
func newLocker() lock.Locker {
	return lock.NewFileLocker(config.GetLockPath(), lock.DefaultOwner())
}

// contextOf returns the command context, or Background when the command
// is run directly.
func contextOf(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
