package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/storage"
)

const validFile = `{"version":1,"prompts":[{"id":"a","title":"New","content":"c","createdAt":1}]}`

func newTestSession(t *testing.T, lib *library.Library) *Session {
	t.Helper()
	return NewSession(NewAnalyzer(lib), NewImporter(lib))
}

func TestSessionHappyPath(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "Old"))
	s := newTestSession(t, lib)
	ctx := context.Background()
	assert.Equal(t, StateIdle, s.State())

	analysis, err := s.Analyze(ctx, []byte(validFile))
	require.NoError(t, err)
	assert.True(t, analysis.Valid)
	assert.Equal(t, StateAwaitingStrategy, s.State())
	assert.Equal(t, ModeMergeOverwrite, s.SuggestedMode())
	require.NotNil(t, s.Payload())

	res, err := s.Apply(ctx, s.SuggestedMode())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, StateApplied, s.State())
	assert.Same(t, res, s.Result())
	assert.Equal(t, "Import complete: 0 added, 1 overwritten, 0 skipped, 0 duplicated.", res.Summary())

	_, err = s.Apply(ctx, ModeMergeSkip)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSessionRejected(t *testing.T) {
	s := newTestSession(t, newTestLibrary(t))
	ctx := context.Background()

	analysis, err := s.Analyze(ctx, []byte("nope"))
	require.NoError(t, err)
	assert.False(t, analysis.Valid)
	assert.Equal(t, StateRejected, s.State())
	assert.Nil(t, s.Payload())

	_, err = s.Apply(ctx, ModeReplace)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	analysis, err = s.Analyze(ctx, []byte(validFile))
	require.NoError(t, err)
	assert.True(t, analysis.Valid)
	assert.Equal(t, StateAwaitingStrategy, s.State())
	assert.Equal(t, ModeMergeSkip, s.SuggestedMode())
}

func TestSessionRolledBack(t *testing.T) {
	s := newTestSession(t, newTestLibrary(t))
	ctx := context.Background()

	_, err := s.Analyze(ctx, []byte(validFile))
	require.NoError(t, err)

	res, err := s.Apply(ctx, Mode("bogus"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, StateRolledBack, s.State())
	assert.True(t, s.State().Terminal())
}

func TestSessionAnalyzeWhileAwaiting(t *testing.T) {
	s := newTestSession(t, newTestLibrary(t))
	ctx := context.Background()

	_, err := s.Analyze(ctx, []byte(validFile))
	require.NoError(t, err)

	_, err = s.Analyze(ctx, []byte(validFile))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	s.Reset()
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Analysis())
	_, err = s.Analyze(ctx, []byte(validFile))
	assert.NoError(t, err)
}

// unreadableStore fails every read.
type unreadableStore struct {
	storage.Store
}

var errUnreadable = errors.New("device not ready")

func (unreadableStore) Get(context.Context, string) ([]byte, error) {
	return nil, errUnreadable
}

func TestSessionStorageErrorReturnsToIdle(t *testing.T) {
	lib := library.New(unreadableStore{Store: storage.NewMemoryStore()})
	s := newTestSession(t, lib)

	_, err := s.Analyze(context.Background(), []byte(validFile))
	assert.ErrorIs(t, err, errUnreadable)
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionAnalyzesDamagedLibrary(t *testing.T) {
	lib := newTestLibrary(t)
	require.NoError(t, lib.Store().Put(context.Background(), library.PromptsKey, []byte(`[{"id":2}]`)))
	s := newTestSession(t, lib)

	analysis, err := s.Analyze(context.Background(), []byte(validFile))
	require.NoError(t, err)
	assert.True(t, analysis.Valid)
	assert.Empty(t, analysis.Conflicts)
	assert.Equal(t, StateAwaitingStrategy, s.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-strategy", StateAwaitingStrategy.String())
	assert.Equal(t, "rolled-back", StateRolledBack.String())
	assert.Equal(t, "state(42)", State(42).String())
}
