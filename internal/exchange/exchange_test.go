package exchange

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/models"
	"github.com/pders01/prompt-library/internal/storage"
)

var testNow = time.Date(2024, 3, 1, 12, 30, 45, 123_000_000, time.UTC)

func newTestLibrary(t *testing.T, prompts ...models.Prompt) *library.Library {
	t.Helper()
	lib := library.New(storage.NewMemoryStore(), library.WithClock(func() time.Time { return testNow }))
	if len(prompts) > 0 {
		require.NoError(t, lib.SavePrompts(context.Background(), prompts))
	}
	return lib
}

func prompt(id, title string) models.Prompt {
	return models.Prompt{ID: id, Title: title, Content: "body " + id, CreatedAt: 1700000000000}
}

func withModel(p models.Prompt, model string) models.Prompt {
	p.Metadata = &models.Metadata{
		Model:     model,
		CreatedAt: "2024-01-01T00:00:00.000Z",
		UpdatedAt: "2024-01-01T00:00:00.000Z",
		TokenEstimate: models.TokenEstimate{
			Min: 1, Max: 2, Confidence: models.ConfidenceHigh,
		},
	}
	return p
}

func storedBytes(t *testing.T, lib *library.Library) []byte {
	t.Helper()
	data, err := lib.Store().Get(context.Background(), library.PromptsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return data
}

func storedPrompts(t *testing.T, lib *library.Library) []models.Prompt {
	t.Helper()
	prompts, err := lib.Prompts(context.Background())
	require.NoError(t, err)
	return prompts
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func payloadOf(prompts ...models.Prompt) *ExportFile {
	return &ExportFile{Version: CurrentVersion, Prompts: prompts}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMode(" Merge-Skip ")
	require.NoError(t, err)
	assert.Equal(t, ModeMergeSkip, got)

	_, err = ParseMode("merge")
	assert.Error(t, err)
}

func TestComputeStats(t *testing.T) {
	gpt := "gpt-4"
	claude := "claude"

	tests := []struct {
		name    string
		prompts []models.Prompt
		ratings map[string]float64
		want    Stats
	}{
		{
			name: "empty",
			want: Stats{},
		},
		{
			name:    "unrated prompts are excluded from the average",
			prompts: []models.Prompt{prompt("a", ""), prompt("b", ""), prompt("c", "")},
			ratings: map[string]float64{"a": 4, "b": 0, "zz": 1},
			want:    Stats{TotalPrompts: 3, AverageRating: 4},
		},
		{
			name:    "average is rounded to two decimals",
			prompts: []models.Prompt{prompt("a", ""), prompt("b", ""), prompt("c", "")},
			ratings: map[string]float64{"a": 4, "b": 4, "c": 5},
			want:    Stats{TotalPrompts: 3, AverageRating: 4.33},
		},
		{
			name: "most used model is trimmed",
			prompts: []models.Prompt{
				withModel(prompt("a", ""), "claude"),
				withModel(prompt("b", ""), " gpt-4 "),
				withModel(prompt("c", ""), "gpt-4"),
			},
			want: Stats{TotalPrompts: 3, MostUsedModel: &gpt},
		},
		{
			name: "ties go to the first model seen",
			prompts: []models.Prompt{
				withModel(prompt("a", ""), "claude"),
				withModel(prompt("b", ""), "gpt-4"),
				withModel(prompt("c", ""), "gpt-4"),
				withModel(prompt("d", ""), "claude"),
			},
			want: Stats{TotalPrompts: 4, MostUsedModel: &claude},
		},
		{
			name: "model names are case sensitive and blanks are absent",
			prompts: []models.Prompt{
				withModel(prompt("a", ""), "Claude"),
				withModel(prompt("b", ""), "claude"),
				withModel(prompt("c", ""), "   "),
				withModel(prompt("d", ""), "   "),
			},
			want: Stats{TotalPrompts: 4, MostUsedModel: strPtr("Claude")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStats(tt.prompts, tt.ratings))
		})
	}
}

func strPtr(s string) *string { return &s }

func TestExportBuild(t *testing.T) {
	lib := newTestLibrary(t, withModel(prompt("b", "B"), "claude"), prompt("a", "A"))
	ctx := context.Background()
	require.NoError(t, lib.SetRating(ctx, "a", 3))

	f, err := NewExporter(lib).Build(ctx)
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, f.Version)
	assert.Equal(t, "2024-03-01T12:30:45.123Z", f.ExportedAt)
	require.Len(t, f.Prompts, 2)
	assert.Equal(t, "b", f.Prompts[0].ID)
	assert.Equal(t, "a", f.Prompts[1].ID)
	assert.Equal(t, 2, f.Stats.TotalPrompts)
	assert.Equal(t, 3.0, f.Stats.AverageRating)
	require.NotNil(t, f.Stats.MostUsedModel)
	assert.Equal(t, "claude", *f.Stats.MostUsedModel)
}

func TestExportRefusesCorruptStorage(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	raw := `[{"id":"a","title":"t","content":"c","createdAt":1},{"id":"b","title":"t","content":"c","createdAt":"yesterday"}]`
	require.NoError(t, lib.Store().Put(ctx, library.PromptsKey, []byte(raw)))

	_, err := NewExporter(lib).Build(ctx)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Index)
	assert.ErrorIs(t, err, library.ErrInvalidRecords)
	assert.ErrorIs(t, err, models.ErrInvalidShape)
}

func TestEncode(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "<b>&</b>"))
	f, err := NewExporter(lib).Build(context.Background())
	require.NoError(t, err)

	data, err := Encode(f)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n  \"version\": 1,\n  \"exportedAt\": \"2024-03-01T12:30:45.123Z\","))
	assert.Contains(t, text, `"mostUsedModel": null`)
	assert.Contains(t, text, `"title": "<b>&</b>"`)
	assert.False(t, strings.HasSuffix(text, "\n"))
	assert.NotContains(t, text, `"rating"`)
	assert.NotContains(t, text, `"metadata"`)
}

func TestEncodeEmptyLibrary(t *testing.T) {
	f, err := NewExporter(newTestLibrary(t)).Build(context.Background())
	require.NoError(t, err)

	data, err := Encode(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"prompts": []`)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "prompts-export-2024-03-01T12-30-45.json", Filename(testNow))
	assert.Equal(t, "prompts-export-2024-03-01T12-30-45.json",
		Filename(testNow.In(time.FixedZone("CET", 3600))))
}

func TestWriteFile(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "A"))
	dir := t.TempDir()

	path, err := NewExporter(lib).WriteFile(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "prompts-export-2024-03-01T12-30-45.json"))

	analysis, payload, err := NewAnalyzer(newTestLibrary(t)).Analyze(context.Background(), mustRead(t, path))
	require.NoError(t, err)
	assert.True(t, analysis.Valid)
	assert.Len(t, payload.Prompts, 1)
}

func TestAnalyzeRejections(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantReason  string
		wantVersion *int
		wantRaw     string
	}{
		{name: "not json", input: `{"version":1,`, wantReason: "Invalid JSON"},
		{name: "empty input", input: ``, wantReason: "Invalid JSON"},
		{name: "null", input: `null`, wantReason: "Invalid payload"},
		{name: "number", input: `42`, wantReason: "Invalid payload"},
		{name: "array", input: `[]`, wantReason: "Invalid payload"},
		{name: "future version", input: `{"version":2,"prompts":[]}`, wantReason: "Unsupported version 2", wantVersion: intPtr(2), wantRaw: `2`},
		{name: "missing version", input: `{"prompts":[]}`, wantReason: "Unsupported version undefined"},
		{name: "null version", input: `{"version":null}`, wantReason: "Unsupported version null", wantRaw: `null`},
		{name: "string version", input: `{"version":"1"}`, wantReason: "Unsupported version 1", wantRaw: `"1"`},
		{name: "fractional version", input: `{"version":1.5}`, wantReason: "Unsupported version 1.5", wantRaw: `1.5`},
		{name: "missing prompts", input: `{"version":1}`, wantReason: "No prompts to import"},
		{name: "prompts not array", input: `{"version":1,"prompts":{"a":1}}`, wantReason: "No prompts to import"},
		{name: "empty prompts", input: `{"version":1,"prompts":[]}`, wantReason: "No prompts to import"},
		{
			name:       "title not string",
			input:      `{"version":1,"prompts":[{"id":"a","title":1,"content":"c","createdAt":1}]}`,
			wantReason: "One or more prompts are invalid",
		},
		{
			name:       "createdAt missing",
			input:      `{"version":1,"prompts":[{"id":"a","title":"t","content":"c"}]}`,
			wantReason: "One or more prompts are invalid",
		},
		{
			name:       "element not object",
			input:      `{"version":1,"prompts":["a"]}`,
			wantReason: "One or more prompts are invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newTestLibrary(t, prompt("x", "X"))
			before := storedBytes(t, lib)

			analysis, payload, err := NewAnalyzer(lib).Analyze(context.Background(), []byte(tt.input))
			require.NoError(t, err)
			assert.False(t, analysis.Valid)
			assert.Equal(t, tt.wantReason, analysis.Reason)
			assert.Equal(t, tt.wantVersion, analysis.Version)
			assert.Equal(t, tt.wantRaw, string(analysis.DeclaredVersion))
			assert.Nil(t, payload)

			assert.Equal(t, before, storedBytes(t, lib))
		})
	}
}

func intPtr(v int) *int { return &v }

func TestAnalyzeDuplicatesAndConflicts(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "Old A"), prompt("c", "Old C"))

	input := `{"version":1,"exportedAt":"2024-01-01T00:00:00.000Z",
		"stats":{"totalPrompts":4,"averageRating":0,"mostUsedModel":null},
		"prompts":[
		{"id":"a","title":"New A","content":"x","createdAt":1},
		{"id":"b","title":"B","content":"x","createdAt":2},
		{"id":"b","title":"B2","content":"x","createdAt":3},
		{"id":"b","title":"B3","content":"x","createdAt":4}
	]}`

	analysis, payload, err := NewAnalyzer(lib).Analyze(context.Background(), []byte(input))
	require.NoError(t, err)
	require.True(t, analysis.Valid)

	assert.Equal(t, intPtr(1), analysis.Version)
	assert.Equal(t, 4, analysis.ImportedCount)
	assert.True(t, analysis.HasInternalDuplicates)
	assert.Equal(t, []string{"b", "b"}, analysis.DuplicateIDs)
	assert.Equal(t, []Conflict{{ID: "a", ExistingTitle: "Old A", IncomingTitle: "New A"}}, analysis.Conflicts)

	require.NotNil(t, payload)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", payload.ExportedAt)
	assert.Equal(t, 4, payload.Stats.TotalPrompts)
	assert.Nil(t, payload.Stats.MostUsedModel)
	assert.Len(t, payload.Prompts, 4)
}

func TestAnalyzeIgnoresMalformedStats(t *testing.T) {
	input := `{"version":1,"stats":"nope","prompts":[{"id":"a","title":"t","content":"c","createdAt":1}]}`

	analysis, payload, err := NewAnalyzer(newTestLibrary(t)).Analyze(context.Background(), []byte(input))
	require.NoError(t, err)
	assert.True(t, analysis.Valid)
	assert.False(t, analysis.HasInternalDuplicates)
	assert.Empty(t, analysis.DuplicateIDs)
	assert.Empty(t, analysis.Conflicts)
	assert.Equal(t, Stats{}, payload.Stats)
}

func TestAnalyzeAcceptsLooseRecords(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
	}{
		{name: "exponent createdAt", prompt: `{"id":"x","title":"t","content":"c","createdAt":1.7e12}`},
		{name: "fractional createdAt", prompt: `{"id":"x","title":"t","content":"c","createdAt":1700000000000.5}`},
		{name: "string rating", prompt: `{"id":"x","title":"t","content":"c","createdAt":1,"rating":"5"}`},
		{name: "metadata not an object", prompt: `{"id":"x","title":"t","content":"c","createdAt":1,"metadata":"gpt-4"}`},
		{name: "empty id", prompt: `{"id":"","title":"t","content":"c","createdAt":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `{"version":1,"prompts":[` + tt.prompt + `]}`

			analysis, payload, err := NewAnalyzer(newTestLibrary(t)).Analyze(context.Background(), []byte(input))
			require.NoError(t, err)
			require.True(t, analysis.Valid, analysis.Reason)
			assert.Equal(t, `1`, string(analysis.DeclaredVersion))
			require.Len(t, payload.Prompts, 1)
		})
	}
}

func TestApplyKeepsLooseRecordsIntact(t *testing.T) {
	input := `{"version":1,"prompts":[{"id":"x","title":"t","content":"c","createdAt":1700000000000.5,"rating":"5","metadata":"gpt-4","pinned":true}]}`
	lib := newTestLibrary(t)
	ctx := context.Background()

	analysis, payload, err := NewAnalyzer(lib).Analyze(ctx, []byte(input))
	require.NoError(t, err)
	require.True(t, analysis.Valid, analysis.Reason)

	res := NewImporter(lib).Apply(ctx, payload, ModeMergeSkip)
	require.True(t, res.Applied, res.Errors)

	raw, err := lib.RawPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.JSONEq(t, `{"id":"x","title":"t","content":"c","createdAt":1700000000000.5,"rating":"5","metadata":"gpt-4","pinned":true}`, string(raw[0]))
}

func TestAnalyzeDamagedLibrary(t *testing.T) {
	lib := newTestLibrary(t)
	stored := `[{"id":1},{"id":"a","title":"Old A","content":5}]`
	require.NoError(t, lib.Store().Put(context.Background(), library.PromptsKey, []byte(stored)))

	input := `{"version":1,"prompts":[{"id":"a","title":"t","content":"c","createdAt":1}]}`
	analysis, _, err := NewAnalyzer(lib).Analyze(context.Background(), []byte(input))
	require.NoError(t, err)
	require.True(t, analysis.Valid)
	assert.Equal(t, []Conflict{{ID: "a", ExistingTitle: "Old A", IncomingTitle: "t"}}, analysis.Conflicts)
	assert.Equal(t, []byte(stored), storedBytes(t, lib))
}

func TestApplyPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		payload *ExportFile
		mode    Mode
		wantErr string
	}{
		{name: "nil payload", payload: nil, mode: ModeMergeSkip, wantErr: "Invalid prompt data"},
		{name: "wrong version", payload: &ExportFile{Version: 2, Prompts: []models.Prompt{prompt("a", "")}}, mode: ModeMergeSkip, wantErr: "Unsupported version"},
		{name: "missing prompts", payload: &ExportFile{Version: 1}, mode: ModeReplace, wantErr: "Invalid prompt data"},
		{name: "unknown mode", payload: payloadOf(prompt("a", "")), mode: Mode("merge"), wantErr: `Unsupported import mode "merge"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := newTestLibrary(t, prompt("x", "X"))
			before := storedBytes(t, lib)

			res := NewImporter(lib).Apply(context.Background(), tt.payload, tt.mode)
			assert.False(t, res.Applied)
			assert.Equal(t, []string{tt.wantErr}, res.Errors)
			assert.Empty(t, res.BackupKey)

			assert.Equal(t, before, storedBytes(t, lib))
			backups, err := lib.Backups(context.Background())
			require.NoError(t, err)
			assert.Empty(t, backups)
		})
	}
}

func TestApplyReplaceRecoversDamagedLibrary(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	damaged := `[{"id":"a"},{"title":7}]`
	require.NoError(t, lib.Store().Put(ctx, library.PromptsKey, []byte(damaged)))

	res := NewImporter(lib).Apply(ctx, payloadOf(prompt("b", "B")), ModeReplace)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 1, res.Imported)

	prompts := storedPrompts(t, lib)
	require.Len(t, prompts, 1)
	assert.Equal(t, "b", prompts[0].ID)

	// The damaged records are kept in the backup.
	backup, err := lib.Backup(ctx, res.BackupKey)
	require.NoError(t, err)
	require.Len(t, backup.Prompts, 2)
	assert.JSONEq(t, `{"id":"a"}`, string(backup.Prompts[0]))
}

func TestApplyMergeKeepsDamagedRecords(t *testing.T) {
	tests := []struct {
		mode    Mode
		wantIDs []string
	}{
		{mode: ModeMergeSkip, wantIDs: []string{"a", "", "b"}},
		{mode: ModeMergeOverwrite, wantIDs: []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			lib := newTestLibrary(t)
			ctx := context.Background()
			require.NoError(t, lib.Store().Put(ctx, library.PromptsKey, []byte(`[{"id":"a","title":1},{"title":7}]`)))

			res := NewImporter(lib).Apply(ctx, payloadOf(prompt("a", "A"), prompt("b", "B")), tt.mode)
			require.True(t, res.Applied, res.Errors)
			assert.Equal(t, 1, res.Imported)

			raw, err := lib.RawPrompts(ctx)
			require.NoError(t, err)
			ids := make([]string, 0, len(raw))
			for _, r := range raw {
				var rec struct {
					ID string `json:"id"`
				}
				require.NoError(t, json.Unmarshal(r, &rec))
				ids = append(ids, rec.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.JSONEq(t, `{"title":7}`, string(raw[1]))

			if tt.mode == ModeMergeOverwrite {
				assert.Equal(t, 1, res.Overwritten)
				p, err := models.DecodePrompt(raw[0])
				require.NoError(t, err)
				assert.Equal(t, "A", p.Title)
			} else {
				assert.Equal(t, 1, res.Skipped)
				assert.JSONEq(t, `{"id":"a","title":1}`, string(raw[0]))
			}
		})
	}
}

func TestApplyAcceptsEmptyID(t *testing.T) {
	lib := newTestLibrary(t, prompt("x", "X"))

	res := NewImporter(lib).Apply(context.Background(), payloadOf(prompt("", "untitled")), ModeMergeSkip)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 1, res.Imported)

	prompts := storedPrompts(t, lib)
	require.Len(t, prompts, 2)
	assert.Equal(t, "", prompts[1].ID)
}

func TestApplyMergeOverwrite(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "Old"))

	res := NewImporter(lib).Apply(context.Background(), payloadOf(prompt("a", "New")), ModeMergeOverwrite)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Overwritten)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Duplicated)

	prompts := storedPrompts(t, lib)
	require.Len(t, prompts, 1)
	assert.Equal(t, "a", prompts[0].ID)
	assert.Equal(t, "New", prompts[0].Title)
}

func TestApplyMergeDuplicate(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "Old"))

	res := NewImporter(lib).Apply(context.Background(), payloadOf(prompt("a", "New")), ModeMergeDuplicate)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 1, res.Duplicated)
	assert.Equal(t, 0, res.Imported)

	prompts := storedPrompts(t, lib)
	require.Len(t, prompts, 2)
	assert.Equal(t, "a", prompts[0].ID)
	assert.Equal(t, "Old", prompts[0].Title)
	assert.Regexp(t, `^a-[0-9a-z]+-[0-9a-f]{4}$`, prompts[1].ID)
	assert.Equal(t, "New", prompts[1].Title)
}

func TestApplyMergeDuplicateRetriesTakenIDs(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "Old"), prompt("a-1", "Taken"))

	n := 0
	gen := func(base string, _ time.Time) string {
		n++
		return fmt.Sprintf("%s-%d", base, n)
	}

	res := NewImporter(lib, WithIDGenerator(gen)).Apply(context.Background(),
		payloadOf(prompt("a", "New"), prompt("a", "Newer")), ModeMergeDuplicate)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 2, res.Duplicated)

	ids := make([]string, 0)
	for _, p := range storedPrompts(t, lib) {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "a-1", "a-2", "a-3"}, ids)
}

func TestApplyMergeSkipIsIdempotent(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "A"))
	payload := payloadOf(prompt("a", "A2"), prompt("b", "B"), prompt("c", "C"))
	im := NewImporter(lib)

	first := im.Apply(context.Background(), payload, ModeMergeSkip)
	require.True(t, first.Applied, first.Errors)
	assert.Equal(t, 2, first.Imported)
	assert.Equal(t, 1, first.Skipped)
	afterOnce := storedBytes(t, lib)

	second := im.Apply(context.Background(), payload, ModeMergeSkip)
	require.True(t, second.Applied, second.Errors)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, afterOnce, storedBytes(t, lib))
}

func TestApplyReplace(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "A"), prompt("z", "Z"))

	res := NewImporter(lib).Apply(context.Background(),
		payloadOf(prompt("b", "B"), prompt("a", "A2")), ModeReplace)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 2, res.Imported)
	assert.Zero(t, res.Skipped+res.Overwritten+res.Duplicated)

	prompts := storedPrompts(t, lib)
	require.Len(t, prompts, 2)
	assert.Equal(t, "b", prompts[0].ID)
	assert.Equal(t, "a", prompts[1].ID)
	assert.Equal(t, "A2", prompts[1].Title)
}

func TestApplyReplaceCollapsesRepeatedIDs(t *testing.T) {
	lib := newTestLibrary(t)

	res := NewImporter(lib).Apply(context.Background(),
		payloadOf(prompt("a", "first"), prompt("b", "B"), prompt("a", "last")), ModeReplace)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 3, res.Imported)

	prompts := storedPrompts(t, lib)
	require.Len(t, prompts, 2)
	assert.Equal(t, "a", prompts[0].ID)
	assert.Equal(t, "last", prompts[0].Title)
	assert.Equal(t, "b", prompts[1].ID)
}

func TestRoundTripReplace(t *testing.T) {
	original := []models.Prompt{
		withModel(prompt("b", "B"), "claude"),
		prompt("a", "A"),
	}
	rating := 4.5
	original[1].Rating = &rating

	src := newTestLibrary(t, original...)
	f, err := NewExporter(src).Build(context.Background())
	require.NoError(t, err)
	data, err := Encode(f)
	require.NoError(t, err)

	dst := newTestLibrary(t, prompt("x", "X"))
	analysis, payload, err := NewAnalyzer(dst).Analyze(context.Background(), data)
	require.NoError(t, err)
	require.True(t, analysis.Valid, analysis.Reason)

	res := NewImporter(dst).Apply(context.Background(), payload, ModeReplace)
	require.True(t, res.Applied, res.Errors)
	assert.ElementsMatch(t, original, storedPrompts(t, dst))
}

func TestAccountingAndUniqueness(t *testing.T) {
	existing := []models.Prompt{prompt("a", "A"), prompt("b", "B")}
	incoming := []models.Prompt{
		prompt("a", "A2"), prompt("c", "C"), prompt("c", "C2"), prompt("b", "B2"), prompt("d", "D"),
	}

	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			lib := newTestLibrary(t, existing...)
			res := NewImporter(lib).Apply(context.Background(), payloadOf(incoming...), mode)
			require.True(t, res.Applied, res.Errors)

			if mode == ModeReplace {
				assert.Equal(t, len(incoming), res.Imported)
				assert.Zero(t, res.Skipped+res.Overwritten+res.Duplicated)
			} else {
				assert.Equal(t, len(incoming), res.Imported+res.Skipped+res.Overwritten+res.Duplicated)
			}

			seen := make(map[string]bool)
			for _, p := range storedPrompts(t, lib) {
				assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
				seen[p.ID] = true
			}
		})
	}
}

func TestApplyKeepsBackup(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "A"))
	ctx := context.Background()

	res := NewImporter(lib).Apply(ctx, payloadOf(prompt("b", "B")), ModeMergeSkip)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, library.BackupPrefix+"2024-03-01T12:30:45.123Z", res.BackupKey)

	b, err := lib.Backup(ctx, res.BackupKey)
	require.NoError(t, err)
	require.Len(t, b.Prompts, 1)
	assert.Contains(t, string(b.Prompts[0]), `"id":"a"`)
}

// failingStore fails every write of the prompt table once armed.
type failingStore struct {
	storage.Store
	armed bool
}

func (s *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if s.armed && key == library.PromptsKey {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, key, value)
}

func TestApplyRollsBackOnWriteFailure(t *testing.T) {
	store := &failingStore{Store: storage.NewMemoryStore()}
	lib := library.New(store, library.WithClock(func() time.Time { return testNow }))
	ctx := context.Background()
	require.NoError(t, lib.SavePrompts(ctx, []models.Prompt{prompt("a", "A")}))
	before := storedBytes(t, lib)

	store.armed = true
	res := NewImporter(lib).Apply(ctx, payloadOf(prompt("b", "B")), ModeMergeSkip)

	assert.False(t, res.Applied)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "disk full")
	assert.Zero(t, res.Imported)
	assert.NotEmpty(t, res.BackupKey)
	assert.Equal(t, before, storedBytes(t, lib))

	_, err := lib.Backup(ctx, res.BackupKey)
	assert.NoError(t, err)
}

func TestApplyRollsBackOnIDExhaustion(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "A"), prompt("a-x", "X"))
	before := storedBytes(t, lib)

	gen := func(base string, _ time.Time) string { return base + "-x" }
	res := NewImporter(lib, WithIDGenerator(gen)).Apply(context.Background(),
		payloadOf(prompt("a", "A2")), ModeMergeDuplicate)

	assert.False(t, res.Applied)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `could not derive an unused id for "a"`)
	assert.Zero(t, res.Duplicated)
	assert.Equal(t, before, storedBytes(t, lib))
}

func TestApplyRecoversFromPanic(t *testing.T) {
	lib := newTestLibrary(t, prompt("a", "A"))
	before := storedBytes(t, lib)

	gen := func(string, time.Time) string { panic("boom") }
	res := NewImporter(lib, WithIDGenerator(gen)).Apply(context.Background(),
		payloadOf(prompt("a", "A2")), ModeMergeDuplicate)

	assert.False(t, res.Applied)
	assert.Equal(t, []string{"import failed unexpectedly: boom"}, res.Errors)
	assert.Equal(t, before, storedBytes(t, lib))
}

type stubLocker struct {
	acquireErr error
	acquired   int
	released   int
}

func (l *stubLocker) Acquire() error {
	if l.acquireErr != nil {
		return l.acquireErr
	}
	l.acquired++
	return nil
}

func (l *stubLocker) Release() error {
	l.released++
	return nil
}

func TestApplyUsesLocker(t *testing.T) {
	lib := newTestLibrary(t)

	locker := &stubLocker{}
	res := NewImporter(lib, WithLocker(locker)).Apply(context.Background(), payloadOf(prompt("a", "A")), ModeMergeSkip)
	require.True(t, res.Applied, res.Errors)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)

	busy := &stubLocker{acquireErr: errors.New("library is locked")}
	res = NewImporter(lib, WithLocker(busy)).Apply(context.Background(), payloadOf(prompt("b", "B")), ModeMergeSkip)
	assert.False(t, res.Applied)
	assert.Equal(t, []string{"library is locked"}, res.Errors)
	assert.Equal(t, 0, busy.released)
}

func TestResultSummary(t *testing.T) {
	res := &Result{Imported: 3, Overwritten: 1, Skipped: 2, Duplicated: 0}
	assert.Equal(t, "Import complete: 3 added, 1 overwritten, 2 skipped, 0 duplicated.", res.Summary())
}
