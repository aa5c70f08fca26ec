package exchange

import (
	"context"
	"math"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/pders01/prompt-library/internal/library"
	"github.com/pders01/prompt-library/internal/models"
)

// Rejection reasons reported by Analyze.
const (
	ReasonInvalidJSON    = "Invalid JSON"
	ReasonInvalidPayload = "Invalid payload"
	ReasonNoPrompts      = "No prompts to import"
	ReasonInvalidPrompts = "One or more prompts are invalid"
)

// Analyzer inspects import files against a library without changing it.
type Analyzer struct {
	lib *library.Library
}

// NewAnalyzer creates an Analyzer for lib.
func NewAnalyzer(lib *library.Library) *Analyzer {
	return &Analyzer{lib: lib}
}

// Analyze validates data as an export file and diffs it against the stored
// prompts. Malformed input yields an invalid Analysis, never an error; the
// error is reserved for failures reading the library. The decoded payload is
// returned only when the analysis is valid.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (*Analysis, *ExportFile, error) {
	if !gjson.ValidBytes(data) {
		return reject(ReasonInvalidJSON), nil, nil
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return reject(ReasonInvalidPayload), nil, nil
	}

	version := root.Get("version")
	if version.Type != gjson.Number || version.Num != CurrentVersion {
		analysis := reject("Unsupported version " + describe(version))
		if version.Exists() {
			analysis.DeclaredVersion = json.RawMessage(version.Raw)
		}
		if version.Type == gjson.Number && version.Num == math.Trunc(version.Num) {
			v := int(version.Num)
			analysis.Version = &v
		}
		return analysis, nil, nil
	}

	rawPrompts := root.Get("prompts")
	if !rawPrompts.IsArray() || len(rawPrompts.Array()) == 0 {
		return reject(ReasonNoPrompts), nil, nil
	}

	elems := rawPrompts.Array()
	prompts := make([]models.Prompt, 0, len(elems))
	for _, elem := range elems {
		p, err := models.DecodePrompt([]byte(elem.Raw))
		if err != nil {
			return reject(ReasonInvalidPrompts), nil, nil
		}
		prompts = append(prompts, p)
	}

	seen := make(map[string]struct{}, len(prompts))
	duplicates := []string{}
	for _, p := range prompts {
		if _, ok := seen[p.ID]; ok {
			duplicates = append(duplicates, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	// Stored records are read without the shape check, so a damaged
	// library can still be replaced by a good file.
	existing, err := a.lib.RawPrompts(ctx)
	if err != nil {
		return nil, nil, err
	}
	titles := make(map[string]string, len(existing))
	for _, rec := range existing {
		id := gjson.GetBytes(rec, "id")
		if id.Type == gjson.String {
			titles[id.Str] = gjson.GetBytes(rec, "title").String()
		}
	}

	conflicts := []Conflict{}
	for _, p := range prompts {
		if title, ok := titles[p.ID]; ok {
			conflicts = append(conflicts, Conflict{
				ID:            p.ID,
				ExistingTitle: title,
				IncomingTitle: p.Title,
			})
		}
	}

	v := CurrentVersion
	analysis := &Analysis{
		Valid:                 true,
		Version:               &v,
		DeclaredVersion:       json.RawMessage(version.Raw),
		HasInternalDuplicates: len(duplicates) > 0,
		DuplicateIDs:          duplicates,
		Conflicts:             conflicts,
		ImportedCount:         len(prompts),
	}
	payload := &ExportFile{
		Version:    CurrentVersion,
		ExportedAt: root.Get("exportedAt").String(),
		Stats:      statsOf(root.Get("stats")),
		Prompts:    prompts,
	}
	return analysis, payload, nil
}

func reject(reason string) *Analysis {
	return &Analysis{Reason: reason}
}

// describe renders a version value for a rejection reason. Strings appear
// without quotes and an absent field reads as undefined.
func describe(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		if !v.Exists() {
			return "undefined"
		}
		return "null"
	case gjson.String:
		return v.Str
	case gjson.Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return v.Raw
	}
}

// statsOf reads the advisory stats block of an incoming file. Missing or
// mistyped fields read as zero.
func statsOf(v gjson.Result) Stats {
	var s Stats
	if !v.IsObject() {
		return s
	}
	if n := v.Get("totalPrompts"); n.Type == gjson.Number {
		s.TotalPrompts = int(n.Int())
	}
	if n := v.Get("averageRating"); n.Type == gjson.Number {
		s.AverageRating = n.Num
	}
	if m := v.Get("mostUsedModel"); m.Type == gjson.String {
		model := m.Str
		s.MostUsedModel = &model
	}
	return s
}
