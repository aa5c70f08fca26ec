// Package exchange exports the prompt library to a versioned JSON file and
// reconciles such files back into it.
package exchange

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/pders01/prompt-library/internal/models"
)

// CurrentVersion is the only export format version this package reads and writes.
const CurrentVersion = 1

// Mode selects how an import treats incoming prompts whose id already exists.
type Mode string

const (
	ModeReplace        Mode = "replace"
	ModeMergeSkip      Mode = "merge-skip"
	ModeMergeOverwrite Mode = "merge-overwrite"
	ModeMergeDuplicate Mode = "merge-duplicate"
)

// Modes lists every import mode.
var Modes = []Mode{ModeReplace, ModeMergeSkip, ModeMergeOverwrite, ModeMergeDuplicate}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMode converts a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		names := make([]string, len(Modes))
		for i, known := range Modes {
			names[i] = string(known)
		}
		return "", fmt.Errorf("unknown import mode %q (expected one of %s)", s, strings.Join(names, ", "))
	}
	return m, nil
}

// Stats summarizes the exported collection.
type Stats struct {
	TotalPrompts  int     `json:"totalPrompts"`
	AverageRating float64 `json:"averageRating"`
	MostUsedModel *string `json:"mostUsedModel"`
}

// ExportFile is the wire format of an export.
type ExportFile struct {
	Version    int             `json:"version"`
	ExportedAt string          `json:"exportedAt"`
	Stats      Stats           `json:"stats"`
	Prompts    []models.Prompt `json:"prompts"`
}

// Conflict pairs an incoming prompt with the stored prompt of the same id.
type Conflict struct {
	ID            string `json:"id"`
	ExistingTitle string `json:"existingTitle"`
	IncomingTitle string `json:"incomingTitle"`
}

// Analysis is the read-only verdict on an import file. When Valid is false
// Reason says why and the remaining fields are unset.
//
// Version is the declared version when it is an integer. DeclaredVersion is
// the version field exactly as written, whatever its type.
type Analysis struct {
	Valid                 bool            `json:"valid"`
	Reason                string          `json:"reason,omitempty"`
	Version               *int            `json:"version,omitempty"`
	DeclaredVersion       json.RawMessage `json:"declaredVersion,omitempty"`
	HasInternalDuplicates bool            `json:"hasInternalDuplicates"`
	DuplicateIDs          []string        `json:"duplicateIds"`
	Conflicts             []Conflict      `json:"conflicts"`
	ImportedCount         int             `json:"importedCount"`
}

// Result reports the outcome of an import.
type Result struct {
	Applied     bool     `json:"applied"`
	Mode        Mode     `json:"mode"`
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Overwritten int      `json:"overwritten"`
	Duplicated  int      `json:"duplicated"`
	Errors      []string `json:"errors"`
	BackupKey   string   `json:"backupKey,omitempty"`
}

// Summary renders the one-line outcome shown after a successful import.
func (r *Result) Summary() string {
	return fmt.Sprintf("Import complete: %d added, %d overwritten, %d skipped, %d duplicated.",
		r.Imported, r.Overwritten, r.Skipped, r.Duplicated)
}
