// Package models holds the records persisted by the prompt library.
package models

import (
	"strings"

	"github.com/goccy/go-json"
)

// Prompt is a single stored prompt. CreatedAt is epoch milliseconds and may
// carry a fraction.
//
// Extra holds the fields of a decoded record that have no typed home: unknown
// keys, and a rating or metadata value of an unexpected type. They are written
// back unchanged, so a record survives a decode and encode cycle.
type Prompt struct {
	ID        string                     `json:"id"`
	Title     string                     `json:"title"`
	Content   string                     `json:"content"`
	CreatedAt float64                    `json:"createdAt"`
	Rating    *float64                   `json:"rating,omitempty"`
	Metadata  *Metadata                  `json:"metadata,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// Valid reports whether p can be added as a new prompt, which needs an id.
// Imported records only need the shape checked by CheckPromptShape.
func (p Prompt) Valid() bool {
	return p.ID != ""
}

// Model returns the trimmed model name from metadata, or "" when absent.
func (p Prompt) Model() string {
	if p.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(p.Metadata.Model)
}

// Note is a free-form note attached to a prompt.
type Note struct {
	ID        string `json:"id"`
	PromptID  string `json:"promptId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NotesMap maps a prompt id to its notes.
type NotesMap map[string][]Note
