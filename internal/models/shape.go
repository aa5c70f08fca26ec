package models

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrInvalidShape is returned when a raw record is not a prompt.
var ErrInvalidShape = errors.New("invalid prompt shape")

// CheckPromptShape verifies that raw is a JSON object whose id, title and
// content are strings and whose createdAt is a number. Other fields are not
// checked.
func CheckPromptShape(raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidShape)
	}
	rec := gjson.ParseBytes(raw)
	if !rec.IsObject() {
		return fmt.Errorf("%w: not an object", ErrInvalidShape)
	}

	for _, field := range []string{"id", "title", "content"} {
		if rec.Get(field).Type != gjson.String {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidShape, field)
		}
	}
	if rec.Get("createdAt").Type != gjson.Number {
		return fmt.Errorf("%w: createdAt must be a number", ErrInvalidShape)
	}
	return nil
}

// DecodePrompt checks the shape of raw and decodes it. Optional fields of an
// unexpected type are kept in Prompt.Extra.
func DecodePrompt(raw []byte) (Prompt, error) {
	var p Prompt
	if err := CheckPromptShape(raw); err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}
	return p, nil
}
