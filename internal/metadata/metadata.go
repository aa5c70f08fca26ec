// Package metadata builds and maintains prompt metadata: the model a prompt
// targets, its token estimate and its ISO-8601 timestamps.
package metadata

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/pders01/prompt-library/internal/models"
)

// ISOLayout is the timestamp layout used in metadata and export files.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// MaxModelLength is the longest model name accepted after trimming.
const MaxModelLength = 100

const codeFactor = 1.3

var isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

var (
	ErrEmptyModel      = errors.New("model name must be a non-empty string")
	ErrModelTooLong    = fmt.Errorf("model name must be at most %d characters", MaxModelLength)
	ErrClockSkew       = errors.New("updatedAt must be greater than or equal to createdAt")
	ErrMissingMetadata = errors.New("metadata must be provided")
)

// ISO formats t as a UTC ISO-8601 string with millisecond precision.
func ISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO validates and parses a timestamp produced by ISO.
func ParseISO(value, field string) (time.Time, error) {
	if !isoPattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("%s must be a valid ISO 8601 string (YYYY-MM-DDTHH:mm:ss.sssZ)", field)
	}
	t, err := time.Parse(ISOLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s is not a parseable date: %w", field, err)
	}
	return t, nil
}

// EstimateTokens returns a token range for text. The lower bound counts
// words, the upper bound counts UTF-16 code units; code is weighted up.
func EstimateTokens(text string, isCode bool) models.TokenEstimate {
	words := float64(len(strings.Fields(text)))
	chars := float64(len(utf16.Encode([]rune(text))))

	lo := 0.75 * words
	hi := 0.25 * chars
	if isCode {
		lo *= codeFactor
		hi *= codeFactor
	}

	minTokens := max(0, int(math.Floor(lo)))
	maxTokens := max(minTokens, int(math.Ceil(hi)))

	confidence := models.ConfidenceLow
	switch {
	case maxTokens < 1000:
		confidence = models.ConfidenceHigh
	case maxTokens <= 5000:
		confidence = models.ConfidenceMedium
	}

	return models.TokenEstimate{
		Min:        minTokens,
		Max:        maxTokens,
		Confidence: confidence,
	}
}

// Track creates metadata for a new prompt written for model.
func Track(model, content string, now time.Time) (*models.Metadata, error) {
	trimmed := strings.TrimSpace(model)
	if trimmed == "" {
		return nil, ErrEmptyModel
	}
	if len([]rune(trimmed)) > MaxModelLength {
		return nil, ErrModelTooLong
	}

	ts := ISO(now)
	return &models.Metadata{
		Model:         trimmed,
		CreatedAt:     ts,
		UpdatedAt:     ts,
		TokenEstimate: EstimateTokens(content, false),
	}, nil
}

// Touch returns a copy of meta with UpdatedAt set to now.
func Touch(meta *models.Metadata, now time.Time) (*models.Metadata, error) {
	if meta == nil {
		return nil, ErrMissingMetadata
	}
	created, err := ParseISO(meta.CreatedAt, "createdAt")
	if err != nil {
		return nil, err
	}
	if now.Before(created) {
		return nil, ErrClockSkew
	}

	next := *meta
	next.UpdatedAt = ISO(now)
	return &next, nil
}

// FormatHuman renders an ISO timestamp for display, falling back to the
// input when it does not parse.
func FormatHuman(value string) string {
	t, err := ParseISO(value, "date")
	if err != nil {
		return value
	}
	return t.Local().Format("Jan 02, 2006, 15:04")
}
