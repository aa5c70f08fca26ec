package exchange

import (
	"context"
	"errors"
	"fmt"
)

// State is a step of an import session.
type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateRejected
	StateAwaitingStrategy
	StateApplying
	StateApplied
	StateRolledBack
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateAnalyzing:        "analyzing",
	StateRejected:         "rejected",
	StateAwaitingStrategy: "awaiting-strategy",
	StateApplying:         "applying",
	StateApplied:          "applied",
	StateRolledBack:       "rolled-back",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the session has finished with a file.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateApplied || s == StateRolledBack
}

// ErrInvalidTransition is returned when an operation does not fit the
// session's current state.
var ErrInvalidTransition = errors.New("invalid import session transition")

// Session walks one file at a time through analysis and apply.
type Session struct {
	analyzer *Analyzer
	importer *Importer

	state    State
	analysis *Analysis
	payload  *ExportFile
	result   *Result
}

// NewSession creates an idle session.
func NewSession(analyzer *Analyzer, importer *Importer) *Session {
	return &Session{analyzer: analyzer, importer: importer}
}

func (s *Session) State() State         { return s.state }
func (s *Session) Analysis() *Analysis  { return s.analysis }
func (s *Session) Payload() *ExportFile { return s.payload }
func (s *Session) Result() *Result      { return s.result }

// Analyze starts a new file. It is allowed when idle or after a previous
// file finished. A storage error returns the session to idle.
func (s *Session) Analyze(ctx context.Context, data []byte) (*Analysis, error) {
	if s.state != StateIdle && !s.state.Terminal() {
		return nil, fmt.Errorf("%w: analyze while %s", ErrInvalidTransition, s.state)
	}

	s.Reset()
	s.state = StateAnalyzing

	analysis, payload, err := s.analyzer.Analyze(ctx, data)
	if err != nil {
		s.state = StateIdle
		return nil, err
	}

	s.analysis = analysis
	if !analysis.Valid {
		s.state = StateRejected
		return analysis, nil
	}
	s.payload = payload
	s.state = StateAwaitingStrategy
	return analysis, nil
}

// SuggestedMode proposes merge-overwrite when the analyzed file conflicts
// with stored prompts and merge-skip otherwise.
func (s *Session) SuggestedMode() Mode {
	if s.analysis != nil && len(s.analysis.Conflicts) > 0 {
		return ModeMergeOverwrite
	}
	return ModeMergeSkip
}

// Apply imports the analyzed file with mode.
func (s *Session) Apply(ctx context.Context, mode Mode) (*Result, error) {
	if s.state != StateAwaitingStrategy {
		return nil, fmt.Errorf("%w: apply while %s", ErrInvalidTransition, s.state)
	}

	s.state = StateApplying
	s.result = s.importer.Apply(ctx, s.payload, mode)
	if s.result.Applied {
		s.state = StateApplied
	} else {
		s.state = StateRolledBack
	}
	return s.result, nil
}

// Reset discards the current file and returns to idle.
func (s *Session) Reset() {
	s.state = StateIdle
	s.analysis = nil
	s.payload = nil
	s.result = nil
}
