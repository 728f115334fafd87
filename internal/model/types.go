// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLearnerName is used when a start request carries no learner name.
const DefaultLearnerName = "Guest"

// Mode selects between word and sentence prompts.
type Mode string

// Supported practice modes.
const (
	ModeWord     Mode = "word"
	ModeSentence Mode = "sentence"
)

// ParseMode normalizes and validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWord:
		return ModeWord, nil
	case ModeSentence:
		return ModeSentence, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeWord, ModeSentence)
	}
}

// Policy holds the scoring and listening constants of a session.
type Policy struct {
	MaxAttempts  int
	Threshold    float64
	ListenWindow time.Duration
	PollInterval time.Duration
}

// DefaultPolicy returns five attempts, a 0.70 acceptance threshold, a five
// second listening window and a 100ms buffer poll.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		Threshold:    0.70,
		ListenWindow: 5 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}
}

// Validate reports the first out-of-range policy value.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be > 0")
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1")
	}
	if p.ListenWindow <= 0 {
		return fmt.Errorf("listen window must be > 0")
	}
	if p.PollInterval <= 0 || p.PollInterval > p.ListenWindow {
		return fmt.Errorf("poll interval must be > 0 and <= listen window")
	}
	return nil
}

// Pacing holds the delays inserted after events so a remote client can render
// each one before the next arrives.
type Pacing struct {
	AfterPrompt    time.Duration
	AfterTimeout   time.Duration
	AfterCorrect   time.Duration
	AfterIncorrect time.Duration
	AfterFailed    time.Duration
}

// DefaultPacing returns the delays used by the web client.
func DefaultPacing() Pacing {
	return Pacing{
		AfterPrompt:    300 * time.Millisecond,
		AfterTimeout:   500 * time.Millisecond,
		AfterCorrect:   time.Second,
		AfterIncorrect: 800 * time.Millisecond,
		AfterFailed:    800 * time.Millisecond,
	}
}

// SessionRequest is a validated request to start a practice session.
type SessionRequest struct {
	LearnerName string
	Language    string
	Mode        Mode
}

// PromptOutcome is the terminal state of one prompt.
type PromptOutcome string

// Prompt outcomes.
const (
	PromptCleared PromptOutcome = "cleared"
	PromptFailed  PromptOutcome = "failed"
)

// PromptResult summarizes the attempts spent on one prompt.
type PromptResult struct {
	Prompt     string
	Outcome    PromptOutcome
	Attempts   int
	Similarity float64
	Spoken     string
}

// SessionResult is the persisted outcome of a completed session.
type SessionResult struct {
	LearnerName string
	Language    string
	Mode        Mode
	Score       int
	Total       int
	Timestamp   time.Time
}

// Accuracy returns Score/Total, or 0 for an empty session.
func (r SessionResult) Accuracy() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Score) / float64(r.Total)
}

// ResultRecord is a stored SessionResult with its row id.
type ResultRecord struct {
	ID int64
	SessionResult
}

// HistoryFilter narrows the results listed for one learner.
type HistoryFilter struct {
	LearnerName string
	Language    string
	Since       *time.Time
	Last        int
}
