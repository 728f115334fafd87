package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// EventType names a progress event on the session stream.
type EventType string

// Event types, in the order a client typically sees them.
const (
	EventPrompt    EventType = "prompt"
	EventListening EventType = "listening"
	EventTimeout   EventType = "timeout"
	EventCorrect   EventType = "correct"
	EventIncorrect EventType = "incorrect"
	EventFailed    EventType = "failed"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// Event is one progress notification. Only the fields relevant to Type are
// serialized.
type Event struct {
	Type EventType

	Message string

	Index int
	Total int
	Text  string

	Attempt     int
	MaxAttempts int

	Spoken     string
	Expected   string
	Similarity float64

	Score int
}

// Terminal reports whether the event ends a stream.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// MarshalJSON encodes the wire form of the event. Similarity is rounded to
// two decimals.
func (e Event) MarshalJSON() ([]byte, error) {
	sim := math.Round(e.Similarity*100) / 100
	var v any
	switch e.Type {
	case EventError:
		v = struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message}
	case EventPrompt:
		v = struct {
			Type  EventType `json:"type"`
			Index int       `json:"index"`
			Total int       `json:"total"`
			Text  string    `json:"text"`
		}{e.Type, e.Index, e.Total, e.Text}
	case EventListening:
		v = struct {
			Type        EventType `json:"type"`
			Attempt     int       `json:"attempt"`
			MaxAttempts int       `json:"max_attempts"`
		}{e.Type, e.Attempt, e.MaxAttempts}
	case EventTimeout:
		v = struct {
			Type    EventType `json:"type"`
			Attempt int       `json:"attempt"`
		}{e.Type, e.Attempt}
	case EventCorrect:
		v = struct {
			Type       EventType `json:"type"`
			Spoken     string    `json:"spoken"`
			Expected   string    `json:"expected"`
			Similarity float64   `json:"similarity"`
		}{e.Type, e.Spoken, e.Expected, sim}
	case EventIncorrect:
		v = struct {
			Type        EventType `json:"type"`
			Spoken      string    `json:"spoken"`
			Expected    string    `json:"expected"`
			Similarity  float64   `json:"similarity"`
			Attempt     int       `json:"attempt"`
			MaxAttempts int       `json:"max_attempts"`
		}{e.Type, e.Spoken, e.Expected, sim, e.Attempt, e.MaxAttempts}
	case EventFailed:
		v = struct {
			Type EventType `json:"type"`
			Text string    `json:"text"`
		}{e.Type, e.Text}
	case EventComplete:
		v = struct {
			Type  EventType `json:"type"`
			Score int       `json:"score"`
			Total int       `json:"total"`
		}{e.Type, e.Score, e.Total}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return json.Marshal(v)
}

// Emitter delivers events to a client in order. A returned error means the
// client is gone.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev Event) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
