// Package recognizer adapts a speech-recognition engine to the per-attempt
// utterance interface used by practice sessions.
package recognizer

import "errors"

// ErrModelUnavailable is returned when no recognizer model is installed for a
// language.
var ErrModelUnavailable = errors.New("recognizer model unavailable")

// Recognizer consumes audio frames for a single listening window.
type Recognizer interface {
	// Feed accepts one frame. final is true when an utterance boundary was
	// detected; text is the trimmed transcript and may be empty.
	Feed(frame []byte) (final bool, text string)
	// Close releases engine resources. It is safe to call more than once.
	Close()
}

// Factory produces a fresh Recognizer for every listening attempt so that
// boundary-detection state never carries over between attempts.
type Factory interface {
	// Languages lists the configured language codes in sorted order.
	Languages() []string
	// Prepare loads lang's model, failing with ErrModelUnavailable when it
	// is missing or cannot be loaded.
	Prepare(lang string) error
	// NewRecognizer returns a new instance bound to lang's model.
	NewRecognizer(lang string) (Recognizer, error)
}
