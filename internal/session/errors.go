package session

import (
	"errors"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/dataset"
	"github.com/verte-zerg/sayit/internal/recognizer"
)

var (
	// ErrInvalidRequest marks bad or missing start parameters. It is raised
	// before any event is emitted.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrModelUnavailable marks a missing recognizer model.
	ErrModelUnavailable = recognizer.ErrModelUnavailable

	// ErrDatasetEmpty marks a language and mode with no prompts.
	ErrDatasetEmpty = dataset.ErrEmpty

	// ErrDeviceUnavailable marks a capture device that could not be opened.
	ErrDeviceUnavailable = capture.ErrDeviceUnavailable

	// ErrStreamDisconnected marks a failed event write. The session is
	// abandoned and nothing is persisted.
	ErrStreamDisconnected = errors.New("stream disconnected")

	// ErrPersistence marks a result that could not be saved. The session has
	// still completed.
	ErrPersistence = errors.New("failed to persist result")
)
