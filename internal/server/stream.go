package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/verte-zerg/sayit/internal/session"
)

const (
	contentTypeNDJSON = "application/x-ndjson"
	contentTypeSSE    = "text/event-stream"
)

var errNoFlusher = errors.New("response writer does not support flushing")

// streamEmitter writes session events to an HTTP response as they happen,
// either one JSON object per line or as SSE data frames.
type streamEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	sse     bool
}

func wantsSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), contentTypeSSE)
}

func newStreamEmitter(w http.ResponseWriter, sse bool) (*streamEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errNoFlusher
	}
	h := w.Header()
	if sse {
		h.Set("Content-Type", contentTypeSSE)
	} else {
		h.Set("Content-Type", contentTypeNDJSON)
	}
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &streamEmitter{w: w, flusher: flusher, sse: sse}, nil
}

// Emit implements session.Emitter.
func (s *streamEmitter) Emit(ctx context.Context, ev session.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if s.sse {
		_, err = fmt.Fprintf(s.w, "data: %s\n\n", data)
	} else {
		_, err = fmt.Fprintf(s.w, "%s\n", data)
	}
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
