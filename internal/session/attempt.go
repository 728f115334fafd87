package session

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/sayit/internal/framebuf"
	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/recognizer"
)

// AttemptOutcome is the terminal state of one listening window.
type AttemptOutcome int

// Attempt outcomes.
const (
	AttemptTimedOut AttemptOutcome = iota
	AttemptRecognized
)

func (o AttemptOutcome) String() string {
	if o == AttemptRecognized {
		return "recognized"
	}
	return "timed_out"
}

// Attempt is the result of one listening window.
type Attempt struct {
	Number  int
	Outcome AttemptOutcome
	Text    string
	Elapsed time.Duration
}

// listen runs one listening window: it drops stale frames, starts a fresh
// recognizer and feeds it frames until a non-empty utterance is recognized or
// the window closes. Only recognizer creation and ctx cancellation fail.
func listen(ctx context.Context, buf *framebuf.Buffer, newRecognizer func() (recognizer.Recognizer, error), policy model.Policy, number int) (Attempt, error) {
	buf.Drain()
	rec, err := newRecognizer()
	if err != nil {
		return Attempt{}, fmt.Errorf("failed to start recognizer: %w", err)
	}
	defer rec.Close()

	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed >= policy.ListenWindow {
			return Attempt{Number: number, Outcome: AttemptTimedOut, Elapsed: elapsed}, nil
		}
		if err := ctx.Err(); err != nil {
			return Attempt{}, err
		}
		wait := policy.PollInterval
		if remaining := policy.ListenWindow - elapsed; remaining < wait {
			wait = remaining
		}
		frame, ok := buf.Pop(ctx, wait)
		if !ok {
			continue
		}
		if final, text := rec.Feed(frame); final && text != "" {
			return Attempt{
				Number:  number,
				Outcome: AttemptRecognized,
				Text:    text,
				Elapsed: time.Since(start),
			}, nil
		}
	}
}
