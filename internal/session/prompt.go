package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/recognizer"
)

// runPrompt drives one prompt through up to MaxAttempts listening windows.
// A similarity at or above the threshold clears the prompt.
func (r *run) runPrompt(ctx context.Context, prompt string) (model.PromptResult, error) {
	policy := r.engine.policy
	res := model.PromptResult{Prompt: prompt, Outcome: model.PromptFailed}
	newRecognizer := func() (recognizer.Recognizer, error) {
		return r.engine.recognizers.NewRecognizer(r.req.Language)
	}

	for n := 1; n <= policy.MaxAttempts; n++ {
		res.Attempts = n
		if err := r.send(ctx, Event{Type: EventListening, Attempt: n, MaxAttempts: policy.MaxAttempts}); err != nil {
			return res, err
		}

		att, err := listen(ctx, r.buf, newRecognizer, policy, n)
		if err != nil {
			return res, err
		}

		if att.Outcome == AttemptTimedOut {
			r.countAttempt(ctx, "timeout")
			r.log.Debug("attempt timed out", "prompt", prompt, "attempt", n)
			if err := r.send(ctx, Event{Type: EventTimeout, Attempt: n}); err != nil {
				return res, err
			}
			if err := r.pause(ctx, r.engine.pacing.AfterTimeout); err != nil {
				return res, err
			}
			continue
		}

		sim := r.engine.score(prompt, att.Text)
		res.Similarity = sim
		res.Spoken = att.Text
		r.engine.metrics.RecognitionLatency.Record(ctx, att.Elapsed.Seconds())
		r.engine.metrics.Similarity.Record(ctx, sim)

		if sim >= policy.Threshold {
			res.Outcome = model.PromptCleared
			r.countAttempt(ctx, "correct")
			r.log.Debug("prompt cleared", "prompt", prompt, "spoken", att.Text, "similarity", sim, "attempt", n)
			if err := r.send(ctx, Event{Type: EventCorrect, Spoken: att.Text, Expected: prompt, Similarity: sim}); err != nil {
				return res, err
			}
			if err := r.pause(ctx, r.engine.pacing.AfterCorrect); err != nil {
				return res, err
			}
			r.countPrompt(ctx, res.Outcome)
			return res, nil
		}

		r.countAttempt(ctx, "incorrect")
		r.log.Debug("attempt incorrect", "prompt", prompt, "spoken", att.Text, "similarity", sim, "attempt", n)
		ev := Event{
			Type:        EventIncorrect,
			Spoken:      att.Text,
			Expected:    prompt,
			Similarity:  sim,
			Attempt:     n,
			MaxAttempts: policy.MaxAttempts,
		}
		if err := r.send(ctx, ev); err != nil {
			return res, err
		}
		if err := r.pause(ctx, r.engine.pacing.AfterIncorrect); err != nil {
			return res, err
		}
	}

	if err := r.send(ctx, Event{Type: EventFailed, Text: prompt}); err != nil {
		return res, err
	}
	if err := r.pause(ctx, r.engine.pacing.AfterFailed); err != nil {
		return res, err
	}
	r.countPrompt(ctx, res.Outcome)
	return res, nil
}

func (r *run) countAttempt(ctx context.Context, outcome string) {
	r.engine.metrics.Attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (r *run) countPrompt(ctx context.Context, outcome model.PromptOutcome) {
	r.engine.metrics.Prompts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

// pause sleeps for d unless ctx ends first.
func (r *run) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
