// Package session runs guided pronunciation practice: it presents prompts,
// listens for the learner's utterance, scores it and streams progress events.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/framebuf"
	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/observe"
	"github.com/verte-zerg/sayit/internal/recognizer"
	"github.com/verte-zerg/sayit/internal/similarity"
)

// PromptSource supplies the prompts for one session.
type PromptSource interface {
	Load(lang string, mode model.Mode) ([]string, error)
}

// ResultSink persists completed sessions.
type ResultSink interface {
	SaveResult(ctx context.Context, res model.SessionResult) error
}

// Scorer rates spoken text against the expected prompt in [0, 1].
type Scorer func(expected, spoken string) float64

// Config wires an Engine to its collaborators. Recognizers, Capture, Prompts
// and Results are required.
type Config struct {
	Recognizers recognizer.Factory
	Capture     capture.Source
	Prompts     PromptSource
	Results     ResultSink

	Policy model.Policy
	Pacing model.Pacing

	Logger  *log.Logger
	Metrics *observe.Metrics
	Score   Scorer
	Now     func() time.Time
}

// Engine runs practice sessions. It is safe for concurrent use; each Run owns
// its own frame buffer and capture device.
type Engine struct {
	recognizers recognizer.Factory
	capture     capture.Source
	prompts     PromptSource
	results     ResultSink
	policy      model.Policy
	pacing      model.Pacing
	logger      *log.Logger
	metrics     *observe.Metrics
	score       Scorer
	now         func() time.Time
}

// New validates cfg and fills defaults for the optional fields.
func New(cfg Config) (*Engine, error) {
	if cfg.Recognizers == nil || cfg.Capture == nil || cfg.Prompts == nil || cfg.Results == nil {
		return nil, errors.New("session engine requires recognizers, capture, prompts and results")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	e := &Engine{
		recognizers: cfg.Recognizers,
		capture:     cfg.Capture,
		prompts:     cfg.Prompts,
		results:     cfg.Results,
		policy:      cfg.Policy,
		pacing:      cfg.Pacing,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		score:       cfg.Score,
		now:         cfg.Now,
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if e.metrics == nil {
		e.metrics = observe.Discard()
	}
	if e.score == nil {
		e.score = similarity.Ratio
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// Policy returns the scoring policy sessions run with.
func (e *Engine) Policy() model.Policy {
	return e.policy
}

// Validate turns raw start parameters into a SessionRequest. An empty learner
// name becomes DefaultLearnerName. Errors wrap ErrInvalidRequest.
func (e *Engine) Validate(learner, lang, mode string) (model.SessionRequest, error) {
	learner = strings.TrimSpace(learner)
	if learner == "" {
		learner = model.DefaultLearnerName
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return model.SessionRequest{}, fmt.Errorf("%w: language is required", ErrInvalidRequest)
	}
	if !slices.Contains(e.recognizers.Languages(), lang) {
		return model.SessionRequest{}, fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, lang)
	}
	if strings.TrimSpace(mode) == "" {
		return model.SessionRequest{}, fmt.Errorf("%w: mode is required", ErrInvalidRequest)
	}
	m, err := model.ParseMode(mode)
	if err != nil {
		return model.SessionRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return model.SessionRequest{LearnerName: learner, Language: lang, Mode: m}, nil
}

// run is the state of a single session.
type run struct {
	engine *Engine
	req    model.SessionRequest
	emit   Emitter
	buf    *framebuf.Buffer
	log    *log.Logger
}

// Run executes one session and streams its events to emit. The stream ends
// with exactly one complete or error event unless the client disconnects,
// in which case Run returns ErrStreamDisconnected and nothing is persisted.
// A save failure still emits complete and returns an error wrapping
// ErrPersistence alongside the result.
func (e *Engine) Run(ctx context.Context, req model.SessionRequest, emit Emitter) (model.SessionResult, error) {
	r := &run{
		engine: e,
		req:    req,
		emit:   emit,
		buf:    framebuf.New(),
		log: e.logger.With(
			"session", uuid.NewString(),
			"learner", req.LearnerName,
			"lang", req.Language,
			"mode", req.Mode,
		),
	}
	r.log.Info("session started")

	res, err := r.execute(ctx)
	status := "complete"
	switch {
	case err == nil:
		r.log.Info("session complete", "score", res.Score, "total", res.Total)
	case errors.Is(err, ErrPersistence):
		r.log.Error("session complete but not saved", "score", res.Score, "total", res.Total, "err", err)
	case errors.Is(err, ErrStreamDisconnected), ctx.Err() != nil:
		status = "abandoned"
		r.log.Warn("session abandoned", "err", err)
	default:
		status = "error"
		r.log.Error("session failed", "err", err)
		// Best-effort: the client may already be gone.
		_ = emit.Emit(ctx, Event{Type: EventError, Message: err.Error()})
	}
	e.metrics.SessionsFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	return res, err
}

func (r *run) execute(ctx context.Context) (model.SessionResult, error) {
	e := r.engine
	if err := e.recognizers.Prepare(r.req.Language); err != nil {
		return model.SessionResult{}, err
	}
	prompts, err := e.prompts.Load(r.req.Language, r.req.Mode)
	if err != nil {
		return model.SessionResult{}, err
	}
	if len(prompts) == 0 {
		return model.SessionResult{}, fmt.Errorf("%w: %s %s", ErrDatasetEmpty, r.req.Language, r.req.Mode)
	}

	device, err := e.capture.Open()
	if err != nil {
		return model.SessionResult{}, err
	}
	stop := func() {
		if err := device.Stop(); err != nil {
			r.log.Warn("failed to stop capture device", "err", err)
		}
	}
	defer stop()
	if err := device.Start(r.buf.Push); err != nil {
		return model.SessionResult{}, err
	}
	e.metrics.ActiveSessions.Add(ctx, 1)
	defer e.metrics.ActiveSessions.Add(context.WithoutCancel(ctx), -1)

	total := len(prompts)
	score := 0
	for i, prompt := range prompts {
		if err := r.send(ctx, Event{Type: EventPrompt, Index: i + 1, Total: total, Text: prompt}); err != nil {
			return model.SessionResult{}, err
		}
		if err := r.pause(ctx, e.pacing.AfterPrompt); err != nil {
			return model.SessionResult{}, err
		}
		pr, err := r.runPrompt(ctx, prompt)
		if err != nil {
			return model.SessionResult{}, err
		}
		if pr.Outcome == model.PromptCleared {
			score++
		}
	}
	stop()

	res := model.SessionResult{
		LearnerName: r.req.LearnerName,
		Language:    r.req.Language,
		Mode:        r.req.Mode,
		Score:       score,
		Total:       total,
		Timestamp:   e.now(),
	}
	var persistErr error
	if err := e.results.SaveResult(ctx, res); err != nil {
		persistErr = fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := r.send(ctx, Event{Type: EventComplete, Score: score, Total: total}); err != nil {
		return res, err
	}
	return res, persistErr
}

// send emits ev and maps a write failure to ErrStreamDisconnected.
func (r *run) send(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamDisconnected, err)
	}
	if err := r.emit.Emit(ctx, ev); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamDisconnected, err)
	}
	return nil
}
