package session

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/framebuf"
	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/recognizer"
)

var testNow = time.Date(2025, 3, 1, 10, 30, 0, 0, time.Local)

type harness struct {
	factory *fakeFactory
	source  *fakeSource
	results *fakeResults
	rec     *recorder
	engine  *Engine
}

func newHarness(t *testing.T, prompts []string, script []string, opts ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		factory: &fakeFactory{langs: []string{"en", "hi"}, script: script},
		source:  &fakeSource{},
		results: &fakeResults{},
		rec:     &recorder{},
	}
	cfg := Config{
		Recognizers: h.factory,
		Capture:     h.source,
		Prompts:     fakePrompts{prompts: prompts},
		Results:     h.results,
		Policy: model.Policy{
			MaxAttempts:  5,
			Threshold:    0.70,
			ListenWindow: 20 * time.Millisecond,
			PollInterval: 2 * time.Millisecond,
		},
		Now: func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = e
	return h
}

func (h *harness) run(t *testing.T) (model.SessionResult, error) {
	t.Helper()
	req := model.SessionRequest{LearnerName: "Asha", Language: "en", Mode: model.ModeWord}
	return h.engine.Run(context.Background(), req, h.rec)
}

func expectTypes(t *testing.T, got []EventType, want ...EventType) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected events:\n got %v\nwant %v", got, want)
	}
}

func TestRunClearsPromptOnFirstAttempt(t *testing.T) {
	h := newHarness(t, []string{"hello"}, []string{"hello"})
	res, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectTypes(t, h.rec.types(), EventPrompt, EventListening, EventCorrect, EventComplete)

	prompt := h.rec.events[0]
	if prompt.Index != 1 || prompt.Total != 1 || prompt.Text != "hello" {
		t.Fatalf("unexpected prompt event: %+v", prompt)
	}
	correct := h.rec.events[2]
	if correct.Similarity != 1 || correct.Spoken != "hello" || correct.Expected != "hello" {
		t.Fatalf("unexpected correct event: %+v", correct)
	}
	if res.Score != 1 || res.Total != 1 {
		t.Fatalf("expected 1/1, got %d/%d", res.Score, res.Total)
	}
	if len(h.results.saved) != 1 {
		t.Fatalf("expected one saved result, got %d", len(h.results.saved))
	}
	saved := h.results.saved[0]
	if saved.LearnerName != "Asha" || saved.Language != "en" || saved.Mode != model.ModeWord || !saved.Timestamp.Equal(testNow) {
		t.Fatalf("unexpected saved result: %+v", saved)
	}
	if h.source.stops() != 1 {
		t.Fatalf("expected device stopped once, got %d", h.source.stops())
	}
}

func TestRunFailsPromptAfterTimeouts(t *testing.T) {
	h := newHarness(t, []string{"water"}, nil)
	res, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []EventType{EventPrompt}
	for range 5 {
		want = append(want, EventListening, EventTimeout)
	}
	want = append(want, EventFailed, EventComplete)
	expectTypes(t, h.rec.types(), want...)

	for i := 1; i <= 5; i++ {
		listening := h.rec.events[2*i-1]
		timeout := h.rec.events[2*i]
		if listening.Attempt != i || listening.MaxAttempts != 5 || timeout.Attempt != i {
			t.Fatalf("attempt %d: unexpected events %+v %+v", i, listening, timeout)
		}
	}
	if failed := h.rec.events[11]; failed.Text != "water" {
		t.Fatalf("unexpected failed event: %+v", failed)
	}
	if res.Score != 0 || res.Total != 1 {
		t.Fatalf("expected 0/1, got %d/%d", res.Score, res.Total)
	}
	created, closed := h.factory.counts()
	if created != 5 || closed != 5 {
		t.Fatalf("expected a fresh recognizer per attempt, created=%d closed=%d", created, closed)
	}
}

func TestRunRetriesAfterIncorrect(t *testing.T) {
	h := newHarness(t, []string{"hello"}, []string{"xyz", "hello"})
	res, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectTypes(t, h.rec.types(),
		EventPrompt, EventListening, EventIncorrect, EventListening, EventCorrect, EventComplete)

	incorrect := h.rec.events[2]
	if incorrect.Attempt != 1 || incorrect.MaxAttempts != 5 || incorrect.Spoken != "xyz" || incorrect.Similarity != 0 {
		t.Fatalf("unexpected incorrect event: %+v", incorrect)
	}
	if res.Score != 1 {
		t.Fatalf("expected score 1, got %d", res.Score)
	}
}

func TestRunScoresAcrossPrompts(t *testing.T) {
	script := []string{"one", "", "", "", "", ""}
	h := newHarness(t, []string{"one", "two"}, script)
	res, err := h.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Score != 1 || res.Total != 2 {
		t.Fatalf("expected 1/2, got %d/%d", res.Score, res.Total)
	}
	last := h.rec.last()
	if last.Type != EventComplete || last.Score != 1 || last.Total != 2 {
		t.Fatalf("unexpected complete event: %+v", last)
	}
	var prompts int
	for _, ev := range h.rec.events {
		if ev.Type == EventPrompt {
			prompts++
			if ev.Total != 2 || ev.Index != prompts {
				t.Fatalf("unexpected prompt event: %+v", ev)
			}
		}
	}
	if prompts != 2 {
		t.Fatalf("expected 2 prompt events, got %d", prompts)
	}
}

func TestThresholdIsInclusive(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  EventType
	}{
		{"at threshold", 0.70, EventCorrect},
		{"below threshold", 0.6999, EventFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := []string{"a", "a", "a", "a", "a"}
			h := newHarness(t, []string{"a"}, script, func(c *Config) {
				c.Score = func(string, string) float64 { return tt.score }
			})
			if _, err := h.run(t); err != nil {
				t.Fatalf("Run: %v", err)
			}
			types := h.rec.types()
			if !slices.Contains(types, tt.want) {
				t.Fatalf("expected %s in %v", tt.want, types)
			}
			var listening int
			for _, typ := range types {
				if typ == EventListening {
					listening++
				}
			}
			if listening > 5 {
				t.Fatalf("expected at most 5 attempts, got %d", listening)
			}
		})
	}
}

func TestDecodeFailureCountsAsSilence(t *testing.T) {
	script := []string{decodeFailure, decodeFailure, decodeFailure, decodeFailure, decodeFailure}
	h := newHarness(t, []string{"hello"}, script)
	if _, err := h.run(t); err != nil {
		t.Fatalf("Run: %v", err)
	}
	types := h.rec.types()
	if slices.Contains(types, EventIncorrect) || !slices.Contains(types, EventFailed) {
		t.Fatalf("expected only timeouts, got %v", types)
	}
}

func TestRunModelUnavailable(t *testing.T) {
	h := newHarness(t, []string{"hello"}, nil)
	h.factory.missing = map[string]bool{"en": true}
	_, err := h.run(t)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	expectTypes(t, h.rec.types(), EventError)
	if h.source.opened != 0 {
		t.Fatal("capture device opened without a model")
	}
	if len(h.results.saved) != 0 {
		t.Fatal("result persisted for failed session")
	}
}

func TestRunModelLoadFailure(t *testing.T) {
	h := newHarness(t, []string{"hello"}, []string{"hello"})
	h.factory.loadErr = errors.New("corrupt model directory")
	_, err := h.run(t)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	expectTypes(t, h.rec.types(), EventError)
	if h.source.opened != 0 {
		t.Fatal("capture device opened with a broken model")
	}
	if created, _ := h.factory.counts(); created != 0 {
		t.Fatalf("expected no recognizers, got %d", created)
	}
}

func TestRunDatasetEmpty(t *testing.T) {
	h := newHarness(t, nil, nil)
	_, err := h.run(t)
	if !errors.Is(err, ErrDatasetEmpty) {
		t.Fatalf("expected ErrDatasetEmpty, got %v", err)
	}
	expectTypes(t, h.rec.types(), EventError)
}

func TestRunDeviceUnavailable(t *testing.T) {
	h := newHarness(t, []string{"hello"}, nil)
	h.source.openErr = capture.ErrDeviceBusy
	_, err := h.run(t)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	expectTypes(t, h.rec.types(), EventError)
	if msg := h.rec.last().Message; msg != capture.ErrDeviceBusy.Error() {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestRunDeviceStartFailureStopsDevice(t *testing.T) {
	h := newHarness(t, []string{"hello"}, nil)
	h.source.startErr = capture.ErrDeviceUnavailable
	if _, err := h.run(t); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if h.source.stops() != 1 {
		t.Fatalf("expected device released, stops=%d", h.source.stops())
	}
}

func TestRunRecognizerStartFailure(t *testing.T) {
	h := newHarness(t, []string{"hello"}, nil)
	h.factory.startErr = errors.New("boom")
	_, err := h.run(t)
	if err == nil {
		t.Fatal("expected error")
	}
	expectTypes(t, h.rec.types(), EventPrompt, EventListening, EventError)
	if h.source.stops() != 1 {
		t.Fatalf("expected device released, stops=%d", h.source.stops())
	}
}

func TestRunDisconnectAbandonsSession(t *testing.T) {
	h := newHarness(t, []string{"hello", "world"}, []string{"hello", "world"})
	h.rec.failAt = 3
	_, err := h.run(t)
	if !errors.Is(err, ErrStreamDisconnected) {
		t.Fatalf("expected ErrStreamDisconnected, got %v", err)
	}
	if len(h.results.saved) != 0 {
		t.Fatal("abandoned session was persisted")
	}
	if h.source.stops() != 1 {
		t.Fatalf("expected device released, stops=%d", h.source.stops())
	}
	expectTypes(t, h.rec.types(), EventPrompt, EventListening)
}

func TestRunPersistenceFailureStillCompletes(t *testing.T) {
	h := newHarness(t, []string{"hello"}, []string{"hello"})
	h.results.err = errors.New("disk full")
	res, err := h.run(t)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if res.Score != 1 || res.Total != 1 {
		t.Fatalf("expected result despite save failure, got %+v", res)
	}
	if last := h.rec.last(); last.Type != EventComplete {
		t.Fatalf("expected complete event, got %s", last.Type)
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(t, []string{"hello"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := model.SessionRequest{LearnerName: "Asha", Language: "en", Mode: model.ModeWord}
	if _, err := h.engine.Run(ctx, req, h.rec); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if len(h.results.saved) != 0 {
		t.Fatal("cancelled session was persisted")
	}
	if slices.Contains(h.rec.types(), EventComplete) {
		t.Fatal("cancelled session emitted complete")
	}
	if h.source.stops() != 1 {
		t.Fatalf("expected device released, stops=%d", h.source.stops())
	}
}

func TestRunCancelledWhileListening(t *testing.T) {
	h := newHarness(t, []string{"hello"}, nil, func(cfg *Config) {
		cfg.Policy.ListenWindow = 2 * time.Second
		cfg.Policy.PollInterval = 10 * time.Millisecond
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()

	req := model.SessionRequest{LearnerName: "Asha", Language: "en", Mode: model.ModeWord}
	start := time.Now()
	_, err := h.engine.Run(ctx, req, h.rec)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Fatalf("listening window was not interrupted, took %v", elapsed)
	}
	expectTypes(t, h.rec.types(), EventPrompt, EventListening)
	if len(h.results.saved) != 0 {
		t.Fatal("cancelled session was persisted")
	}
	if h.source.stops() != 1 {
		t.Fatalf("expected device released, stops=%d", h.source.stops())
	}
	if created, closed := h.factory.counts(); created != 1 || closed != 1 {
		t.Fatalf("expected one recognizer created and closed, got %d/%d", created, closed)
	}
}

func TestValidate(t *testing.T) {
	h := newHarness(t, nil, nil)
	req, err := h.engine.Validate("  ", "EN", "Word")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.LearnerName != model.DefaultLearnerName || req.Language != "en" || req.Mode != model.ModeWord {
		t.Fatalf("unexpected request: %+v", req)
	}

	bad := []struct{ learner, lang, mode string }{
		{"Asha", "", "word"},
		{"Asha", "fr", "word"},
		{"Asha", "en", ""},
		{"Asha", "en", "paragraph"},
	}
	for _, b := range bad {
		if _, err := h.engine.Validate(b.learner, b.lang, b.mode); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("Validate(%q, %q, %q): expected ErrInvalidRequest, got %v", b.learner, b.lang, b.mode, err)
		}
	}
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	_, err := New(Config{
		Recognizers: &fakeFactory{},
		Capture:     &fakeSource{},
		Prompts:     fakePrompts{},
		Results:     &fakeResults{},
		Policy:      model.Policy{MaxAttempts: 0, Threshold: 0.7, ListenWindow: time.Second, PollInterval: time.Millisecond},
	})
	if err == nil {
		t.Fatal("expected invalid policy error")
	}
}

func TestListenDrainsStaleFrames(t *testing.T) {
	buf := framebuf.New()
	buf.Push([]byte("stale"))
	buf.Push([]byte("stale"))
	policy := model.Policy{MaxAttempts: 1, Threshold: 0.7, ListenWindow: 10 * time.Millisecond, PollInterval: 2 * time.Millisecond}
	factory := &fakeFactory{script: []string{"leftover"}}
	newRec := func() (recognizer.Recognizer, error) { return factory.NewRecognizer("en") }

	att, err := listen(context.Background(), buf, newRec, policy, 1)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if att.Outcome != AttemptTimedOut {
		t.Fatalf("expected timeout after drain, got %s %q", att.Outcome, att.Text)
	}
	if att.Elapsed < policy.ListenWindow {
		t.Fatalf("window closed early: %s", att.Elapsed)
	}
}

func TestEventJSON(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Type: EventPrompt, Index: 1, Total: 10, Text: "hello"}, `{"type":"prompt","index":1,"total":10,"text":"hello"}`},
		{Event{Type: EventListening, Attempt: 2, MaxAttempts: 5}, `{"type":"listening","attempt":2,"max_attempts":5}`},
		{Event{Type: EventTimeout, Attempt: 3}, `{"type":"timeout","attempt":3}`},
		{Event{Type: EventCorrect, Spoken: "helo", Expected: "hello", Similarity: 0.8888}, `{"type":"correct","spoken":"helo","expected":"hello","similarity":0.89}`},
		{Event{Type: EventIncorrect, Spoken: "x", Expected: "hello", Similarity: 0, Attempt: 1, MaxAttempts: 5}, `{"type":"incorrect","spoken":"x","expected":"hello","similarity":0,"attempt":1,"max_attempts":5}`},
		{Event{Type: EventFailed, Text: "water"}, `{"type":"failed","text":"water"}`},
		{Event{Type: EventComplete, Score: 7, Total: 10}, `{"type":"complete","score":7,"total":10}`},
		{Event{Type: EventError, Message: "no model"}, `{"type":"error","message":"no model"}`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.ev)
		if err != nil {
			t.Fatalf("marshal %s: %v", tt.ev.Type, err)
		}
		if string(got) != tt.want {
			t.Fatalf("marshal %s:\n got %s\nwant %s", tt.ev.Type, got, tt.want)
		}
	}

	if _, err := json.Marshal(Event{Type: "bogus"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
