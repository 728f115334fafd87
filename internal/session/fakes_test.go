package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/sayit/internal/capture"
	"github.com/verte-zerg/sayit/internal/dataset"
	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/recognizer"
)

// decodeFailure scripts an attempt whose recognizer reports a boundary with
// an empty transcript on every frame.
const decodeFailure = "!"

// fakeFactory hands out recognizers that follow a per-attempt script. An
// empty entry never reaches an utterance boundary; any other entry is
// recognized on the first frame.
type fakeFactory struct {
	mu       sync.Mutex
	langs    []string
	missing  map[string]bool
	loadErr  error
	script   []string
	created  int
	closed   int
	startErr error
}

func (f *fakeFactory) Languages() []string { return f.langs }

func (f *fakeFactory) Prepare(lang string) error {
	if f.missing[lang] {
		return fmt.Errorf("%w: model not found for %s", recognizer.ErrModelUnavailable, lang)
	}
	if f.loadErr != nil {
		return fmt.Errorf("%w: %v", recognizer.ErrModelUnavailable, f.loadErr)
	}
	return nil
}

func (f *fakeFactory) NewRecognizer(string) (recognizer.Recognizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	text := ""
	if f.created < len(f.script) {
		text = f.script[f.created]
	}
	f.created++
	return &fakeRecognizer{factory: f, text: text}, nil
}

func (f *fakeFactory) counts() (created, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.closed
}

type fakeRecognizer struct {
	factory *fakeFactory
	text    string
	once    sync.Once
}

func (r *fakeRecognizer) Feed([]byte) (bool, string) {
	switch r.text {
	case "":
		return false, ""
	case decodeFailure:
		return true, ""
	default:
		return true, r.text
	}
}

func (r *fakeRecognizer) Close() {
	r.once.Do(func() {
		r.factory.mu.Lock()
		r.factory.closed++
		r.factory.mu.Unlock()
	})
}

// fakeSource opens devices that push a frame every millisecond.
type fakeSource struct {
	mu       sync.Mutex
	openErr  error
	startErr error
	opened   int
	stopped  int
}

func (s *fakeSource) Open() (capture.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &fakeDevice{source: s, done: make(chan struct{})}, nil
}

func (s *fakeSource) Probe(context.Context) error { return s.openErr }

func (s *fakeSource) stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeDevice struct {
	source *fakeSource
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func (d *fakeDevice) Start(onFrames func([]byte)) error {
	if d.source.startErr != nil {
		return d.source.startErr
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-d.done:
				return
			case <-ticker.C:
				onFrames([]byte{1, 2})
			}
		}
	}()
	return nil
}

func (d *fakeDevice) Stop() error {
	d.once.Do(func() {
		close(d.done)
		d.wg.Wait()
		d.source.mu.Lock()
		d.source.stopped++
		d.source.mu.Unlock()
	})
	return nil
}

type fakePrompts struct {
	prompts []string
	err     error
}

func (p fakePrompts) Load(string, model.Mode) ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.prompts, nil
}

type fakeResults struct {
	mu    sync.Mutex
	saved []model.SessionResult
	err   error
}

func (r *fakeResults) SaveResult(_ context.Context, res model.SessionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, res)
	return nil
}

// recorder collects emitted events. With failAt > 0 the failAt-th emit and
// every later one fail.
type recorder struct {
	mu     sync.Mutex
	events []Event
	failAt int
	calls  int
}

var errClientGone = errors.New("client gone")

func (r *recorder) Emit(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failAt > 0 && r.calls >= r.failAt {
		return errClientGone
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

var _ PromptSource = (*dataset.Source)(nil)
