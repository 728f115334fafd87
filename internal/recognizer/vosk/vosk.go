// Package vosk implements recognizer.Factory on top of the Vosk speech
// recognition toolkit.
package vosk

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	voskapi "github.com/alphacep/vosk-api/go"
	"github.com/charmbracelet/log"

	"github.com/verte-zerg/sayit/internal/recognizer"
)

var _ recognizer.Factory = (*Factory)(nil)

// engine is the subset of *voskapi.VoskRecognizer the adapter relies on.
type engine interface {
	AcceptWaveform(buffer []byte) int
	Result() string
	Free()
}

// Factory loads vosk models lazily, shares each model across sessions
// and hands out one recognizer per attempt.
type Factory struct {
	paths      map[string]string
	sampleRate float64
	logger     *log.Logger

	mu     sync.Mutex
	models map[string]*voskapi.VoskModel
}

// NewFactory returns a factory for the given language→model directory
// map. Vosk's own logging is silenced.
func NewFactory(paths map[string]string, sampleRate int, logger *log.Logger) *Factory {
	voskapi.SetLogLevel(-1)
	cp := make(map[string]string, len(paths))
	for lang, path := range paths {
		cp[lang] = path
	}
	return &Factory{
		paths:      cp,
		sampleRate: float64(sampleRate),
		logger:     logger,
		models:     map[string]*voskapi.VoskModel{},
	}
}

// Languages implements recognizer.Factory.
func (f *Factory) Languages() []string {
	langs := make([]string, 0, len(f.paths))
	for lang := range f.paths {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// ModelPaths returns a copy of the configured model directories.
func (f *Factory) ModelPaths() map[string]string {
	cp := make(map[string]string, len(f.paths))
	for lang, path := range f.paths {
		cp[lang] = path
	}
	return cp
}

// Available checks the model directory without loading it.
func (f *Factory) Available(lang string) error {
	path, ok := f.paths[lang]
	if !ok || path == "" {
		return fmt.Errorf("%w: no model configured for %q", recognizer.ErrModelUnavailable, lang)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: model not found at %s", recognizer.ErrModelUnavailable, path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", recognizer.ErrModelUnavailable, path)
	}
	return nil
}

// Prepare implements recognizer.Factory. It loads lang's model so a broken
// model fails before a session claims the microphone.
func (f *Factory) Prepare(lang string) error {
	_, err := f.model(lang)
	return err
}

// NewRecognizer implements recognizer.Factory.
func (f *Factory) NewRecognizer(lang string) (recognizer.Recognizer, error) {
	model, err := f.model(lang)
	if err != nil {
		return nil, err
	}
	rec, err := voskapi.NewRecognizer(model, f.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognizer: %w", err)
	}
	return newAdapter(rec, f.logger), nil
}

func (f *Factory) model(lang string) (*voskapi.VoskModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.models[lang]; ok {
		return m, nil
	}
	if err := f.Available(lang); err != nil {
		return nil, err
	}
	path := f.paths[lang]
	f.logger.Info("loading recognizer model", "lang", lang, "path", path)
	m, err := voskapi.NewModel(path)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", recognizer.ErrModelUnavailable, path, err)
	}
	f.models[lang] = m
	return m, nil
}

// Close frees every loaded model.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for lang, m := range f.models {
		m.Free()
		delete(f.models, lang)
	}
}

type adapter struct {
	rec    engine
	logger *log.Logger
	once   sync.Once
}

func newAdapter(rec engine, logger *log.Logger) *adapter {
	return &adapter{rec: rec, logger: logger}
}

// Feed implements recognizer.Recognizer. A result that cannot be decoded
// counts as an empty final transcript.
func (a *adapter) Feed(frame []byte) (bool, string) {
	if a.rec.AcceptWaveform(frame) == 0 {
		return false, ""
	}
	text, err := parseResult(a.rec.Result())
	if err != nil {
		a.logger.Warn("recognition decode failed", "err", err)
		return true, ""
	}
	return true, text
}

// Close implements recognizer.Recognizer.
func (a *adapter) Close() {
	a.once.Do(a.rec.Free)
}

type result struct {
	Text string `json:"text"`
}

// parseResult extracts the transcript from a result payload such as
// {"text": "hello"}.
func parseResult(raw string) (string, error) {
	var res result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("failed to decode recognizer result: %w", err)
	}
	return strings.TrimSpace(res.Text), nil
}
