// Package dataset loads practice prompts from plain-text files.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/verte-zerg/sayit/internal/model"
)

// ErrEmpty is returned when no prompts exist for a language and mode.
var ErrEmpty = errors.New("no prompts available")

// DefaultSampleSize is the number of prompts drawn per session.
const DefaultSampleSize = 10

var languageNames = map[string]string{
	"en": "english",
	"hi": "hindi",
}

var fallbackPrompts = []string{
	"hello", "world", "computer", "python", "programming",
	"technology", "artificial", "intelligence", "software", "developer",
}

// Source draws a random sample of prompts from <dir>/<language>_<mode>s.txt.
type Source struct {
	dir        string
	sampleSize int
	fallback   bool

	mu      sync.Mutex
	sampler *Sampler
}

// Option configures a Source.
type Option func(*Source)

// WithSampleSize caps the number of prompts per session.
func WithSampleSize(n int) Option {
	return func(s *Source) { s.sampleSize = n }
}

// WithFallback makes a missing dataset file fall back to a built-in English
// word sample instead of failing.
func WithFallback(enabled bool) Option {
	return func(s *Source) { s.fallback = enabled }
}

// WithSampler replaces the random sampler, mainly for deterministic tests.
func WithSampler(sampler *Sampler) Option {
	return func(s *Source) { s.sampler = sampler }
}

// NewSource returns a Source rooted at dir.
func NewSource(dir string, opts ...Option) *Source {
	s := &Source{dir: dir, sampleSize: DefaultSampleSize}
	for _, o := range opts {
		o(s)
	}
	if s.sampler == nil {
		s.sampler = NewSampler()
	}
	return s
}

// Dir returns the dataset directory.
func (s *Source) Dir() string {
	return s.dir
}

// FileName returns the dataset file name for a language and mode, for
// example english_words.txt.
func FileName(lang string, mode model.Mode) string {
	name, ok := languageNames[lang]
	if !ok {
		name = lang
	}
	return fmt.Sprintf("%s_%ss.txt", name, mode)
}

// Path returns the dataset file path for a language and mode.
func (s *Source) Path(lang string, mode model.Mode) string {
	return filepath.Join(s.dir, FileName(lang, mode))
}

// Load returns up to the configured sample size of prompts in random order.
func (s *Source) Load(lang string, mode model.Mode) ([]string, error) {
	path := s.Path(lang, mode)
	lines, err := LoadLines(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && s.fallback {
			lines = fallbackPrompts
		} else if errors.Is(err, ErrEmpty) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w for %s/%s (%s)", ErrEmpty, lang, mode, path)
		} else {
			return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampler.Sample(lines, s.sampleSize), nil
}

// Info describes one dataset file on disk.
type Info struct {
	Language string
	Mode     model.Mode
	Path     string
	Count    int
}

// List reports every dataset file for the given languages, in language then
// mode order. Missing files are reported with a zero count.
func (s *Source) List(langs []string) []Info {
	sorted := append([]string(nil), langs...)
	sort.Strings(sorted)
	var out []Info
	for _, lang := range sorted {
		for _, mode := range []model.Mode{model.ModeWord, model.ModeSentence} {
			info := Info{Language: lang, Mode: mode, Path: s.Path(lang, mode)}
			if lines, err := LoadLines(info.Path); err == nil {
				info.Count = len(lines)
			}
			out = append(out, info)
		}
	}
	return out
}

// LoadLines reads one prompt per non-blank line from path.
func LoadLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only dataset.
			_ = cerr
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmpty
	}
	return lines, nil
}
