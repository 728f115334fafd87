// Package health reports whether the recognizer models, prompt datasets and
// capture device needed for a session are in place.
//
// Report never changes state: it stats paths and probes the capture device
// without claiming it.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"
)

// checkTimeout bounds a single Checker.
const checkTimeout = 5 * time.Second

// Report statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Checker is a named probe. Check returns nil when the dependency is usable.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Models exposes the configured recognizer models.
type Models interface {
	ModelPaths() map[string]string
	Available(lang string) error
}

// Report is the body of the setup endpoint.
type Report struct {
	Status       string            `json:"status"`
	Issues       []string          `json:"issues"`
	DatasetsPath string            `json:"datasets_path"`
	Models       map[string]string `json:"models"`
}

// OK reports whether no issues were found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Setup builds Reports. It is safe for concurrent use.
type Setup struct {
	models      Models
	datasetsDir string
	checkers    []Checker
}

// NewSetup creates a Setup that checks models, the dataset directory and
// every extra checker in order.
func NewSetup(models Models, datasetsDir string, checkers ...Checker) *Setup {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Setup{models: models, datasetsDir: datasetsDir, checkers: c}
}

// Report runs every check.
func (s *Setup) Report(ctx context.Context) Report {
	paths := s.models.ModelPaths()
	rep := Report{
		Issues:       []string{},
		DatasetsPath: s.datasetsDir,
		Models:       paths,
	}

	langs := make([]string, 0, len(paths))
	for lang := range paths {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if err := s.models.Available(lang); err != nil {
			rep.Issues = append(rep.Issues, fmt.Sprintf("Model not found: %s at %s", lang, paths[lang]))
		}
	}

	if info, err := os.Stat(s.datasetsDir); err != nil || !info.IsDir() {
		rep.Issues = append(rep.Issues, fmt.Sprintf("Datasets folder not found: %s", s.datasetsDir))
	}

	for _, c := range s.checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Check(cctx)
		cancel()
		if err != nil {
			rep.Issues = append(rep.Issues, fmt.Sprintf("%s error: %v", c.Name, err))
		}
	}

	rep.Status = StatusOK
	if !rep.OK() {
		rep.Status = StatusError
	}
	return rep
}

// ServeHTTP writes the current Report. Issues are part of the body, so the
// status code is always 200.
func (s *Setup) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Report(r.Context()))
}

// Healthz is a liveness probe that always returns 200 OK.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": StatusOK})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
