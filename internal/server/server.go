// Package server exposes practice sessions over HTTP: a streaming session
// endpoint, the leaderboard, a setup report and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/verte-zerg/sayit/internal/health"
	"github.com/verte-zerg/sayit/internal/model"
	"github.com/verte-zerg/sayit/internal/session"
	"github.com/verte-zerg/sayit/internal/store"
)

const maxRequestBody = 64 << 10

// Leaderboard lists the top results.
type Leaderboard interface {
	Leaderboard(ctx context.Context) ([]model.ResultRecord, error)
}

// Options wires a Server. Metrics may be nil.
type Options struct {
	Engine      *session.Engine
	Leaderboard Leaderboard
	Setup       *health.Setup
	Metrics     http.Handler
	Logger      *log.Logger
}

// Server routes HTTP requests to the session engine and result store.
type Server struct {
	engine      *session.Engine
	leaderboard Leaderboard
	logger      *log.Logger
	router      chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		engine:      opts.Engine,
		leaderboard: opts.Leaderboard,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel}),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", handleIndex)
	r.Get("/healthz", health.Healthz)
	if opts.Setup != nil {
		r.Method(http.MethodGet, "/api/test-setup", opts.Setup)
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Get("/api/leaderboard", s.handleLeaderboard)
	r.Post("/api/start-test", s.handleStartTest)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// startRequest accepts both the web client's field names and the longer
// aliases.
type startRequest struct {
	Username     string `json:"username"`
	LearnerName  string `json:"learnerName"`
	Language     string `json:"language"`
	LanguageCode string `json:"languageCode"`
	Mode         string `json:"mode"`
}

func (s *Server) handleStartTest(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: malformed JSON body", session.ErrInvalidRequest))
		return
	}
	req, err := s.engine.Validate(
		firstNonEmpty(body.Username, body.LearnerName),
		firstNonEmpty(body.Language, body.LanguageCode),
		body.Mode,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stream, err := newStreamEmitter(w, wantsSSE(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The engine logs and emits its own terminal event.
	if _, err := s.engine.Run(r.Context(), req, stream); err != nil && errors.Is(err, session.ErrPersistence) {
		s.logger.Warn("leaderboard will miss a completed session", "learner", req.LearnerName)
	}
}

type leaderboardEntry struct {
	Username string `json:"username"`
	Language string `json:"language"`
	Mode     string `json:"mode"`
	Score    int    `json:"score"`
	Total    int    `json:"total"`
	DateTime string `json:"date_time"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	records, err := s.leaderboard.Leaderboard(r.Context())
	if err != nil {
		s.logger.Error("failed to load leaderboard", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries := make([]leaderboardEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, leaderboardEntry{
			Username: rec.LearnerName,
			Language: rec.Language,
			Mode:     string(rec.Mode),
			Score:    rec.Score,
			Total:    rec.Total,
			DateTime: rec.Timestamp.Format(store.TimestampLayout),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>sayit</title></head>
<body>
<h1>sayit</h1>
<ul>
<li><code>POST /api/start-test</code> {"username", "language", "mode"} streams session events</li>
<li><code>GET /api/leaderboard</code> top results</li>
<li><code>GET /api/test-setup</code> model, dataset and audio checks</li>
<li><code>GET /metrics</code> Prometheus metrics</li>
</ul>
</body>
</html>
`

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexPage)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
