// Package store handles SQLite persistence of session results.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/sayit/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// TimestampLayout is the stored format of result timestamps, in local time.
const TimestampLayout = "2006-01-02 15:04:05"

// LeaderboardSize is the number of rows returned by Leaderboard.
const LeaderboardSize = 10

// Store wraps SQLite access for session results. Results are append-only.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			language TEXT NOT NULL,
			mode TEXT NOT NULL,
			score INTEGER NOT NULL,
			total INTEGER NOT NULL,
			date_time TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_score ON results(score DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_results_username ON results(username);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveResult appends a completed session result.
func (s *Store) SaveResult(ctx context.Context, res model.SessionResult) error {
	_, err := s.InsertResult(ctx, res)
	return err
}

// InsertResult appends a completed session result and returns its row id.
func (s *Store) InsertResult(ctx context.Context, res model.SessionResult) (int64, error) {
	if res.Score < 0 || res.Score > res.Total {
		return 0, fmt.Errorf("invalid result: score %d out of range for total %d", res.Score, res.Total)
	}
	out, err := s.db.ExecContext(ctx,
		`INSERT INTO results (username, language, mode, score, total, date_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.LearnerName,
		res.Language,
		string(res.Mode),
		res.Score,
		res.Total,
		res.Timestamp.Local().Format(TimestampLayout),
	)
	if err != nil {
		return 0, err
	}
	return out.LastInsertId()
}

// Leaderboard returns the top results by score, most recent first among
// equal scores.
func (s *Store) Leaderboard(ctx context.Context) ([]model.ResultRecord, error) {
	return s.query(ctx, `SELECT id, username, language, mode, score, total, date_time
		FROM results
		ORDER BY score DESC, id DESC
		LIMIT ?`, LeaderboardSize)
}

// ListResults returns results matching the filter in chronological order.
func (s *Store) ListResults(ctx context.Context, f model.HistoryFilter) ([]model.ResultRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if f.LearnerName != "" {
		clauses = append(clauses, "username = ?")
		args = append(args, f.LearnerName)
	}
	if f.Language != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, f.Language)
	}
	if f.Since != nil {
		clauses = append(clauses, "date_time >= ?")
		args = append(args, f.Since.Local().Format(TimestampLayout))
	}
	query := fmt.Sprintf(`SELECT id, username, language, mode, score, total, date_time
		FROM results
		WHERE %s
		ORDER BY id ASC`, strings.Join(clauses, " AND "))
	records, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if f.Last > 0 && len(records) > f.Last {
		records = records[len(records)-f.Last:]
	}
	return records, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]model.ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.ResultRecord
	for rows.Next() {
		var rec model.ResultRecord
		var mode, stamp string
		if err := rows.Scan(&rec.ID, &rec.LearnerName, &rec.Language, &mode, &rec.Score, &rec.Total, &stamp); err != nil {
			return nil, err
		}
		rec.Mode = model.Mode(mode)
		parsed, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
		if err != nil {
			return nil, err
		}
		rec.Timestamp = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
