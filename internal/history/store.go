// Package history persists a record of chain invocations to SQLite:
// run id, chain name, outcome, failing step if any, duration, and the
// output payload. It is an operational record, not a metrics system.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chainforge/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	chain       TEXT NOT NULL,
	status      TEXT NOT NULL,
	failed_step TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	outputs     TEXT NOT NULL DEFAULT '{}',
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_chain ON runs(chain);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Run is one recorded invocation.
type Run struct {
	ID         string
	Chain      string
	Status     string // "ok" or "error"
	FailedStep string
	Duration   time.Duration
	Outputs    map[string]string
	CreatedAt  time.Time
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.Get(logging.CategoryHistory).Infow("history store opened", "path", path)
	return &Store{db: db}, nil
}

// Record persists one run.
func (s *Store) Record(ctx context.Context, run Run) error {
	outputs := run.Outputs
	if outputs == nil {
		outputs = map[string]string{}
	}
	payload, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, chain, status, failed_step, duration_ms, outputs) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Chain, run.Status, run.FailedStep, run.Duration.Milliseconds(), string(payload))
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chain, status, failed_step, duration_ms, outputs, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			durationMs int64
			outputs    string
		)
		if err := rows.Scan(&run.ID, &run.Chain, &run.Status, &run.FailedStep,
			&durationMs, &outputs, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(outputs), &run.Outputs); err != nil {
			run.Outputs = map[string]string{}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
