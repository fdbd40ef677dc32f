// internal/ledger/ledger.go

// Package ledger records exploration runs in a SQLite database: which
// identifiers were measured, when, and with what score. Trained model
// parameters are never persisted here; the ledger holds acquisition results
// only.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoRun indicates a query for a run id the ledger has never seen.
var ErrNoRun = errors.New("ledger: unknown run")

// Ledger is a run ledger backed by SQLite.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS observations (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	iteration  INTEGER NOT NULL,
	identifier TEXT NOT NULL,
	score      REAL NOT NULL,
	PRIMARY KEY (run_id, identifier)
);
CREATE INDEX IF NOT EXISTS idx_observations_run ON observations(run_id, iteration);
`

// Open opens (creating if necessary) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: set pragma: %w", err)
	}
	return &Ledger{db: db}, nil
}

// StartRun registers a new run.
func (l *Ledger) StartRun(ctx context.Context, runID, name string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO runs (id, name, started_at) VALUES (?, ?, ?)",
		runID, name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ledger: start run: %w", err)
	}
	return nil
}

// RecordBatch stores one iteration's measured scores in a single
// transaction. Re-measured identifiers keep their earlier observation.
func (l *Ledger) RecordBatch(ctx context.Context, runID string, iteration int, scores map[string]float64) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO observations (run_id, iteration, identifier, score) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ledger: prepare: %w", err)
	}
	defer stmt.Close()

	for id, score := range scores {
		if _, err := stmt.ExecContext(ctx, runID, iteration, id, score); err != nil {
			tx.Rollback()
			return fmt.Errorf("ledger: record %q: %w", id, err)
		}
	}
	return tx.Commit()
}

// Observed returns every identifier measured during the run.
func (l *Ledger) Observed(ctx context.Context, runID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT identifier FROM observations WHERE run_id = ? ORDER BY iteration, identifier", runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: observed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Summary describes one recorded run.
type Summary struct {
	RunID    string
	Name     string
	Explored int
	Best     float64
	BestID   string
}

// Summarize reports the explored count and best observation of a run.
func (l *Ledger) Summarize(ctx context.Context, runID string) (*Summary, error) {
	s := &Summary{RunID: runID}
	err := l.db.QueryRowContext(ctx, "SELECT name FROM runs WHERE id = ?", runID).Scan(&s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: summarize: %w", err)
	}

	err = l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM observations WHERE run_id = ?", runID).Scan(&s.Explored)
	if err != nil {
		return nil, fmt.Errorf("ledger: summarize: %w", err)
	}
	if s.Explored == 0 {
		return s, nil
	}

	err = l.db.QueryRowContext(ctx,
		"SELECT identifier, score FROM observations WHERE run_id = ? ORDER BY score DESC, identifier LIMIT 1",
		runID).Scan(&s.BestID, &s.Best)
	if err != nil {
		return nil, fmt.Errorf("ledger: summarize: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
