// Package runstore persists completed annotation runs so results survive
// job-store TTL eviction and process restarts.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("runstore: run not found")

// Run is one persisted annotation result.
type Run struct {
	ID            string    `json:"run_id"`
	Filename      string    `json:"filename"`
	Title         string    `json:"title"`
	Datasets      int       `json:"datasets"`
	DataInstances int       `json:"data_instances"`
	TEI           string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	filename       TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	datasets       INTEGER NOT NULL DEFAULT 0,
	data_instances INTEGER NOT NULL DEFAULT 0,
	tei            TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Store wraps a SQLite database of annotation runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	// sqlite handles one writer at a time
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init run store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a run.
func (s *Store) Save(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, filename, title, datasets, data_instances, tei, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Filename, run.Title, run.Datasets, run.DataInstances,
		run.TEI, run.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns a single run, annotated document included.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, title, datasets, data_instances, tei, created_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns run summaries, newest first. The TEI payload is not
// loaded.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, title, datasets, data_instances, '', created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run. Deleting an unknown ID returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var created string
	if err := row.Scan(&run.ID, &run.Filename, &run.Title, &run.Datasets,
		&run.DataInstances, &run.TEI, &created); err != nil {
		return Run{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Run{}, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	run.CreatedAt = ts
	return run, nil
}
