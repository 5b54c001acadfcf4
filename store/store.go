// Package store persists run results to a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/hpath-sim/hpath-sim/sim"
	"github.com/hpath-sim/hpath-sim/sim/replication"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

// Store keeps one row per invocation: the scenario name, the configuration
// and the replication summary, the latter two as JSON blobs.
type Store struct {
	db   *sql.DB
	path string
}

// Run is a stored invocation.
type Run struct {
	ID           int64
	Scenario     string
	Seed         int64
	Replications int
	Failed       int
	CreatedAt    time.Time
	Config       *sim.Config
	Summary      *replication.Summary
}

// Open opens, creating if needed, the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "hpath-sim.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scenario TEXT NOT NULL,
		seed INTEGER NOT NULL,
		replications INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		config BLOB NOT NULL,
		summary BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// SaveRun stores a finished invocation and returns its id.
func (s *Store) SaveRun(ctx context.Context, scenario string, cfg *sim.Config, summary *replication.Summary) (int64, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("encode config: %w", err)
	}
	sumJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("encode summary: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(scenario, seed, replications, failed, created_at, config, summary) VALUES(?,?,?,?,?,?,?)`,
		scenario, summary.Seed, summary.Replications, summary.Failed,
		time.Now().UTC().Format(time.RFC3339Nano), cfgJSON, sumJSON)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// GetRun loads the run with the given id, including its configuration and summary.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, seed, replications, failed, created_at, config, summary FROM runs WHERE id = ?`, id)
	var r run
	var cfgRaw, sumRaw []byte
	if err := row.Scan(&r.ID, &r.Scenario, &r.Seed, &r.Replications, &r.Failed, &r.createdAt, &cfgRaw, &sumRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("select run: %w", err)
	}
	out, err := r.decode()
	if err != nil {
		return nil, err
	}
	out.Config = &sim.Config{}
	if err := json.Unmarshal(cfgRaw, out.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	out.Summary = &replication.Summary{}
	if err := json.Unmarshal(sumRaw, out.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return out, nil
}

// ListRuns returns the stored runs, newest first, without their blobs.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario, seed, replications, failed, created_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var runs []*Run
	for rows.Next() {
		var r run
		if err := rows.Scan(&r.ID, &r.Scenario, &r.Seed, &r.Replications, &r.Failed, &r.createdAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out, err := r.decode()
		if err != nil {
			return nil, err
		}
		runs = append(runs, out)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// run is the scanned form of a row.
type run struct {
	Run
	createdAt string
}

func (r *run) decode() (*Run, error) {
	t, err := time.Parse(time.RFC3339Nano, r.createdAt)
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	out := r.Run
	out.CreatedAt = t
	return &out, nil
}
