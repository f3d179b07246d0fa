package processor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	description TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	iteration INTEGER NOT NULL,
	state     TEXT NOT NULL,
	PRIMARY KEY (run_id, iteration)
);
`

// OpenSampleDB opens (creating if needed) a SQLite sample database. Use
// ":memory:" for a private in-memory database.
func OpenSampleDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening sample database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing sample schema: %w", err)
	}
	return db, nil
}

// Sample is one stored chain state.
type Sample struct {
	Iteration int64
	State     string
}

// SampleStore persists due states of one run. Each Start registers a new
// run with a fresh ID; every due state is written as soon as it arrives, so
// a run aborted by a failing step keeps the samples it already produced.
type SampleStore[S any] struct {
	counter
	db          *sql.DB
	encode      func(S) (string, error)
	seed        int64
	description string

	runID   string
	started bool
}

// NewSampleStore creates a store writing to db, which must have been
// opened with OpenSampleDB.
func NewSampleStore[S any](db *sql.DB, sampling Sampling, seed int64, description string, encode func(S) (string, error)) (*SampleStore[S], error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if err := sampling.Validate(); err != nil {
		return nil, err
	}
	if encode == nil {
		encode = func(s S) (string, error) { return fmt.Sprint(s), nil }
	}
	return &SampleStore[S]{
		counter:     counter{sampling: sampling},
		db:          db,
		encode:      encode,
		seed:        seed,
		description: description,
	}, nil
}

// RunID returns the ID of the current (or last) run, empty before Start.
func (s *SampleStore[S]) RunID() string { return s.runID }

func (s *SampleStore[S]) Start() error {
	s.reset()
	s.runID = uuid.NewString()
	if _, err := s.db.ExecContext(context.Background(),
		`INSERT INTO runs (id, started_at, seed, description) VALUES (?, ?, ?, ?)`,
		s.runID, time.Now().UTC().Format(time.RFC3339Nano), s.seed, s.description); err != nil {
		return fmt.Errorf("registering run: %w", err)
	}
	s.started = true
	return nil
}

func (s *SampleStore[S]) ProcessState(state S) error {
	if !s.started {
		return fmt.Errorf("sample store not started")
	}
	index, ok := s.tick()
	if !ok {
		return nil
	}
	encoded, err := s.encode(state)
	if err != nil {
		return fmt.Errorf("encoding state %d: %w", index, err)
	}
	if _, err := s.db.ExecContext(context.Background(),
		`INSERT INTO samples (run_id, iteration, state) VALUES (?, ?, ?)`,
		s.runID, index, encoded); err != nil {
		return fmt.Errorf("storing state %d: %w", index, err)
	}
	return nil
}

func (s *SampleStore[S]) End() error {
	s.started = false
	return nil
}

// Samples returns the stored states of a run in iteration order.
func Samples(ctx context.Context, db *sql.DB, runID string) ([]Sample, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT iteration, state FROM samples WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var smp Sample
		if err := rows.Scan(&smp.Iteration, &smp.State); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// Runs returns the IDs of all stored runs, oldest first.
func Runs(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM runs ORDER BY started_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
