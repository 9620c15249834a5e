// Package store keeps scenario run history in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/etpu-project/etpu-go/internal/scenario/engine"
	"github.com/etpu-project/etpu-go/internal/scenario/reporter"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one recorded suite execution.
type Run struct {
	ID          string
	Suite       string
	Config      string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	PassCount   int
	FailCount   int
	SkipCount   int
	TotalCount  int
}

// Store persists runs and their scenario results.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: every :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		suite TEXT NOT NULL,
		config TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		pass_count INTEGER NOT NULL DEFAULT 0,
		fail_count INTEGER NOT NULL DEFAULT 0,
		skip_count INTEGER NOT NULL DEFAULT 0,
		total_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS run_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		scenario_id TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER,
		error TEXT,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSuite stores a suite result under a new run ID. config names the
// SoC config the suite ran against and may be empty.
func (s *Store) RecordSuite(suite *engine.SuiteResult, config string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := time.Now().UTC()
	run := &Run{
		ID:          uuid.NewString(),
		Suite:       suite.SuiteName,
		Config:      config,
		StartedAt:   completed.Add(-suite.Duration),
		CompletedAt: completed,
		Duration:    suite.Duration,
		PassCount:   suite.PassCount,
		FailCount:   suite.FailCount,
		SkipCount:   suite.SkipCount,
		TotalCount:  len(suite.Results),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO runs (id, suite, config, started_at, completed_at, duration_ms,
		                  pass_count, fail_count, skip_count, total_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Suite, run.Config, run.StartedAt, run.CompletedAt, run.Duration.Milliseconds(),
		run.PassCount, run.FailCount, run.SkipCount, run.TotalCount); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	for _, r := range suite.Results {
		js := reporter.ToJSON(r)
		data, err := json.Marshal(js)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", js.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO run_results (run_id, scenario_id, status, duration_ms, error, result_json)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, js.ID, js.Status, r.Duration.Milliseconds(), js.Error, string(data)); err != nil {
			return nil, fmt.Errorf("insert result %s: %w", js.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

const runColumns = `id, suite, config, started_at, completed_at, duration_ms,
	pass_count, fail_count, skip_count, total_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var config sql.NullString
	var durationMs int64
	if err := row.Scan(&run.ID, &run.Suite, &config, &run.StartedAt, &run.CompletedAt, &durationMs,
		&run.PassCount, &run.FailCount, &run.SkipCount, &run.TotalCount); err != nil {
		return nil, err
	}
	run.Config = config.String
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns runs, most recent first. A non-positive limit means 100.
func (s *Store) ListRuns(limit, offset int) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs
		ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountRuns returns the number of stored runs.
func (s *Store) CountRuns() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
}

// GetResults returns the scenario results of a run in execution order.
func (s *Store) GetResults(runID string) ([]reporter.JSONScenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT result_json FROM run_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []reporter.JSONScenario
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var js reporter.JSONScenario
		if err := json.Unmarshal([]byte(data), &js); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, js)
	}
	return results, rows.Err()
}

// FailingScenarios returns how often each scenario failed across all runs,
// keyed by scenario ID.
func (s *Store) FailingScenarios() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT scenario_id, COUNT(*) FROM run_results
		WHERE status = 'failed' GROUP BY scenario_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}
