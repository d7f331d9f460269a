// Package store persists run history to SQLite. Every workflow run,
// functional test sweep, and syntax check gets a row in `runs`; each
// evaluated HTTP case gets a row in `case_results`. Kept separate from
// the workspace files so a wipe of generated code never loses history.
//
// Storage location: .crewforge/crewforge.db
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crewforge/internal/logging"
	"crewforge/internal/tools/webtest"

	_ "modernc.org/sqlite"
)

// Run kinds.
const (
	KindRun   = "run"   // full workflow sequencing
	KindTest  = "test"  // functional API test sweep
	KindCheck = "check" // syntax check
)

// Run statuses.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
	StatusError  = "error" // infrastructure fault, not a domain failure
)

// RunStore persists run outcomes to SQLite.
type RunStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// RunRecord is one recorded run.
type RunRecord struct {
	ID         string
	Kind       string // run | test | check
	Target     string // workflow name, test file, or checked file
	Status     string // passed | failed | error
	Detail     string // error message or short outcome note
	DurationMs int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// CaseRecord is one evaluated HTTP case within a test run.
type CaseRecord struct {
	ID       int64
	RunID    string
	Seq      int
	Method   string
	Endpoint string
	Passed   bool
	Reason   string
}

// RunStats provides history statistics.
type RunStats struct {
	TotalRuns     int
	PassedCount   int
	FailedCount   int
	KindBreakdown map[string]int
}

// NewRunStore opens (or creates) the run history database at the given path.
func NewRunStore(dbPath string) (*RunStore, error) {
	logging.StoreDebug("Initializing RunStore at path: %s", dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.StoreError("Failed to create RunStore directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		logging.StoreError("Failed to open RunStore database at %s: %v", dbPath, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	store := &RunStore{db: db, dbPath: dbPath}
	if err := RunMigrations(db); err != nil {
		logging.StoreError("Failed to migrate RunStore schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("RunStore initialized at %s", dbPath)
	return store, nil
}

// RecordRun persists one run outcome. Re-recording the same ID replaces
// the earlier row.
func (s *RunStore) RecordRun(rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		return fmt.Errorf("run record requires an id")
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt.Add(time.Duration(rec.DurationMs) * time.Millisecond)
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO runs
		(id, kind, target, status, detail, duration_ms, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Target, rec.Status, rec.Detail,
		rec.DurationMs, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		logging.StoreError("Failed to record run %s: %v", rec.ID, err)
		return err
	}

	logging.StoreDebug("Recorded run %s (kind=%s, status=%s)", rec.ID, rec.Kind, rec.Status)
	return nil
}

// RecordReport persists every case result of a functional test report
// under the given run ID. Cases are numbered in evaluation order.
func (s *RunStore) RecordReport(runID string, report webtest.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if runID == "" {
		return fmt.Errorf("case records require a run id")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO case_results
		(run_id, seq, method, endpoint, passed, reason)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, result := range report.Results {
		passedInt := 0
		if result.Passed {
			passedInt = 1
		}
		if _, err := stmt.Exec(runID, i+1, result.Case.Method, result.Case.Endpoint, passedInt, result.Reason); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record case %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.StoreDebug("Recorded %d case result(s) for run %s", len(report.Results), runID)
	return nil
}

// RecentRuns retrieves the N most recent runs, newest first.
func (s *RunStore) RecentRuns(limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, kind, target, status, detail, duration_ms, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

// CasesForRun retrieves the case results of one run in evaluation order.
func (s *RunStore) CasesForRun(runID string) ([]CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, run_id, seq, method, endpoint, passed, reason
		FROM case_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CaseRecord
	for rows.Next() {
		var rec CaseRecord
		var passedInt int
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Seq, &rec.Method, &rec.Endpoint, &passedInt, &rec.Reason); err != nil {
			return nil, err
		}
		rec.Passed = passedInt == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats returns history statistics.
func (s *RunStore) Stats() (*RunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &RunStats{KindBreakdown: make(map[string]int)}

	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM runs`)
	if err := row.Scan(&stats.TotalRuns, &stats.PassedCount, &stats.FailedCount); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM runs GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			continue
		}
		stats.KindBreakdown[kind] = count
	}

	return stats, rows.Err()
}

// Prune deletes runs (and their case results) older than the given age.
// Returns the number of runs removed.
func (s *RunStore) Prune(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`
		DELETE FROM case_results WHERE run_id IN
		(SELECT id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
		tx.Rollback()
		return 0, err
	}

	res, err := tx.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	removed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if removed > 0 {
		logging.Store("Pruned %d run(s) older than %s", removed, olderThan)
	}
	return int(removed), nil
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		logging.Store("Closing RunStore at %s", s.dbPath)
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Target, &rec.Status,
			&rec.Detail, &rec.DurationMs, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
