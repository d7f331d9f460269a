package store

import (
	"database/sql"
	"fmt"

	"crewforge/internal/logging"
)

// Schema versions:
// v1: runs and case_results tables with indexes
// v2: runs gained duration_ms and detail columns
const CurrentSchemaVersion = 2

// migration is one versioned schema step. Statements run verbatim;
// Columns are guarded adds that skip when the column already exists,
// so a database touched by a newer build migrates cleanly.
type migration struct {
	Version    int
	Statements []string
	Columns    []columnAdd
}

type columnAdd struct {
	Table  string
	Column string
	Def    string
}

var migrations = []migration{
	{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				target TEXT NOT NULL,
				status TEXT NOT NULL,
				started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				finished_at DATETIME
			)`,
			`CREATE TABLE IF NOT EXISTS case_results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				run_id TEXT NOT NULL,
				seq INTEGER NOT NULL,
				method TEXT NOT NULL,
				endpoint TEXT NOT NULL,
				passed INTEGER NOT NULL DEFAULT 0,
				reason TEXT DEFAULT '',
				UNIQUE(run_id, seq)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind)`,
			`CREATE INDEX IF NOT EXISTS idx_case_results_run ON case_results(run_id)`,
		},
	},
	{
		Version: 2,
		Columns: []columnAdd{
			{"runs", "duration_ms", "INTEGER DEFAULT 0"},
			{"runs", "detail", "TEXT DEFAULT ''"},
		},
	},
}

// RunMigrations brings the schema up to CurrentSchemaVersion. Applied
// versions are tracked in schema_migrations, so re-running is a no-op.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	logging.StoreDebug("Schema at version %d, target %d", current, CurrentSchemaVersion)

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		for _, stmt := range m.Statements {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("migration v%d failed: %w", m.Version, err)
			}
		}
		for _, c := range m.Columns {
			if !tableExists(db, c.Table) {
				logging.StoreDebug("Table missing, skipping column add: %s.%s", c.Table, c.Column)
				continue
			}
			if columnExists(db, c.Table, c.Column) {
				logging.StoreDebug("Column already exists, skipping: %s.%s", c.Table, c.Column)
				continue
			}
			query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.Table, c.Column, c.Def)
			if _, err := db.Exec(query); err != nil {
				return fmt.Errorf("migration v%d failed to add %s.%s: %w", m.Version, c.Table, c.Column, err)
			}
			logging.Store("Migration applied: added %s.%s", c.Table, c.Column)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		applied++
		logging.Store("Migration applied: schema v%d", m.Version)
	}

	if applied == 0 {
		logging.StoreDebug("Schema migrations complete: nothing to apply")
	} else {
		logging.Store("Schema migrations complete: applied=%d", applied)
	}
	return nil
}

// schemaVersion returns the highest applied migration version.
func schemaVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("Table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}
