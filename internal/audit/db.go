// Package audit persists the per-turn decision traces to SQLite. This is
// the observability trail only: pending actions, sessions, and tokens stay
// in memory and are never written here.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenDB opens a SQLite database at the given path.
// If path is ":memory:", uses an in-memory database.
// Sets WAL mode and enables foreign keys.
// Runs migrations automatically.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS turn_traces (
		id                    TEXT PRIMARY KEY,
		session_id            TEXT NOT NULL,
		transcript            TEXT NOT NULL,
		assistant_text        TEXT NOT NULL,
		tool                  TEXT NOT NULL,
		args                  TEXT NOT NULL DEFAULT '{}',
		executed              INTEGER NOT NULL DEFAULT 0,
		risk_level            TEXT NOT NULL DEFAULT '',
		risk_score            INTEGER NOT NULL DEFAULT 0,
		reasons               TEXT NOT NULL DEFAULT '[]',
		requires_confirmation INTEGER NOT NULL DEFAULT 0,
		confirmation_state    TEXT NOT NULL DEFAULT '',
		outcome               TEXT NOT NULL DEFAULT '',
		created_at            TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_turn_traces_session ON turn_traces(session_id, created_at)`,
}
