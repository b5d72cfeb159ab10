package store

import (
	"context"
	"fmt"

	"fermload/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator creates the run schema; every statement is idempotent
type Migrator struct {
	version string
}

// NewMigrator creates a migrator
func NewMigrator() *Migrator {
	return &Migrator{version: "1"}
}

// Version returns the schema version
func (m *Migrator) Version() string { return m.version }

// Run applies the schema for the database's driver
func (m *Migrator) Run(ctx context.Context, db *sqlx.DB) error {
	blob := "BLOB"
	if db.DriverName() == "postgres" {
		blob = "BYTEA"
	}

	steps := []struct {
		name string
		sql  string
	}{
		{"runs", `CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			pipeline TEXT NOT NULL,
			status TEXT NOT NULL,
			fingerprint TEXT NOT NULL DEFAULT '',
			resource_count INTEGER NOT NULL DEFAULT 0,
			skipped_count INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`},
		{"run_resources", fmt.Sprintf(`CREATE TABLE IF NOT EXISTS run_resources (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			batch TEXT NOT NULL DEFAULT '',
			sample TEXT NOT NULL DEFAULT '',
			plate TEXT NOT NULL DEFAULT '',
			medium TEXT NOT NULL DEFAULT '',
			missing_value TEXT NOT NULL DEFAULT '',
			row_count INTEGER NOT NULL DEFAULT 0,
			tags TEXT NOT NULL DEFAULT '{}',
			content %s,
			PRIMARY KEY (run_id, name)
		)`, blob)},
		{"run_artifacts", fmt.Sprintf(`CREATE TABLE IF NOT EXISTS run_artifacts (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			content %s,
			PRIMARY KEY (run_id, kind)
		)`, blob)},
		{"indexes", `CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`},
	}

	for _, s := range steps {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return errors.Wrapf(errors.DatabaseError("migration failed", err), "failed to create %s", s.name)
		}
	}
	return nil
}
