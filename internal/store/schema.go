package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
-- One row per simulation run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    topology TEXT,
    population INTEGER NOT NULL,
    seed INTEGER,           -- uint64 stored bit-for-bit as int64
    params TEXT NOT NULL,   -- JSON models.Params
    started_at TEXT NOT NULL
);

-- Compartment tallies after each completed day
CREATE TABLE IF NOT EXISTS days (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    day INTEGER NOT NULL,
    susceptible INTEGER NOT NULL,
    exposed INTEGER NOT NULL,
    infected INTEGER NOT NULL,
    recovered INTEGER NOT NULL,
    dead INTEGER NOT NULL,
    recorded_at TEXT NOT NULL,
    PRIMARY KEY (run_id, day)
);

-- Exchange-format graph captured by checkpoints
CREATE TABLE IF NOT EXISTS snapshots (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    day INTEGER NOT NULL,
    graph TEXT NOT NULL,
    taken_at TEXT NOT NULL,
    PRIMARY KEY (run_id, day)
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the schema on a fresh database and checks an
// existing one.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := schemaVersion(ctx, db)
	if err != nil {
		// schema_version is missing or empty: a new database.
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}
	if version > SchemaVersion {
		return fmt.Errorf("history database is at schema v%d, this build supports up to v%d", version, SchemaVersion)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("history database is damaged: %w", err)
	}
	return nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	return version, err
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return tx.Commit()
}

// ValidateIntegrity checks page-level consistency and that every day and
// snapshot row belongs to an existing run.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&result); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check: %s", result)
	}

	for _, table := range []string{"days", "snapshots"} {
		var orphans int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE run_id NOT IN (SELECT id FROM runs)`, table)
		if err := db.QueryRowContext(ctx, query).Scan(&orphans); err != nil {
			return fmt.Errorf("checking %s: %w", table, err)
		}
		if orphans > 0 {
			return fmt.Errorf("%d %s rows reference missing runs", orphans, table)
		}
	}
	return nil
}

// ResetSchema drops every table and recreates the schema. Test use only.
func ResetSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"snapshots", "days", "runs", "schema_version"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return InitSchema(ctx, db)
}
