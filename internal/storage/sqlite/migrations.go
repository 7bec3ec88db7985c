package sqlite

import (
	"context"
	"database/sql"
)

// Migrate runs all database migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		// Runs table
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			model_name TEXT NOT NULL,
			phase INTEGER NOT NULL DEFAULT 0,
			executions INTEGER NOT NULL DEFAULT 0,
			cache_hits INTEGER NOT NULL DEFAULT 0,
			rounds INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		)`,

		// Result cache, one row per executed input of a model
		`CREATE TABLE IF NOT EXISTS results (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			model_name TEXT NOT NULL,
			input_key TEXT NOT NULL,
			run_id TEXT,
			phase INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			cause_type TEXT,
			cause_message TEXT,
			constraint_violation BOOLEAN NOT NULL DEFAULT FALSE,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			logs TEXT,
			executed_at DATETIME NOT NULL,
			UNIQUE(model_name, input_key)
		)`,

		// Identified combinations
		`CREATE TABLE IF NOT EXISTS combinations (
			run_id TEXT NOT NULL,
			combination_key TEXT NOT NULL,
			kind TEXT NOT NULL,
			confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			exception_json TEXT,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (run_id, combination_key),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,

		// Indexes for efficient queries
		`CREATE INDEX IF NOT EXISTS idx_runs_phase ON runs(phase)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id, seq)`,
	}

	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}
