// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines the runs table of the migration journal.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT,
		policy TEXT NOT NULL,
		backup_strategy TEXT NOT NULL,
		backup_path TEXT,
		rows_read INTEGER NOT NULL DEFAULT 0,
		rows_kept INTEGER NOT NULL DEFAULT 0,
		rows_dropped INTEGER NOT NULL DEFAULT 0,
		dry_run INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_target_started ON runs(target, started_at DESC);
	`

	_, err := d.db.Exec(schema)
	return err
}
