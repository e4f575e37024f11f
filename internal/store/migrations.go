package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates all initial tables and indexes.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at       TEXT NOT NULL,
			tool             TEXT NOT NULL,
			period_start     TEXT,
			period_end       TEXT,
			overall_score    REAL NOT NULL,
			session_count    INTEGER NOT NULL,
			total_turns      INTEGER NOT NULL,
			total_tokens     INTEGER NOT NULL,
			duration_minutes REAL NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS analysis_results (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id     INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			analyzer_key  TEXT NOT NULL,
			analyzer_name TEXT NOT NULL,
			score         REAL NOT NULL,
			session_count INTEGER NOT NULL,
			metrics       TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS insights (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id      INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			category       TEXT NOT NULL,
			title          TEXT NOT NULL,
			severity       TEXT NOT NULL,
			recommendation TEXT NOT NULL,
			evidence       TEXT,
			metric_key     TEXT,
			metric_value   REAL NOT NULL DEFAULT 0,
			trend          TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS session_metadata (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id       TEXT NOT NULL UNIQUE,
			tool             TEXT NOT NULL,
			start_time       TEXT,
			end_time         TEXT,
			duration_minutes REAL NOT NULL,
			workspace        TEXT,
			model            TEXT,
			session_type     TEXT NOT NULL,
			turn_count       INTEGER NOT NULL,
			user_turn_count  INTEGER NOT NULL,
			input_tokens     INTEGER NOT NULL,
			output_tokens    INTEGER NOT NULL
		)`,

		// Indexes.
		`CREATE INDEX IF NOT EXISTS idx_reports_tool ON reports(tool, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_results_report ON analysis_results(report_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_key ON analysis_results(analyzer_key)`,
		`CREATE INDEX IF NOT EXISTS idx_insights_report ON insights(report_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_tool ON session_metadata(tool, start_time)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
