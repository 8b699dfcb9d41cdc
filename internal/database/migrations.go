package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create schema_version table",
		Up:          migration001Up,
		Down:        migration001Down,
	},
	{
		Version:     2,
		Description: "Create extraction_runs table",
		Up:          migration002Up,
		Down:        migration002Down,
	},
	{
		Version:     3,
		Description: "Create error_log table",
		Up:          migration003Up,
		Down:        migration003Down,
	},
	{
		Version:     4,
		Description: "Create run summary view",
		Up:          migration004Up,
		Down:        migration004Down,
	},
}

// LatestVersion is the schema version after every migration has run
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations() error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	db.logger.Debugf("Current database version: %d", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		db.logger.Infof("Running migration %d: %s", migration.Version, migration.Description)

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, migration.Version, migration.Description, time.Now())

			return err
		})

		if err != nil {
			return err
		}
	}

	return nil
}

// Rollback reverts migrations above target, newest first.
func (db *DB) Rollback(target int) error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version > currentVersion || migration.Version <= target {
			continue
		}

		db.logger.Infof("Reverting migration %d: %s", migration.Version, migration.Description)

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Down(tx); err != nil {
				return fmt.Errorf("rollback of migration %d failed: %w", migration.Version, err)
			}
			if migration.Version == 1 {
				return nil
			}
			_, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, migration.Version)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// getCurrentVersion returns the current schema version
func (db *DB) getCurrentVersion() (int, error) {
	var tableExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)

	if err != nil {
		return 0, err
	}

	if !tableExists {
		return 0, nil
	}

	var version int
	err = db.conn.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_version
	`).Scan(&version)

	if err != nil {
		return 0, err
	}

	return version, nil
}

// Migration 001: Schema version tracking table
func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration001Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS schema_version`)
	return err
}

// Migration 002: One row per extraction run
func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE extraction_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			extractor TEXT NOT NULL,
			window_title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'started',
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			duration_ms INTEGER,

			-- Capture
			scrolls INTEGER DEFAULT 0,
			merges INTEGER DEFAULT 0,
			converged BOOLEAN DEFAULT 0,
			canvas_height INTEGER DEFAULT 0,

			-- Output
			tokens INTEGER DEFAULT 0,
			rows_exported INTEGER DEFAULT 0,
			output_path TEXT,
			copied_sheets INTEGER DEFAULT 0,

			error_message TEXT
		);

		CREATE INDEX idx_runs_started ON extraction_runs(started_at);
		CREATE INDEX idx_runs_extractor ON extraction_runs(extractor);
		CREATE INDEX idx_runs_status ON extraction_runs(status);
	`)
	return err
}

func migration002Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS extraction_runs`)
	return err
}

// Migration 003: Persisted error reports
func migration003Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE error_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			component TEXT NOT NULL,
			message TEXT NOT NULL,
			error_text TEXT,
			stack_trace TEXT,
			occurred_at DATETIME NOT NULL,
			FOREIGN KEY (run_id) REFERENCES extraction_runs(id) ON DELETE SET NULL
		);

		CREATE INDEX idx_error_log_occurred ON error_log(occurred_at);
		CREATE INDEX idx_error_log_run ON error_log(run_id);
	`)
	return err
}

func migration003Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS error_log`)
	return err
}

// Migration 004: Per-extractor summary
func migration004Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIEW v_run_summary AS
		SELECT
			extractor,
			COUNT(*) AS total_runs,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS completed_runs,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) AS failed_runs,
			MAX(started_at) AS last_run_at,
			AVG(CASE WHEN status = 'completed' THEN rows_exported END) AS avg_rows
		FROM extraction_runs
		GROUP BY extractor;
	`)
	return err
}

func migration004Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP VIEW IF EXISTS v_run_summary`)
	return err
}
