// Package database keeps the extraction history in SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"jordanella.com/noruhunter-go/internal/logging"
)

// DefaultFileName is the history database created in the working directory
const DefaultFileName = "history.db"

// DB wraps the SQLite database connection
type DB struct {
	conn   *sql.DB
	path   string
	logger *logging.Logger
}

// Open opens or creates a SQLite database at the specified path
func Open(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	return &DB{
		conn:   conn,
		path:   dbPath,
		logger: logging.NewNopLogger(),
	}, nil
}

// OpenAndMigrate opens the database and applies pending migrations.
func OpenAndMigrate(dbPath string, logger *logging.Logger) (*DB, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		db.SetLogger(logger)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SetLogger sets the logger used for migration progress
func (db *DB) SetLogger(logger *logging.Logger) {
	db.logger = logger
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// ExecTx executes a function within a transaction
func (db *DB) ExecTx(fn func(*sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// GetVersion returns the current database schema version
func (db *DB) GetVersion() (int, error) {
	return db.getCurrentVersion()
}

// Backup copies the database file to backupPath
func (db *DB) Backup(backupPath string) error {
	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	sourceData, err := os.ReadFile(db.path)
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}

	if err := os.WriteFile(backupPath, sourceData, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	return nil
}

// Vacuum optimizes the database
func (db *DB) Vacuum() error {
	_, err := db.conn.Exec("VACUUM")
	return err
}

// GetStats returns row counts per table
func (db *DB) GetStats() (map[string]int64, error) {
	stats := make(map[string]int64)

	for _, table := range []string{"extraction_runs", "error_log"} {
		var count int64
		err := db.conn.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			// Table might not exist yet, skip
			continue
		}
		stats[table] = count
	}

	return stats, nil
}
