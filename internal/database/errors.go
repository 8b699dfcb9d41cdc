package database

import (
	"database/sql"
	"fmt"
	"time"

	"jordanella.com/noruhunter-go/internal/logging"
)

// LogError persists an error report, optionally linked to a run
func (db *DB) LogError(runID *int64, report *logging.ErrorReport) (int64, error) {
	var errorText, stackTrace *string
	if report.Error != nil {
		s := report.Error.Error()
		errorText = &s
	}
	if report.StackTrace != "" {
		stackTrace = &report.StackTrace
	}
	occurredAt := report.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	result, err := db.conn.Exec(`
		INSERT INTO error_log (
			run_id, category, severity, component, message,
			error_text, stack_trace, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, string(report.Category), string(report.Severity), report.Component,
		report.Message, errorText, stackTrace, occurredAt)

	if err != nil {
		return 0, fmt.Errorf("failed to insert error log: %w", err)
	}

	return result.LastInsertId()
}

// GetRecentErrors returns the most recent errors
func (db *DB) GetRecentErrors(limit int) ([]*ErrorLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT
			id, run_id, category, severity, component, message,
			error_text, stack_trace, occurred_at
		FROM error_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errors := []*ErrorLog{}
	for rows.Next() {
		e := &ErrorLog{}
		err := rows.Scan(
			&e.ID, &e.RunID, &e.Category, &e.Severity, &e.Component,
			&e.Message, &e.ErrorText, &e.StackTrace, &e.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		errors = append(errors, e)
	}

	return errors, rows.Err()
}

// AttachReporter persists every report of the given severities
func (db *DB) AttachReporter(reporter *logging.ErrorReporter, severities ...logging.ErrorSeverity) {
	for _, severity := range severities {
		reporter.OnError(severity, func(report *logging.ErrorReport) {
			if _, err := db.LogError(nil, report); err != nil {
				db.logger.Error("Failed to persist error report", err)
			}
		})
	}
}

// CleanupOldRuns deletes runs and errors older than the retention period
func (db *DB) CleanupOldRuns(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var deleted int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM error_log WHERE occurred_at < ?`, cutoff); err != nil {
			return err
		}
		result, err := tx.Exec(`DELETE FROM extraction_runs WHERE started_at < ?`, cutoff)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up history: %w", err)
	}
	return deleted, nil
}
