package database

import (
	"database/sql"
	"fmt"
	"time"
)

const runColumns = `
	id,
	extractor,
	window_title,
	status,
	started_at,
	completed_at,
	duration_ms,
	scrolls,
	merges,
	converged,
	canvas_height,
	tokens,
	rows_exported,
	output_path,
	copied_sheets,
	error_message`

// StartRun records the start of an extraction and returns its id
func (db *DB) StartRun(extractor, windowTitle string, startedAt time.Time) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO extraction_runs (extractor, window_title, status, started_at)
		VALUES (?, ?, ?, ?)
	`, extractor, windowTitle, RunStarted, startedAt)

	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	return result.LastInsertId()
}

// CompleteRun marks a run as completed
func (db *DB) CompleteRun(runID int64, completedAt time.Time, outcome RunOutcome) error {
	return db.finishRun(runID, completedAt, RunCompleted, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE extraction_runs
			SET scrolls = ?,
			    merges = ?,
			    converged = ?,
			    canvas_height = ?,
			    tokens = ?,
			    rows_exported = ?,
			    output_path = ?,
			    copied_sheets = ?
			WHERE id = ?
		`, outcome.Scrolls, outcome.Merges, outcome.Converged, outcome.CanvasHeight,
			outcome.Tokens, outcome.Rows, outcome.OutputPath, outcome.CopiedSheets, runID)
		return err
	})
}

// FailRun marks a run as failed with an error message
func (db *DB) FailRun(runID int64, completedAt time.Time, errorMessage string) error {
	return db.finishRun(runID, completedAt, RunFailed, func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE extraction_runs SET error_message = ? WHERE id = ?`, errorMessage, runID)
		return err
	})
}

func (db *DB) finishRun(runID int64, completedAt time.Time, status string, fn func(*sql.Tx) error) error {
	err := db.ExecTx(func(tx *sql.Tx) error {
		var startedAt time.Time
		if err := tx.QueryRow(`SELECT started_at FROM extraction_runs WHERE id = ?`, runID).Scan(&startedAt); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("run %d not found", runID)
			}
			return err
		}

		_, err := tx.Exec(`
			UPDATE extraction_runs
			SET status = ?,
			    completed_at = ?,
			    duration_ms = ?
			WHERE id = ?
		`, status, completedAt, completedAt.Sub(startedAt).Milliseconds(), runID)
		if err != nil {
			return err
		}
		return fn(tx)
	})

	if err != nil {
		return fmt.Errorf("failed to mark run %d as %s: %w", runID, status, err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(runID int64) (*Run, error) {
	row := db.conn.QueryRow(`SELECT`+runColumns+` FROM extraction_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the newest runs first. A non-positive limit returns every run.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT` + runColumns + ` FROM extraction_runs ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRunSummaries returns per-extractor totals
func (db *DB) GetRunSummaries() ([]RunSummary, error) {
	rows, err := db.conn.Query(`
		SELECT extractor, total_runs, completed_runs, failed_runs, last_run_at, COALESCE(avg_rows, 0)
		FROM v_run_summary
		ORDER BY extractor
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summary: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var last sql.NullString
		if err := rows.Scan(&s.Extractor, &s.TotalRuns, &s.CompletedRuns, &s.FailedRuns, &last, &s.AvgRows); err != nil {
			return nil, err
		}
		if last.Valid {
			if t, ok := parseSQLiteTime(last.String); ok {
				s.LastRunAt = &t
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	var durationMs sql.NullInt64
	var outputPath sql.NullString
	var errorMessage sql.NullString

	err := s.Scan(
		&run.ID,
		&run.Extractor,
		&run.WindowTitle,
		&run.Status,
		&run.StartedAt,
		&completedAt,
		&durationMs,
		&run.Scrolls,
		&run.Merges,
		&run.Converged,
		&run.CanvasHeight,
		&run.Tokens,
		&run.RowsExported,
		&outputPath,
		&run.CopiedSheets,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}

	// Handle nullable fields
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if durationMs.Valid {
		run.DurationMs = &durationMs.Int64
	}
	if outputPath.Valid {
		run.OutputPath = &outputPath.String
	}
	if errorMessage.Valid {
		run.ErrorMessage = &errorMessage.String
	}

	return &run, nil
}

// parseSQLiteTime parses the text form go-sqlite3 stores for time.Time values.
func parseSQLiteTime(s string) (time.Time, bool) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
