package database

import (
	"time"
)

// Run statuses
const (
	RunStarted   = "started"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one extraction attempt
type Run struct {
	ID          int64      `db:"id"`
	Extractor   string     `db:"extractor"`
	WindowTitle string     `db:"window_title"`
	Status      string     `db:"status"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	DurationMs  *int64     `db:"duration_ms"`

	// Capture
	Scrolls      int  `db:"scrolls"`
	Merges       int  `db:"merges"`
	Converged    bool `db:"converged"`
	CanvasHeight int  `db:"canvas_height"`

	// Output
	Tokens       int     `db:"tokens"`
	RowsExported int     `db:"rows_exported"`
	OutputPath   *string `db:"output_path"`
	CopiedSheets int     `db:"copied_sheets"`

	ErrorMessage *string `db:"error_message"`
}

// RunOutcome carries the figures recorded when a run completes
type RunOutcome struct {
	Scrolls      int
	Merges       int
	Converged    bool
	CanvasHeight int
	Tokens       int
	Rows         int
	OutputPath   string
	CopiedSheets int
}

// ErrorLog is a persisted error report
type ErrorLog struct {
	ID         int64     `db:"id"`
	RunID      *int64    `db:"run_id"`
	Category   string    `db:"category"`
	Severity   string    `db:"severity"`
	Component  string    `db:"component"`
	Message    string    `db:"message"`
	ErrorText  *string   `db:"error_text"`
	StackTrace *string   `db:"stack_trace"`
	OccurredAt time.Time `db:"occurred_at"`
}

// RunSummary aggregates runs per extractor
type RunSummary struct {
	Extractor     string
	TotalRuns     int
	CompletedRuns int
	FailedRuns    int
	LastRunAt     *time.Time
	AvgRows       float64
}
