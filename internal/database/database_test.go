package database

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jordanella.com/noruhunter-go/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}

	// Running again is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)

	if err := db.Rollback(1); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1 after rollback, got %d", version)
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Re-migration failed: %v", err)
	}
	if v, _ := db.GetVersion(); v != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), v)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2025, 1, 11, 14, 30, 0, 0, time.UTC)

	id, err := db.StartRun("circle", "EXILIUM", start)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != RunStarted || run.CompletedAt != nil || run.OutputPath != nil {
		t.Errorf("Unexpected started run: %+v", run)
	}

	outcome := RunOutcome{
		Scrolls:      2,
		Merges:       1,
		Converged:    true,
		CanvasHeight: 940,
		Tokens:       60,
		Rows:         10,
		OutputPath:   "output/2025-01-11.xlsx",
		CopiedSheets: 3,
	}
	if err := db.CompleteRun(id, start.Add(1500*time.Millisecond), outcome); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	run, err = db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != RunCompleted {
		t.Errorf("Expected status completed, got %s", run.Status)
	}
	if run.DurationMs == nil || *run.DurationMs != 1500 {
		t.Errorf("Expected duration 1500ms, got %v", run.DurationMs)
	}
	if !run.Converged || run.Scrolls != 2 || run.RowsExported != 10 || run.CopiedSheets != 3 {
		t.Errorf("Outcome not stored: %+v", run)
	}
	if run.OutputPath == nil || *run.OutputPath != outcome.OutputPath {
		t.Errorf("Expected output path %s, got %v", outcome.OutputPath, run.OutputPath)
	}
}

func TestFailRunAndList(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC)

	first, err := db.StartRun("circle", "EXILIUM", base)
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := db.CompleteRun(first, base.Add(time.Second), RunOutcome{Rows: 4}); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}

	second, err := db.StartRun("dust", "EXILIUM", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := db.FailRun(second, base.Add(time.Hour+time.Second), "window not found"); err != nil {
		t.Fatalf("FailRun failed: %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[0].Status != RunFailed {
		t.Errorf("Expected newest failed run first, got %+v", runs[0])
	}
	if runs[0].ErrorMessage == nil || *runs[0].ErrorMessage != "window not found" {
		t.Errorf("Error message not stored: %v", runs[0].ErrorMessage)
	}

	limited, err := db.ListRuns(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Expected 1 run with limit, got %d (%v)", len(limited), err)
	}

	summaries, err := db.GetRunSummaries()
	if err != nil {
		t.Fatalf("GetRunSummaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].Extractor != "circle" || summaries[0].CompletedRuns != 1 || summaries[0].AvgRows != 4 {
		t.Errorf("Unexpected circle summary: %+v", summaries[0])
	}
	if summaries[1].FailedRuns != 1 {
		t.Errorf("Unexpected dust summary: %+v", summaries[1])
	}
}

func TestFinishUnknownRun(t *testing.T) {
	db := openTestDB(t)
	if err := db.FailRun(42, time.Now(), "boom"); err == nil {
		t.Error("Expected error for unknown run")
	}
}

func TestErrorLogging(t *testing.T) {
	db := openTestDB(t)

	runID, err := db.StartRun("circle", "EXILIUM", time.Now())
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	report := &logging.ErrorReport{
		Timestamp:  time.Now(),
		Category:   logging.ErrorCategoryOCR,
		Severity:   logging.ErrorSeverityHigh,
		Component:  "Pipeline",
		Message:    "OCR failed",
		Error:      errors.New("status 401"),
		StackTrace: "goroutine 1 [running]:",
	}
	if _, err := db.LogError(&runID, report); err != nil {
		t.Fatalf("LogError failed: %v", err)
	}

	reporter := logging.NewErrorReporter()
	reporter.SetLogger(logging.NewNopLogger())
	db.AttachReporter(reporter, logging.ErrorSeverityMedium)
	reporter.ReportError(logging.ErrorCategoryExport, logging.ErrorSeverityMedium, "Excel", "save failed", errors.New("locked"))
	reporter.ReportError(logging.ErrorCategoryExport, logging.ErrorSeverityLow, "Excel", "ignored", nil)

	logs, err := db.GetRecentErrors(10)
	if err != nil {
		t.Fatalf("GetRecentErrors failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 error logs, got %d", len(logs))
	}

	var linked int
	for _, l := range logs {
		if l.RunID != nil && *l.RunID == runID {
			linked++
			if l.ErrorText == nil || *l.ErrorText != "status 401" {
				t.Errorf("Error text not stored: %v", l.ErrorText)
			}
			if l.StackTrace == nil {
				t.Error("Stack trace not stored")
			}
		}
	}
	if linked != 1 {
		t.Errorf("Expected 1 error linked to run, got %d", linked)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats["extraction_runs"] != 1 || stats["error_log"] != 2 {
		t.Errorf("Unexpected stats: %v", stats)
	}
}

func TestCleanupOldRuns(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.StartRun("circle", "EXILIUM", time.Now().AddDate(0, 0, -100)); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if _, err := db.StartRun("circle", "EXILIUM", time.Now()); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	deleted, err := db.CleanupOldRuns(30)
	if err != nil {
		t.Fatalf("CleanupOldRuns failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted run, got %d", deleted)
	}
}

func TestBackup(t *testing.T) {
	db := openTestDB(t)
	backup := filepath.Join(t.TempDir(), "backups", "history.db")
	if err := db.Backup(backup); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if _, err := os.Stat(backup); err != nil {
		t.Errorf("Backup file missing: %v", err)
	}
}
