package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jordanella.com/noruhunter-go/internal/events"
)

func TestLoggerLevelsAndContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("Scroll").SetOutputs(&buf).SetMinLevel(LogLevelInfo)

	l.Debug("hidden")
	l.InfoWithContext("merged", map[string]interface{}{"y": 40, "score": 0.9})
	l.Error("capture failed", errors.New("window closed"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line was written at INFO level:\n%s", out)
	}
	if !strings.Contains(out, "INFO [Scroll] merged | score=0.9 y=40") {
		t.Errorf("context not rendered in sorted order:\n%s", out)
	}
	if !strings.Contains(out, "ERROR [Scroll] capture failed | error=window closed") {
		t.Errorf("error line missing:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LogLevelDebug,
		" WARN": LogLevelWarn,
		"error": LogLevelError,
		"":      LogLevelInfo,
		"noisy": LogLevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNamedSharesOutputs(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger("App").SetOutputs(&buf)
	root.Named("OCR").Info("sent")

	if !strings.Contains(buf.String(), "[OCR] sent") {
		t.Errorf("named logger did not write to parent output: %q", buf.String())
	}
}

func TestErrorReporterCrashLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "error.log")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	er := NewErrorReporter()
	er.SetLogger(NewNopLogger())
	er.SetCrashLog(f)

	var called []ErrorSeverity
	er.OnError(ErrorSeverityHigh, func(r *ErrorReport) { called = append(called, r.Severity) })

	er.ReportError(ErrorCategoryOCR, ErrorSeverityLow, "OCR", "retrying", errors.New("slow"))
	er.ReportError(ErrorCategoryBackend, ErrorSeverityHigh, "Pipeline", "extraction failed", errors.New("window not found"))
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read crash log: %v", err)
	}
	log := string(data)
	if !strings.Contains(log, "extraction failed: window not found") {
		t.Errorf("crash log missing summary:\n%s", log)
	}
	if !strings.Contains(log, "goroutine") {
		t.Errorf("crash log missing stack trace:\n%s", log)
	}
	if strings.Contains(log, "retrying") {
		t.Errorf("low severity report should not reach the crash log")
	}
	if len(called) != 1 {
		t.Errorf("high severity callback ran %d times, want 1", len(called))
	}

	stats := er.GetErrorStats()
	if stats["total"] != 2 || stats["category_backend"] != 1 || stats["severity_low"] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
	if got := er.GetErrorsByCategory(ErrorCategoryBackend, 5); len(got) != 1 {
		t.Errorf("GetErrorsByCategory = %d reports, want 1", len(got))
	}
}

func TestEventLogger(t *testing.T) {
	var buf syncBuffer
	bus := events.NewEventBus(8)
	el := NewEventLogger(bus, NewLogger("Events").SetOutputs(&buf))

	bus.Publish(events.NewRosterChangedEvent(4))
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "roster.changed") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	el.Close()
	bus.Stop()

	if !strings.Contains(buf.String(), "Event: roster.changed | members=4 source=roster") {
		t.Errorf("event not logged: %q", buf.String())
	}
}
