package extract

import (
	"bytes"
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/database"
	"jordanella.com/noruhunter-go/internal/events"
	"jordanella.com/noruhunter-go/internal/logging"
	"jordanella.com/noruhunter-go/internal/ocr"
	"jordanella.com/noruhunter-go/internal/scroll"
	"jordanella.com/noruhunter-go/internal/window"
)

type staticSettings struct {
	settings config.Settings
	err      error
}

func (s staticSettings) Snapshot() (config.Settings, error) { return s.settings, s.err }

type dialog struct {
	kind, title, message string
}

// fakePrompter records every dialog and answers confirmations in order; unanswered ones
// return true.
type fakePrompter struct {
	mu      sync.Mutex
	answers []bool
	dialogs []dialog
}

func (p *fakePrompter) Alert(title, message string) {
	p.record("alert", title, message)
}

func (p *fakePrompter) Error(title, message string) {
	p.record("error", title, message)
}

func (p *fakePrompter) Confirm(title, message string) bool {
	p.record("confirm", title, message)
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.answers) == 0 {
		return true
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer
}

func (p *fakePrompter) record(kind, title, message string) {
	p.mu.Lock()
	p.dialogs = append(p.dialogs, dialog{kind, title, message})
	p.mu.Unlock()
}

func (p *fakePrompter) find(kind string) (dialog, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.dialogs {
		if d.kind == kind {
			return d, true
		}
	}
	return dialog{}, false
}

type fakeRecognizer struct {
	tokens []string
	err    error
	seen   image.Rectangle
	onCall func()
}

func (r *fakeRecognizer) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	r.seen = img.Bounds()
	if r.onCall != nil {
		r.onCall()
	}
	return r.tokens, r.err
}

func (r *fakeRecognizer) Name() string { return "fake" }

// constantMatcher reports the same overlap for every capture, so the second merge converges.
type constantMatcher struct {
	y int
}

func (m constantMatcher) Match(haystack, needle *image.Gray) (cv.MatchResult, error) {
	return cv.MatchResult{Found: true, Location: image.Point{Y: m.y}, Confidence: 1}, nil
}

type finderFunc func(title string) (window.Window, error)

func (f finderFunc) Find(title string) (window.Window, error) { return f(title) }

// foregroundFinder reports prev as the focused window.
type foregroundFinder struct {
	target window.Window
	prev   *activationCounter
}

func (f foregroundFinder) Find(string) (window.Window, error) { return f.target, nil }

func (f foregroundFinder) Foreground() (window.Window, error) { return f.prev, nil }

type activationCounter struct {
	window.Window
	activations int
}

func (a *activationCounter) Activate() error {
	a.activations++
	return nil
}

func gray(w, h int, shade uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	return img
}

func newReplay(t *testing.T) *window.Replay {
	t.Helper()
	r, err := window.NewReplay([]image.Image{gray(40, 60, 10), gray(40, 60, 200)})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

type harness struct {
	pipeline   *Pipeline
	prompter   *fakePrompter
	recognizer *fakeRecognizer
	recorder   *events.Recorder
	history    *database.DB
	crashLog   *bytes.Buffer
	opened     []string
	settings   config.Settings
}

func newHarness(t *testing.T, tokens []string) *harness {
	t.Helper()

	settings := testSettings()
	settings.OutputDir = filepath.Join(t.TempDir(), "output")

	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{
		prompter:   &fakePrompter{},
		recognizer: &fakeRecognizer{tokens: tokens},
		recorder:   &events.Recorder{},
		history:    db,
		crashLog:   &bytes.Buffer{},
		settings:   settings,
	}

	replay := newReplay(t)
	members := fakeRoster{"Alice": memberJoined("Alice", "2025-01-01")}
	p := NewPipeline(staticSettings{settings: settings}, members,
		finderFunc(func(string) (window.Window, error) { return replay, nil }),
		h.prompter, logging.NewNopLogger())

	p.Layouts = config.Layouts{}
	p.Recognizer = func(config.Settings) (ocr.Recognizer, error) { return h.recognizer, nil }
	p.History = db
	p.Events = h.recorder
	p.Matcher = constantMatcher{y: 30}
	p.Sleep = func(time.Duration) {}
	p.Timing = scroll.DefaultOptions()
	p.Timing.Sleep = func(time.Duration) {}
	p.Now = func() time.Time { return at("2025-01-15", 14) }
	p.Restore = func() {}
	p.Open = func(path string) error {
		h.opened = append(h.opened, path)
		return nil
	}
	p.Reporter.SetCrashLog(h.crashLog)

	h.pipeline = p
	return h
}

func circleTokens() []string {
	return []string{
		"Alice", "서클원", "100", "1000", "접속중", "Lv.40",
		"Zed", "서클원", "50", "200", "1일 전", "Lv.3",
	}
}

func TestPipelineRunCircle(t *testing.T) {
	h := newHarness(t, circleTokens())

	report, err := h.pipeline.Run(context.Background(), Circle{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantPath := filepath.Join(h.settings.OutputDir, "2025-01-15.xlsx")
	if report.Path != wantPath {
		t.Errorf("Path = %s, want %s", report.Path, wantPath)
	}
	if report.Rows != 2 || report.Tokens != 12 || report.Sheet != "2025-01-15" {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.Capture == nil || !report.Capture.Converged || report.Capture.Merges != 1 {
		t.Errorf("unexpected capture: %+v", report.Capture)
	}
	if h.recognizer.seen.Dy() != 90 {
		t.Errorf("OCR saw canvas of height %d, want 90", h.recognizer.seen.Dy())
	}
	if !report.Opened || len(h.opened) != 1 || h.opened[0] != wantPath {
		t.Errorf("workbook not opened: %v", h.opened)
	}

	confirm, _ := h.prompter.find("confirm")
	if confirm.message != "서클원 추출을 진행하시려면 [확인]을 눌러주세요." {
		t.Errorf("confirm message = %q", confirm.message)
	}

	f, err := excelize.OpenFile(report.Path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()
	title, _ := f.GetCellValue("2025-01-15", "A1")
	if title != "2025-01-15 14:00:00 수요일" {
		t.Errorf("title = %q", title)
	}
	nick, _ := f.GetCellValue("2025-01-15", "D3")
	if nick != "Alice" {
		t.Errorf("D3 = %q, want Alice", nick)
	}
	nick, _ = f.GetCellValue("2025-01-15", "D4")
	if nick != "Zed" {
		t.Errorf("D4 = %q, want Zed", nick)
	}

	runs, err := h.history.ListRuns(0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %v, %v", runs, err)
	}
	run := runs[0]
	if run.Status != database.RunCompleted || run.Extractor != "circle" || run.RowsExported != 2 ||
		run.Tokens != 12 || run.Merges != 1 || !run.Converged || run.CanvasHeight != 90 {
		t.Errorf("unexpected run: %+v", run)
	}

	for _, typ := range []events.EventType{
		events.EventTypeExtractionStarted,
		events.EventTypeScrollFinished,
		events.EventTypeOCRCompleted,
		events.EventTypeExportCompleted,
		events.EventTypeExtractionCompleted,
	} {
		if len(h.recorder.Events(typ)) != 1 {
			t.Errorf("expected one %s event", typ)
		}
	}
}

func TestPipelineDeclineOpen(t *testing.T) {
	h := newHarness(t, circleTokens())
	h.prompter.answers = []bool{true, false}

	report, err := h.pipeline.Run(context.Background(), Circle{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Opened || len(h.opened) != 0 {
		t.Error("workbook opened after the user declined")
	}
}

func TestPipelineRequiresOCRSettings(t *testing.T) {
	h := newHarness(t, nil)
	s := h.settings
	s.ClovaAPI = config.ClovaAPI{}
	h.pipeline.Settings = staticSettings{settings: s}

	_, err := h.pipeline.Run(context.Background(), Circle{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	alert, ok := h.prompter.find("alert")
	if !ok || alert.message != msgOCRNotConfigured {
		t.Errorf("alert = %+v", alert)
	}
	if _, asked := h.prompter.find("confirm"); asked {
		t.Error("confirmation shown before settings were complete")
	}
	if runs, _ := h.history.ListRuns(0); len(runs) != 0 {
		t.Errorf("run recorded: %v", runs)
	}
}

func TestPipelineTesseractSkipsClovaCheck(t *testing.T) {
	h := newHarness(t, circleTokens())
	s := h.settings
	s.ClovaAPI = config.ClovaAPI{}
	s.OCRBackend = ocr.BackendTesseract
	h.pipeline.Settings = staticSettings{settings: s}

	if _, err := h.pipeline.Run(context.Background(), Circle{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestPipelineDustNeedsStartDate(t *testing.T) {
	h := newHarness(t, nil)
	s := h.settings
	s.DustStartDate = config.DefaultDustStartDate
	h.pipeline.Settings = staticSettings{settings: s}

	_, err := h.pipeline.Run(context.Background(), Dust{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	alert, _ := h.prompter.find("alert")
	if alert.message != "흙먼지 전선의 시작일을 설정해주세요." {
		t.Errorf("alert = %q", alert.message)
	}
}

func TestPipelineCancelled(t *testing.T) {
	h := newHarness(t, circleTokens())
	h.prompter.answers = []bool{false}

	_, err := h.pipeline.Run(context.Background(), Circle{})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(h.recorder.Events(events.EventTypeExtractionCancelled)) != 1 {
		t.Error("missing cancelled event")
	}
	if runs, _ := h.history.ListRuns(0); len(runs) != 0 {
		t.Errorf("run recorded: %v", runs)
	}
}

func TestPipelineWindowNotFound(t *testing.T) {
	h := newHarness(t, nil)
	h.pipeline.Finder = finderFunc(func(string) (window.Window, error) {
		return nil, window.ErrWindowNotFound
	})

	_, err := h.pipeline.Run(context.Background(), Circle{})
	if !errors.Is(err, window.ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}

	shown, ok := h.prompter.find("error")
	if !ok || shown.title != titleError || !strings.HasPrefix(shown.message, msgFailurePrefix) {
		t.Errorf("error dialog = %+v", shown)
	}

	runs, _ := h.history.ListRuns(0)
	if len(runs) != 1 || runs[0].Status != database.RunFailed || runs[0].ErrorMessage == nil {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	reports := h.pipeline.Reporter.GetRecentErrors(1)
	if len(reports) != 1 || reports[0].Category != logging.ErrorCategorySystem {
		t.Errorf("unexpected reports: %+v", reports)
	}
	if !strings.Contains(h.crashLog.String(), "system/high in Pipeline") {
		t.Errorf("crash log missing traceback header:\n%s", h.crashLog.String())
	}
	if len(h.recorder.Events(events.EventTypeExtractionFailed)) != 1 {
		t.Error("missing failed event")
	}
}

func TestPipelineOCRFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.recognizer.err = &ocr.StatusError{StatusCode: 401, Body: "unauthorized"}

	_, err := h.pipeline.Run(context.Background(), Circle{})
	var statusErr *ocr.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	reports := h.pipeline.Reporter.GetRecentErrors(1)
	if len(reports) != 1 || reports[0].Category != logging.ErrorCategoryOCR {
		t.Errorf("unexpected reports: %+v", reports)
	}
	shown, _ := h.prompter.find("error")
	if !strings.Contains(shown.message, "401") {
		t.Errorf("error dialog = %q", shown.message)
	}
}

func TestPipelineBusy(t *testing.T) {
	h := newHarness(t, nil)
	h.pipeline.running.Store(true)

	if _, err := h.pipeline.Run(context.Background(), Circle{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(h.prompter.dialogs) != 0 {
		t.Error("dialogs shown while busy")
	}
}

func TestPipelineRestoresForegroundWindow(t *testing.T) {
	h := newHarness(t, circleTokens())
	prev := &activationCounter{}
	h.pipeline.Restore = nil
	h.pipeline.Finder = foregroundFinder{target: newReplay(t), prev: prev}

	if _, err := h.pipeline.Run(context.Background(), Circle{}); err != nil {
		t.Fatal(err)
	}
	if prev.activations != 1 {
		t.Errorf("previous window activated %d times, want 1", prev.activations)
	}
	if h.pipeline.Running() {
		t.Error("pipeline still marked running")
	}
}

func TestPipelineRestoresBeforeOCR(t *testing.T) {
	h := newHarness(t, circleTokens())
	var order []string
	h.pipeline.Restore = func() { order = append(order, "restore") }
	h.recognizer.onCall = func() { order = append(order, "ocr") }

	if _, err := h.pipeline.Run(context.Background(), Circle{}); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "restore" || order[1] != "ocr" {
		t.Errorf("call order = %v, want [restore ocr]", order)
	}
}

func TestPipelineDustOutput(t *testing.T) {
	tokens := []string{"Alice", highTitle, totalTitle, "Lv.40", "서클원", "1200", "16000"}
	h := newHarness(t, tokens)

	report, err := h.pipeline.Run(context.Background(), Dust{})
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(h.settings.OutputDir+"_dust", "2025-01-15.xlsx")
	if report.Path != want {
		t.Errorf("Path = %s, want %s", report.Path, want)
	}
	if report.Rows != 1 {
		t.Errorf("Rows = %d", report.Rows)
	}
}
