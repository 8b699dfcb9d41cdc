package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/database"
	"jordanella.com/noruhunter-go/internal/events"
	"jordanella.com/noruhunter-go/internal/excel"
	"jordanella.com/noruhunter-go/internal/logging"
	"jordanella.com/noruhunter-go/internal/ocr"
	"jordanella.com/noruhunter-go/internal/scroll"
	"jordanella.com/noruhunter-go/internal/window"
)

// User-facing messages
const (
	msgOCRNotConfigured = "CLOVA OCR API 설정을 완료하신 뒤 사용하실 수 있습니다."
	msgConfirmSuffix    = "을 진행하시려면 [확인]을 눌러주세요."
	msgOpenWorkbook     = "추출이 완료되었습니다. 엑셀파일을 실행하시겠습니까?"
	msgFailurePrefix    = "목록 추출 실패: "

	titleNotice  = "알림"
	titleExtract = "추출"
	titleError   = "에러"
)

// DefaultActivateDelay is the pause after raising the game window before the first capture
const DefaultActivateDelay = time.Second

var weekdays = [...]string{"월요일", "화요일", "수요일", "목요일", "금요일", "토요일", "일요일"}

// KoreanWeekday names the weekday of t, Monday first.
func KoreanWeekday(t time.Time) string {
	return weekdays[(int(t.Weekday())+6)%7]
}

// Prompter shows blocking dialogs to the user
type Prompter interface {
	Alert(title, message string)
	Confirm(title, message string) bool
	Error(title, message string)
}

// History records extraction runs
type History interface {
	StartRun(extractor, windowTitle string, startedAt time.Time) (int64, error)
	CompleteRun(runID int64, completedAt time.Time, outcome database.RunOutcome) error
	FailRun(runID int64, completedAt time.Time, message string) error
}

// SettingsSource provides the current settings
type SettingsSource interface {
	Snapshot() (config.Settings, error)
}

// RecognizerFactory builds the OCR backend for the current settings
type RecognizerFactory func(settings config.Settings) (ocr.Recognizer, error)

// DefaultRecognizer builds the backend named in the settings
func DefaultRecognizer(s config.Settings) (ocr.Recognizer, error) {
	return ocr.New(ocr.Settings{
		Backend:  s.OCRBackend,
		ClovaURL: s.ClovaAPI.URL,
		ClovaKey: s.ClovaAPI.Secret,
	})
}

// Report summarizes a successful run
type Report struct {
	Extractor    string
	Path         string
	Sheet        string
	Rows         int
	Tokens       int
	Capture      *scroll.Result
	CopiedSheets []string
	Duration     time.Duration
	Opened       bool
}

// Pipeline runs one extractor end to end. Only one run may be active at a time.
type Pipeline struct {
	Settings   SettingsSource
	Layouts    config.Layouts
	Roster     Lookup
	Finder     window.Finder
	Prompter   Prompter
	Exporter   *excel.Exporter
	Recognizer RecognizerFactory
	History    History          // optional
	Events     events.Publisher // optional
	Reporter   *logging.ErrorReporter
	Logger     *logging.Logger

	// Matcher overrides the engine's matcher when set
	Matcher cv.Matcher
	// Timing supplies the capture delays and threshold; counts come from the settings
	Timing        scroll.Options
	ActivateDelay time.Duration
	Sleep         func(time.Duration)
	Now           func() time.Time

	// Restore re-raises the caller's window after capture. When nil and Finder can report
	// the foreground window, the window focused before the run is re-activated.
	Restore func()
	// Open launches the finished workbook
	Open func(path string) error

	running atomic.Bool
}

// NewPipeline creates a pipeline with production defaults
func NewPipeline(settings SettingsSource, members Lookup, finder window.Finder, prompter Prompter, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	reporter := logging.NewErrorReporter()
	reporter.SetLogger(logger.Named("ErrorReporter"))
	return &Pipeline{
		Settings:      settings,
		Layouts:       config.DefaultLayouts(),
		Roster:        members,
		Finder:        finder,
		Prompter:      prompter,
		Exporter:      excel.NewExporter(logger.Named("Excel")),
		Recognizer:    DefaultRecognizer,
		Events:        events.Discard,
		Reporter:      reporter,
		Logger:        logger,
		Timing:        scroll.DefaultOptions(),
		ActivateDelay: DefaultActivateDelay,
		Sleep:         time.Sleep,
		Now:           time.Now,
	}
}

// Running reports whether a run is in progress
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run executes ex: settings check, confirmation, capture, OCR, repair, export and the
// offer to open the result. Failures after confirmation are logged, recorded and shown.
func (p *Pipeline) Run(ctx context.Context, ex Extractor) (*Report, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.running.Store(false)

	publisher := p.publisher()

	settings, err := p.Settings.Snapshot()
	if err != nil {
		p.showFailure(ex, 0, &stageError{logging.ErrorCategoryConfig, err})
		return nil, err
	}

	if err := p.preflight(ex, settings); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			p.Prompter.Alert(titleNotice, cfgErr.Message)
		}
		return nil, err
	}

	if !p.Prompter.Confirm(titleExtract, ex.Name()+msgConfirmSuffix) {
		publisher.Publish(events.NewExtractionCancelledEvent(ex.Kind()))
		return nil, ErrCancelled
	}

	started := p.now()
	runID := p.startRun(ex, settings, started)
	publisher.Publish(events.NewExtractionStartedEvent(ex.Kind(), settings.WindowTitle))

	report, err := p.extract(ctx, ex, settings)
	if err != nil {
		p.showFailure(ex, runID, err)
		return nil, err
	}
	report.Duration = p.now().Sub(started)

	p.completeRun(runID, report)
	publisher.Publish(events.NewExtractionCompletedEvent(ex.Kind(), report.Path, report.Rows, report.Duration))
	p.logger().InfoWithContext("Extraction completed", map[string]interface{}{
		"extractor": ex.Kind(),
		"rows":      report.Rows,
		"path":      report.Path,
		"duration":  report.Duration.String(),
	})

	if p.Prompter.Confirm(titleExtract, msgOpenWorkbook) && p.Open != nil {
		if err := p.Open(report.Path); err != nil {
			p.logger().Error("Failed to open workbook", err)
		} else {
			report.Opened = true
		}
	}

	return report, nil
}

func (p *Pipeline) preflight(ex Extractor, s config.Settings) error {
	backend := strings.ToLower(strings.TrimSpace(s.OCRBackend))
	if (backend == "" || backend == ocr.BackendClova) && !s.OCRConfigured() {
		return &ConfigError{Message: msgOCRNotConfigured}
	}
	return ex.Preflight(s)
}

func (p *Pipeline) extract(ctx context.Context, ex Extractor, settings config.Settings) (*Report, error) {
	restore := p.Restore
	if restore == nil {
		restore = p.foregroundRestorer()
	}

	win, err := p.Finder.Find(settings.WindowTitle)
	if err != nil {
		return nil, &stageError{logging.ErrorCategorySystem, fmt.Errorf("failed to find window %q: %w", settings.WindowTitle, err)}
	}
	if err := win.Activate(); err != nil {
		return nil, &stageError{logging.ErrorCategorySystem, fmt.Errorf("failed to activate window: %w", err)}
	}
	p.sleep(p.ActivateDelay)

	client, err := win.ClientArea()
	if err != nil {
		return nil, &stageError{logging.ErrorCategorySystem, fmt.Errorf("failed to read client area: %w", err)}
	}
	layout := ex.Layout(p.Layouts).Select(client)

	opts := p.Timing
	opts.MaxScrolls = settings.MaxScrolls
	opts.ScrollStep = ex.ScrollStep(settings)
	if opts.Sleep == nil {
		opts.Sleep = p.Sleep
	}
	engine := scroll.NewEngine(win, opts)
	engine.Logger = p.logger().Named("Scroll")
	engine.Events = p.publisher()
	if p.Matcher != nil {
		engine.Matcher = p.Matcher
	}

	capture, err := engine.CaptureFullList(layout)
	// OCR does not need the game window, so the user gets theirs back now.
	if restore != nil {
		restore()
	}
	if err != nil {
		return nil, &stageError{logging.ErrorCategoryBackend, err}
	}

	list := cv.CropLeft(capture.Canvas, layout.ProfileOffset(client))

	recognizer, err := p.Recognizer(settings)
	if err != nil {
		return nil, &stageError{logging.ErrorCategoryConfig, fmt.Errorf("failed to create OCR backend: %w", err)}
	}
	tokens, err := recognizer.Recognize(ctx, list)
	if err != nil {
		return nil, &stageError{logging.ErrorCategoryOCR, err}
	}
	p.publisher().Publish(events.NewOCRCompletedEvent(recognizer.Name(), len(tokens)))
	p.logger().DebugWithContext("OCR tokens", map[string]interface{}{"count": len(tokens)})

	tokens = ex.Repair(tokens, p.Roster)
	rows := Group(tokens, ex.Fields())

	now := p.now()
	columns := ex.Columns()
	cells := make([][]excel.Cell, len(rows))
	for i, row := range rows {
		env := Env{Row: row, Now: now, Settings: settings}
		if p.Roster != nil {
			env.Member, env.Known = p.Roster.FindByNickname(row.String("nickname"))
		}
		cells[i] = Cells(columns, env)
	}

	sheet := now.Format(excel.SheetDateLayout)
	title := fmt.Sprintf("%s %s %s", sheet, now.Format("15:04:05"), KoreanWeekday(now))
	path := filepath.Join(ex.OutputDir(settings), sheet+".xlsx")

	exporter := p.Exporter
	if exporter == nil {
		exporter = excel.NewExporter(p.logger().Named("Excel"))
	}
	result, err := exporter.Export(path, sheet, title, Headers(columns), cells)
	if err != nil {
		return nil, &stageError{logging.ErrorCategoryExport, err}
	}
	p.publisher().Publish(events.NewExportCompletedEvent(result.Path, result.Sheet, result.Rows, len(result.CopiedSheets)))

	return &Report{
		Extractor:    ex.Kind(),
		Path:         result.Path,
		Sheet:        result.Sheet,
		Rows:         len(rows),
		Tokens:       len(tokens),
		Capture:      capture,
		CopiedSheets: result.CopiedSheets,
	}, nil
}

// foregroundRestorer remembers the focused window so it can be raised again after capture.
func (p *Pipeline) foregroundRestorer() func() {
	ff, ok := p.Finder.(window.ForegroundFinder)
	if !ok {
		return nil
	}
	prev, err := ff.Foreground()
	if err != nil || prev == nil {
		return nil
	}
	return func() {
		if err := prev.Activate(); err != nil {
			p.logger().Warnf("Failed to restore foreground window: %v", err)
		}
	}
}

func (p *Pipeline) showFailure(ex Extractor, runID int64, err error) {
	category := logging.ErrorCategorySystem
	var se *stageError
	if errors.As(err, &se) {
		category = se.category
	}

	details := map[string]interface{}{"extractor": ex.Kind()}
	if runID > 0 {
		details["run_id"] = runID
	}
	if p.Reporter != nil {
		p.Reporter.ReportErrorWithContext(category, logging.ErrorSeverityHigh, "Pipeline", "추출 중 에러 발생", err, details)
	} else {
		p.logger().ErrorWithContext("추출 중 에러 발생", err, details)
	}

	if p.History != nil && runID > 0 {
		if herr := p.History.FailRun(runID, p.now(), err.Error()); herr != nil {
			p.logger().Error("Failed to record failed run", herr)
		}
	}
	p.publisher().Publish(events.NewExtractionFailedEvent(ex.Kind(), err))
	p.Prompter.Error(titleError, msgFailurePrefix+err.Error())
}

func (p *Pipeline) startRun(ex Extractor, s config.Settings, started time.Time) int64 {
	if p.History == nil {
		return 0
	}
	id, err := p.History.StartRun(ex.Kind(), s.WindowTitle, started)
	if err != nil {
		p.logger().Error("Failed to record run start", err)
		return 0
	}
	return id
}

func (p *Pipeline) completeRun(runID int64, r *Report) {
	if p.History == nil || runID == 0 {
		return
	}
	outcome := database.RunOutcome{
		Tokens:       r.Tokens,
		Rows:         r.Rows,
		OutputPath:   r.Path,
		CopiedSheets: len(r.CopiedSheets),
	}
	if r.Capture != nil {
		outcome.Scrolls = r.Capture.Scrolls
		outcome.Merges = r.Capture.Merges
		outcome.Converged = r.Capture.Converged
		outcome.CanvasHeight = r.Capture.Canvas.Bounds().Dy()
	}
	if err := p.History.CompleteRun(runID, p.now(), outcome); err != nil {
		p.logger().Error("Failed to record completed run", err)
	}
}

func (p *Pipeline) publisher() events.Publisher {
	if p.Events == nil {
		return events.Discard
	}
	return p.Events
}

func (p *Pipeline) logger() *logging.Logger {
	if p.Logger == nil {
		return logging.NewNopLogger()
	}
	return p.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func (p *Pipeline) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if p.Sleep == nil {
		time.Sleep(d)
		return
	}
	p.Sleep(d)
}

// stageError tags an error with the reporting category of the step that produced it.
type stageError struct {
	category logging.ErrorCategory
	err      error
}

func (e *stageError) Error() string { return e.err.Error() }

func (e *stageError) Unwrap() error { return e.err }
