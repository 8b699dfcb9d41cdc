package logging

import (
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	ErrorCategoryConfig  ErrorCategory = "config"
	ErrorCategoryBackend ErrorCategory = "backend"
	ErrorCategoryOCR     ErrorCategory = "ocr"
	ErrorCategoryExport  ErrorCategory = "export"
	ErrorCategoryStorage ErrorCategory = "storage"
	ErrorCategorySystem  ErrorCategory = "system"
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityCritical ErrorSeverity = "critical"
)

// ErrorReport represents a detailed error report
type ErrorReport struct {
	Timestamp   time.Time              `json:"timestamp"`
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Component   string                 `json:"component"`
	Message     string                 `json:"message"`
	Error       error                  `json:"error"`
	Context     map[string]interface{} `json:"context,omitempty"`
	StackTrace  string                 `json:"stack_trace,omitempty"`
	Recoverable bool                   `json:"recoverable"`
}

// Summary is the one-line text shown to the user.
func (r *ErrorReport) Summary() string {
	if r.Error == nil {
		return r.Message
	}
	return fmt.Sprintf("%s: %v", r.Message, r.Error)
}

// ErrorReporter provides centralized error reporting. Reports at high severity and above
// are also written, with a stack trace, to the crash log if one is attached.
type ErrorReporter struct {
	logger         *Logger
	crashLog       io.Writer
	crashMu        sync.Mutex
	errorHistory   []*ErrorReport
	errorHistoryMu sync.RWMutex
	maxHistory     int

	// Error callbacks for different severities
	callbacks   map[ErrorSeverity][]ErrorCallback
	callbacksMu sync.RWMutex
}

// ErrorCallback is called when an error is reported
type ErrorCallback func(report *ErrorReport)

// NewErrorReporter creates a new error reporter
func NewErrorReporter() *ErrorReporter {
	return &ErrorReporter{
		logger:       NewLogger("ErrorReporter"),
		errorHistory: make([]*ErrorReport, 0),
		maxHistory:   200,
		callbacks:    make(map[ErrorSeverity][]ErrorCallback),
	}
}

// SetLogger sets the logger for the error reporter
func (er *ErrorReporter) SetLogger(logger *Logger) {
	er.logger = logger
}

// SetCrashLog attaches the writer that receives full tracebacks (error.log).
func (er *ErrorReporter) SetCrashLog(w io.Writer) {
	er.crashMu.Lock()
	defer er.crashMu.Unlock()
	er.crashLog = w
}

// Report reports an error with full details
func (er *ErrorReporter) Report(report *ErrorReport) {
	report.Timestamp = time.Now()
	if report.StackTrace == "" && (report.Severity == ErrorSeverityHigh || report.Severity == ErrorSeverityCritical) {
		report.StackTrace = string(debug.Stack())
	}

	er.logError(report)
	er.writeCrashLog(report)
	er.addToHistory(report)
	er.invokeCallbacks(report)
}

// ReportError reports a simple error
func (er *ErrorReporter) ReportError(category ErrorCategory, severity ErrorSeverity, component, message string, err error) {
	er.Report(&ErrorReport{
		Category:    category,
		Severity:    severity,
		Component:   component,
		Message:     message,
		Error:       err,
		Recoverable: true,
	})
}

// ReportErrorWithContext reports an error with additional context
func (er *ErrorReporter) ReportErrorWithContext(category ErrorCategory, severity ErrorSeverity, component, message string, err error, context map[string]interface{}) {
	er.Report(&ErrorReport{
		Category:    category,
		Severity:    severity,
		Component:   component,
		Message:     message,
		Error:       err,
		Context:     context,
		Recoverable: true,
	})
}

// logError logs an error report
func (er *ErrorReporter) logError(report *ErrorReport) {
	context := map[string]interface{}{
		"category":    string(report.Category),
		"severity":    string(report.Severity),
		"component":   report.Component,
		"recoverable": report.Recoverable,
	}
	for k, v := range report.Context {
		context[k] = v
	}

	switch report.Severity {
	case ErrorSeverityCritical:
		er.logger.FatalWithContext(report.Message, report.Error, context)
	case ErrorSeverityHigh:
		er.logger.ErrorWithContext(report.Message, report.Error, context)
	case ErrorSeverityMedium:
		er.logger.WarnWithContext(report.Summary(), context)
	case ErrorSeverityLow:
		er.logger.InfoWithContext(report.Summary(), context)
	}
}

func (er *ErrorReporter) writeCrashLog(report *ErrorReport) {
	if report.StackTrace == "" {
		return
	}

	er.crashMu.Lock()
	defer er.crashMu.Unlock()
	if er.crashLog == nil {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s/%s in %s\n", report.Timestamp.Format("2006-01-02 15:04:05"),
		report.Category, report.Severity, report.Component)
	fmt.Fprintf(&b, "%s\n", report.Summary())
	b.WriteString(report.StackTrace)
	if !strings.HasSuffix(report.StackTrace, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n")
	io.WriteString(er.crashLog, b.String())
}

// addToHistory adds an error to the history
func (er *ErrorReporter) addToHistory(report *ErrorReport) {
	er.errorHistoryMu.Lock()
	defer er.errorHistoryMu.Unlock()

	er.errorHistory = append(er.errorHistory, report)
	if len(er.errorHistory) > er.maxHistory {
		er.errorHistory = er.errorHistory[len(er.errorHistory)-er.maxHistory:]
	}
}

// invokeCallbacks runs the callbacks registered for the report's severity, in order.
func (er *ErrorReporter) invokeCallbacks(report *ErrorReport) {
	er.callbacksMu.RLock()
	callbacks := er.callbacks[report.Severity]
	er.callbacksMu.RUnlock()

	for _, callback := range callbacks {
		callback(report)
	}
}

// OnError registers a callback for a specific error severity
func (er *ErrorReporter) OnError(severity ErrorSeverity, callback ErrorCallback) {
	er.callbacksMu.Lock()
	defer er.callbacksMu.Unlock()

	er.callbacks[severity] = append(er.callbacks[severity], callback)
}

// GetRecentErrors returns the N most recent errors
func (er *ErrorReporter) GetRecentErrors(n int) []*ErrorReport {
	er.errorHistoryMu.RLock()
	defer er.errorHistoryMu.RUnlock()

	if n > len(er.errorHistory) {
		n = len(er.errorHistory)
	}

	start := len(er.errorHistory) - n
	result := make([]*ErrorReport, n)
	copy(result, er.errorHistory[start:])

	return result
}

// GetErrorsByCategory returns errors filtered by category, newest first
func (er *ErrorReporter) GetErrorsByCategory(category ErrorCategory, limit int) []*ErrorReport {
	er.errorHistoryMu.RLock()
	defer er.errorHistoryMu.RUnlock()

	result := make([]*ErrorReport, 0)
	for i := len(er.errorHistory) - 1; i >= 0 && len(result) < limit; i-- {
		if er.errorHistory[i].Category == category {
			result = append(result, er.errorHistory[i])
		}
	}

	return result
}

// GetErrorStats returns counts keyed by severity_<s>, category_<c>, recoverable and total
func (er *ErrorReporter) GetErrorStats() map[string]int {
	er.errorHistoryMu.RLock()
	defer er.errorHistoryMu.RUnlock()

	stats := map[string]int{
		"total":           len(er.errorHistory),
		"recoverable":     0,
		"non_recoverable": 0,
	}

	for _, report := range er.errorHistory {
		stats[fmt.Sprintf("severity_%s", report.Severity)]++
		stats[fmt.Sprintf("category_%s", report.Category)]++
		if report.Recoverable {
			stats["recoverable"]++
		} else {
			stats["non_recoverable"]++
		}
	}

	return stats
}

// Clear clears the error history
func (er *ErrorReporter) Clear() {
	er.errorHistoryMu.Lock()
	defer er.errorHistoryMu.Unlock()

	er.errorHistory = make([]*ErrorReport, 0)
}
