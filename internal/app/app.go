// Package app owns the process-lifetime state shared by the GUI and the command line tools.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/database"
	"jordanella.com/noruhunter-go/internal/events"
	"jordanella.com/noruhunter-go/internal/excel"
	"jordanella.com/noruhunter-go/internal/extract"
	"jordanella.com/noruhunter-go/internal/logging"
	"jordanella.com/noruhunter-go/internal/roster"
	"jordanella.com/noruhunter-go/internal/window"
)

// ErrorLogFileName receives tracebacks of failed runs
const ErrorLogFileName = "error.log"

const eventBufferSize = 256

// historyRetentionDays bounds how long runs and errors stay in history.db
const historyRetentionDays = 180

// Paths locates every file the program reads or writes
type Paths struct {
	Config   string
	Layouts  string
	Roster   string
	History  string
	ErrorLog string
	EnvFiles []string
}

// DefaultPaths places every file in dir. .env is looked up beside the executable and in dir.
func DefaultPaths(dir string) Paths {
	p := Paths{
		Config:   filepath.Join(dir, config.DefaultFileName),
		Layouts:  filepath.Join(dir, config.LayoutsFileName),
		Roster:   filepath.Join(dir, roster.DefaultFileName),
		History:  filepath.Join(dir, database.DefaultFileName),
		ErrorLog: filepath.Join(dir, ErrorLogFileName),
	}
	if exe, err := os.Executable(); err == nil {
		p.EnvFiles = append(p.EnvFiles, filepath.Join(filepath.Dir(exe), ".env"))
	}
	p.EnvFiles = append(p.EnvFiles, filepath.Join(dir, ".env"))
	return p
}

// Context holds the stores, logger and pipeline for one process.
type Context struct {
	Paths    Paths
	Logger   *logging.Logger
	Reporter *logging.ErrorReporter
	Config   *config.Store
	Layouts  config.Layouts
	Roster   *roster.Store
	History  *database.DB
	Events   *events.DefaultEventBus
	Pipeline *extract.Pipeline

	errorLog    *os.File
	eventLogger *logging.EventLogger
}

// New opens every store and builds the extraction pipeline. finder and prompter are
// supplied by the caller because they depend on the user interface in use.
func New(paths Paths, finder window.Finder, prompter extract.Prompter) (*Context, error) {
	logger := logging.NewLogger("App")

	c := &Context{Paths: paths, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	var err error
	c.Config, err = config.Load(paths.Config, logger.Named("Config"), paths.EnvFiles...)
	if err != nil {
		return nil, err
	}
	settings, err := c.Config.Snapshot()
	if err != nil {
		return nil, err
	}
	logger.SetMinLevel(logging.ParseLevel(settings.LogLevel))

	errorLog, err := logging.OpenFile(paths.ErrorLog)
	if err != nil {
		return nil, err
	}
	c.errorLog = errorLog

	c.Reporter = logging.NewErrorReporter()
	c.Reporter.SetLogger(logger.Named("ErrorReporter"))
	c.Reporter.SetCrashLog(errorLog)

	c.Layouts, err = config.LoadLayouts(paths.Layouts)
	if err != nil {
		// Built-in layouts are still usable
		c.Reporter.ReportError(logging.ErrorCategoryConfig, logging.ErrorSeverityMedium, "App", "Ignoring layouts file", err)
	}

	c.Roster, err = roster.Open(paths.Roster, logger.Named("Roster"))
	if err != nil {
		return nil, err
	}

	c.History, err = database.OpenAndMigrate(paths.History, logger.Named("Database"))
	if err != nil {
		return nil, err
	}
	c.History.AttachReporter(c.Reporter, logging.ErrorSeverityMedium, logging.ErrorSeverityHigh, logging.ErrorSeverityCritical)
	if n, err := c.History.CleanupOldRuns(historyRetentionDays); err != nil {
		logger.Error("History cleanup failed", err)
	} else if n > 0 {
		logger.Infof("Removed %d runs older than %d days", n, historyRetentionDays)
		if err := c.History.Vacuum(); err != nil {
			logger.Error("Vacuum failed", err)
		}
	}

	c.Events = events.NewEventBus(eventBufferSize)
	c.eventLogger = logging.NewEventLogger(c.Events, logger.Named("Events"))
	c.Config.OnChange(func(path string) {
		c.Events.Publish(events.NewConfigChangedEvent(path))
	})

	c.Pipeline = extract.NewPipeline(c.Config, c.Roster, finder, prompter, logger.Named("Pipeline"))
	c.Pipeline.Layouts = c.Layouts
	c.Pipeline.Reporter = c.Reporter
	c.Pipeline.History = c.History
	c.Pipeline.Events = c.Events
	c.Pipeline.Exporter = excel.NewExporter(logger.Named("Excel"))

	ok = true
	logger.InfoWithContext("Started", map[string]interface{}{
		"config":  paths.Config,
		"roster":  paths.Roster,
		"members": c.Roster.Len(),
	})
	return c, nil
}

// Extractors lists the extractors offered to the user, in menu order
func (c *Context) Extractors() []extract.Extractor {
	return []extract.Extractor{extract.Circle{}, extract.Dust{}}
}

// Close releases the stores and flushes pending events.
func (c *Context) Close() error {
	var errs []error
	if c.eventLogger != nil {
		c.eventLogger.Close()
		c.eventLogger = nil
	}
	if c.Events != nil {
		c.Events.Stop()
		c.Events = nil
	}
	if c.History != nil {
		if err := c.History.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close history: %w", err))
		}
		c.History = nil
	}
	if c.errorLog != nil {
		if err := c.errorLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close error log: %w", err))
		}
		c.errorLog = nil
	}
	return errors.Join(errs...)
}
