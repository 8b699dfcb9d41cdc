package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/noruhunter-go/internal/events"
	"jordanella.com/noruhunter-go/internal/gui/components"
)

// LogLevel represents log severity
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Source    string
	Message   string
}

const maxLogEntries = 1000

// LogTab shows the pipeline's progress events
type LogTab struct {
	logs   []LogEntry
	logsMu sync.RWMutex

	logList      *widget.List
	filterSelect *widget.Select
	autoScroll   *widget.Check
}

// NewLogTab creates an empty log tab
func NewLogTab() *LogTab {
	return &LogTab{logs: make([]LogEntry, 0, 64)}
}

// Subscribe adds every domain event to the log
func (l *LogTab) Subscribe(bus *EventBus) {
	for _, t := range events.AllEventTypes {
		bus.Subscribe(t, func(e events.Event) {
			l.Add(DescribeEvent(e))
		})
	}
}

// Build constructs the log viewer UI
func (l *LogTab) Build() fyne.CanvasObject {
	l.filterSelect = widget.NewSelect([]string{"All", "DEBUG", "INFO", "WARN", "ERROR"}, func(string) {
		if l.logList != nil {
			l.logList.Refresh()
		}
	})
	l.filterSelect.SetSelected("INFO")

	l.autoScroll = widget.NewCheck("자동 스크롤", nil)
	l.autoScroll.SetChecked(true)

	clearBtn := widget.NewButton("지우기", l.Clear)

	l.logList = widget.NewList(
		func() int { return len(l.filtered()) },
		func() fyne.CanvasObject {
			return container.NewHBox(widget.NewLabel("00:00:00"), widget.NewLabel("[LEVEL]"), widget.NewLabel("message"))
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			entries := l.filtered()
			if id < 0 || id >= len(entries) {
				return
			}
			entry := entries[id]
			box := item.(*fyne.Container)
			box.Objects[0].(*widget.Label).SetText(entry.Timestamp.Format("15:04:05"))

			level := box.Objects[1].(*widget.Label)
			level.SetText(fmt.Sprintf("[%s]", entry.Level))
			switch entry.Level {
			case LogLevelDebug:
				level.Importance = widget.LowImportance
			case LogLevelWarn:
				level.Importance = widget.WarningImportance
			case LogLevelError:
				level.Importance = widget.DangerImportance
			default:
				level.Importance = widget.MediumImportance
			}
			level.Refresh()

			box.Objects[2].(*widget.Label).SetText(entry.Message)
		},
	)

	controls := container.NewHBox(widget.NewLabel("필터:"), l.filterSelect, l.autoScroll, clearBtn)
	return container.NewBorder(
		container.NewVBox(components.Heading("로그"), controls),
		nil, nil, nil,
		l.logList,
	)
}

// Add appends an entry. Must run on the UI goroutine once the tab is built.
func (l *LogTab) Add(entry LogEntry) {
	l.logsMu.Lock()
	l.logs = append(l.logs, entry)
	if len(l.logs) > maxLogEntries {
		l.logs = l.logs[len(l.logs)-maxLogEntries:]
	}
	l.logsMu.Unlock()

	if l.logList != nil {
		l.logList.Refresh()
		if l.autoScroll != nil && l.autoScroll.Checked {
			l.logList.ScrollToBottom()
		}
	}
}

// Clear removes all log entries
func (l *LogTab) Clear() {
	l.logsMu.Lock()
	l.logs = l.logs[:0]
	l.logsMu.Unlock()
	if l.logList != nil {
		l.logList.Refresh()
	}
}

// Entries returns a copy of every entry
func (l *LogTab) Entries() []LogEntry {
	l.logsMu.RLock()
	defer l.logsMu.RUnlock()
	return append([]LogEntry(nil), l.logs...)
}

// filtered returns the entries at or above the selected level
func (l *LogTab) filtered() []LogEntry {
	selected := "All"
	if l.filterSelect != nil && l.filterSelect.Selected != "" {
		selected = l.filterSelect.Selected
	}
	return filterLogs(l.Entries(), selected)
}

func filterLogs(entries []LogEntry, selected string) []LogEntry {
	if selected == "All" {
		return entries
	}
	floor := LogLevelDebug
	for lvl := LogLevelDebug; lvl <= LogLevelError; lvl++ {
		if lvl.String() == selected {
			floor = lvl
		}
	}
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Level >= floor {
			out = append(out, e)
		}
	}
	return out
}

// DescribeEvent renders a domain event as a log line
func DescribeEvent(e events.Event) LogEntry {
	entry := LogEntry{Timestamp: e.Timestamp, Level: LogLevelInfo, Source: e.Source}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	d := e.Data

	switch e.Type {
	case events.EventTypeExtractionStarted:
		entry.Message = fmt.Sprintf("%v 추출 시작 (%v)", d["extractor"], d["window_title"])
	case events.EventTypeExtractionCompleted:
		entry.Message = fmt.Sprintf("%v 추출 완료: %v행, %v", d["extractor"], d["rows"], d["output_path"])
	case events.EventTypeExtractionFailed:
		entry.Level = LogLevelError
		entry.Message = fmt.Sprintf("%v 추출 실패: %v", d["extractor"], d["error"])
	case events.EventTypeExtractionCancelled:
		entry.Message = fmt.Sprintf("%v 추출 취소", d["extractor"])
	case events.EventTypeScrollProgress:
		entry.Level = LogLevelDebug
		entry.Message = fmt.Sprintf("스크롤 %v/%v score=%.3f offset=%v merged=%v",
			d["scroll"], d["max_scrolls"], d["score"], d["offset"], d["merged"])
	case events.EventTypeScrollFinished:
		if converged, _ := d["converged"].(bool); !converged {
			entry.Level = LogLevelWarn
		}
		entry.Message = fmt.Sprintf("캡처 완료: 스크롤 %v회, 병합 %v회, 높이 %vpx", d["scrolls"], d["merges"], d["height"])
	case events.EventTypeOCRCompleted:
		entry.Message = fmt.Sprintf("OCR 완료 (%v): 토큰 %v개", d["backend"], d["tokens"])
	case events.EventTypeExportCompleted:
		entry.Message = fmt.Sprintf("엑셀 저장: %v 시트 %v, 이전 시트 %v개 복사", d["path"], d["sheet"], d["copied_sheets"])
	case events.EventTypeRosterChanged:
		entry.Level = LogLevelDebug
		entry.Message = fmt.Sprintf("서클원 목록 저장 (%v명)", d["members"])
	case events.EventTypeConfigChanged:
		entry.Level = LogLevelDebug
		entry.Message = fmt.Sprintf("설정 저장: %v", d["path"])
	case events.EventTypeError:
		entry.Level = LogLevelError
		entry.Message = fmt.Sprintf("%v: %v", d["component"], d["error"])
	default:
		entry.Message = string(e.Type)
	}
	return entry
}
