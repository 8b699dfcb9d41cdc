package gui

import (
	"fmt"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/noruhunter-go/internal/database"
	"jordanella.com/noruhunter-go/internal/gui/components"
)

const historyLimit = 100

// HistoryReader is the subset of database.DB the history tab reads
type HistoryReader interface {
	ListRuns(limit int) ([]*database.Run, error)
	GetRunSummaries() ([]database.RunSummary, error)
	GetRecentErrors(limit int) ([]*database.ErrorLog, error)
}

// HistoryTab lists past extraction runs and recorded errors
type HistoryTab struct {
	window fyne.Window
	db     HistoryReader
	open   func(path string) error

	runs     []*database.Run
	runList  *widget.List
	summary  *fyne.Container
	errorBox *fyne.Container
}

// NewHistoryTab creates the history tab. open launches a finished workbook.
func NewHistoryTab(window fyne.Window, db HistoryReader, open func(path string) error) *HistoryTab {
	return &HistoryTab{window: window, db: db, open: open}
}

// Build constructs the UI
func (t *HistoryTab) Build() fyne.CanvasObject {
	t.summary = container.NewVBox()
	t.errorBox = container.NewVBox()

	t.runList = widget.NewList(
		func() int { return len(t.runs) },
		func() fyne.CanvasObject { return widget.NewLabel("run") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id >= 0 && id < len(t.runs) {
				item.(*widget.Label).SetText(FormatRun(t.runs[id]))
			}
		},
	)
	t.runList.OnSelected = func(id widget.ListItemID) {
		t.runList.UnselectAll()
		if id < 0 || id >= len(t.runs) {
			return
		}
		t.showRun(t.runs[id])
	}

	refreshBtn := widget.NewButton("새로고침", t.Refresh)
	t.Refresh()

	errorScroll := container.NewVScroll(t.errorBox)
	errorScroll.SetMinSize(fyne.NewSize(0, 160))

	return container.NewBorder(
		container.NewVBox(components.SectionHeader("추출 기록", refreshBtn), t.summary),
		container.NewVBox(components.Subheading("최근 에러"), errorScroll),
		nil, nil,
		t.runList,
	)
}

// Refresh reloads runs, summaries and errors. Must run on the UI goroutine.
func (t *HistoryTab) Refresh() {
	runs, err := t.db.ListRuns(historyLimit)
	if err != nil {
		dialog.ShowError(err, t.window)
		return
	}
	t.runs = runs
	if t.runList != nil {
		t.runList.Refresh()
	}

	if t.summary != nil {
		t.summary.RemoveAll()
		summaries, err := t.db.GetRunSummaries()
		if err == nil {
			for _, s := range summaries {
				t.summary.Add(components.InfoRow(s.Extractor, FormatSummary(s)))
			}
		}
	}

	if t.errorBox != nil {
		t.errorBox.RemoveAll()
		logs, err := t.db.GetRecentErrors(20)
		if err == nil {
			if len(logs) == 0 {
				t.errorBox.Add(components.Caption("기록된 에러가 없습니다."))
			}
			for _, e := range logs {
				t.errorBox.Add(components.MonospaceText(FormatErrorLog(e)))
			}
		}
	}
}

func (t *HistoryTab) showRun(run *database.Run) {
	lines := []string{
		fmt.Sprintf("상태: %s", run.Status),
		fmt.Sprintf("창: %s", run.WindowTitle),
		fmt.Sprintf("시작: %s", run.StartedAt.Local().Format("2006-01-02 15:04:05")),
		fmt.Sprintf("스크롤 %d회, 병합 %d회, 끝 도달 %v, 높이 %dpx", run.Scrolls, run.Merges, run.Converged, run.CanvasHeight),
		fmt.Sprintf("토큰 %d개, 행 %d개, 복사한 시트 %d개", run.Tokens, run.RowsExported, run.CopiedSheets),
	}
	if run.ErrorMessage != nil {
		lines = append(lines, "에러: "+*run.ErrorMessage)
	}
	content := container.NewVBox(components.MonospaceText(strings.Join(lines, "\n")))

	if run.OutputPath != nil && t.open != nil {
		path := *run.OutputPath
		content.Add(widget.NewButton("엑셀 열기", func() {
			if err := t.open(path); err != nil {
				dialog.ShowError(err, t.window)
			}
		}))
	}
	dialog.ShowCustom(fmt.Sprintf("기록 #%d", run.ID), "닫기", content, t.window)
}

// FormatRun renders one run as a list line
func FormatRun(run *database.Run) string {
	line := fmt.Sprintf("#%d %s  %s  %s", run.ID, run.StartedAt.Local().Format("2006-01-02 15:04"), run.Extractor, run.Status)
	switch {
	case run.Status == database.RunCompleted:
		line += fmt.Sprintf("  %d행", run.RowsExported)
		if run.DurationMs != nil {
			line += fmt.Sprintf("  %s", (time.Duration(*run.DurationMs) * time.Millisecond).Round(100*time.Millisecond))
		}
		if !run.Converged {
			line += "  (스크롤 한도 도달)"
		}
	case run.ErrorMessage != nil:
		line += "  " + *run.ErrorMessage
	}
	return line
}

// FormatSummary renders the per-extractor totals
func FormatSummary(s database.RunSummary) string {
	text := fmt.Sprintf("%d회 (성공 %d, 실패 %d), 평균 %.1f행", s.TotalRuns, s.CompletedRuns, s.FailedRuns, s.AvgRows)
	if s.LastRunAt != nil {
		text += ", 마지막 " + s.LastRunAt.Local().Format("2006-01-02 15:04")
	}
	return text
}

// FormatErrorLog renders a persisted error on one line
func FormatErrorLog(e *database.ErrorLog) string {
	text := fmt.Sprintf("[%s] %s/%s %s: %s", e.OccurredAt.Local().Format("01-02 15:04"), e.Category, e.Severity, e.Component, e.Message)
	if e.ErrorText != nil {
		text += ": " + *e.ErrorText
	}
	return text
}
