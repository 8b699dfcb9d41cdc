package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/noruhunter-go/internal/app"
	"jordanella.com/noruhunter-go/internal/events"
	"jordanella.com/noruhunter-go/internal/extract"
)

// Tab indices, in button order
const (
	tabRoster = iota
	tabSettings
	tabHistory
	tabLog
	tabCount
)

// Controller manages the GUI state and starts extractions
type Controller struct {
	ctx    *app.Context
	app    fyne.App
	window fyne.Window

	rosterTab   *RosterTab
	settingsTab *SettingsTab
	historyTab  *HistoryTab
	logTab      *LogTab

	contentArea *fyne.Container
	currentTab  int
	mu          sync.RWMutex

	status   *widget.Label
	progress *widget.ProgressBar

	// Event bus for thread-safe UI updates
	eventBus *EventBus
}

// NewController creates the controller and hooks the pipeline up to the window.
func NewController(ctx *app.Context, a fyne.App, window fyne.Window) *Controller {
	ctrl := &Controller{
		ctx:      ctx,
		app:      a,
		window:   window,
		eventBus: NewEventBus(),
	}

	ctx.Pipeline.Open = shellOpener(a)

	ctrl.rosterTab = NewRosterTab(window, ctx.Roster, ctx.Events)
	ctrl.settingsTab = NewSettingsTab(ctx.Config)
	ctrl.historyTab = NewHistoryTab(window, ctx.History, ctx.Pipeline.Open)
	ctrl.logTab = NewLogTab()

	ctrl.setupEventHandlers()
	ctrl.eventBus.Attach(ctx.Events)

	return ctrl
}

// BuildUI constructs the main UI with horizontal tabs
func (c *Controller) BuildUI() fyne.CanvasObject {
	tabButtons := container.NewHBox(
		widget.NewButton("서클원", func() { c.switchTab(tabRoster) }),
		widget.NewButton("설정", func() { c.switchTab(tabSettings) }),
		widget.NewButton("추출 기록", func() { c.switchTab(tabHistory) }),
		widget.NewButton("로그", func() { c.switchTab(tabLog) }),
	)

	c.contentArea = container.NewStack(
		c.rosterTab.Build(),
		c.settingsTab.Build(),
		c.historyTab.Build(),
		c.logTab.Build(),
	)
	c.showTab(tabRoster)

	c.status = widget.NewLabel("대기 중")
	c.progress = widget.NewProgressBar()
	c.progress.Hide()
	statusBar := container.NewBorder(nil, nil, c.status, nil, c.progress)

	return container.NewBorder(tabButtons, statusBar, nil, nil, c.contentArea)
}

// MainMenu builds the extraction and settings menus
func (c *Controller) MainMenu() *fyne.MainMenu {
	var items []*fyne.MenuItem
	for _, ex := range c.ctx.Extractors() {
		ex := ex
		items = append(items, fyne.NewMenuItem(ex.Name(), func() { c.StartExtraction(ex) }))
	}
	return fyne.NewMainMenu(
		fyne.NewMenu("인게임 목록 추출", items...),
		fyne.NewMenu("설정", fyne.NewMenuItem("설정 열기", func() { c.switchTab(tabSettings) })),
	)
}

// StartExtraction runs ex on a background goroutine so the window keeps painting.
// The pipeline refuses a second run while one is active.
func (c *Controller) StartExtraction(ex extract.Extractor) {
	if c.ctx.Pipeline.Running() {
		dialog.ShowInformation("알림", "이미 추출이 진행 중입니다.", c.window)
		return
	}
	go func() {
		_, err := c.ctx.Pipeline.Run(context.Background(), ex)
		switch {
		case err == nil, errors.Is(err, extract.ErrCancelled), errors.Is(err, extract.ErrNotConfigured):
		case errors.Is(err, extract.ErrBusy):
			fyne.Do(func() {
				dialog.ShowInformation("알림", "이미 추출이 진행 중입니다.", c.window)
			})
		default:
			c.ctx.Logger.Error("Extraction failed", err)
		}
	}()
}

// switchTab changes the active tab
func (c *Controller) switchTab(tab int) {
	c.mu.Lock()
	c.currentTab = tab
	c.mu.Unlock()
	if tab == tabHistory {
		c.historyTab.Refresh()
	}
	c.showTab(tab)
}

// showTab updates which tab content is visible
func (c *Controller) showTab(tab int) {
	if c.contentArea == nil {
		return
	}
	for i, obj := range c.contentArea.Objects {
		if i == tab {
			obj.Show()
		} else {
			obj.Hide()
		}
	}
	c.contentArea.Refresh()
}

// setupEventHandlers routes pipeline events to the status bar and tabs. Handlers run on
// the UI goroutine.
func (c *Controller) setupEventHandlers() {
	c.logTab.Subscribe(c.eventBus)

	c.eventBus.Subscribe(events.EventTypeExtractionStarted, func(e events.Event) {
		c.setStatus(fmt.Sprintf("%v 추출 중...", e.Data["extractor"]))
		if c.progress != nil {
			c.progress.SetValue(0)
			c.progress.Show()
		}
	})
	c.eventBus.Subscribe(events.EventTypeScrollProgress, func(e events.Event) {
		scroll, _ := e.Data["scroll"].(int)
		total, _ := e.Data["max_scrolls"].(int)
		if c.progress != nil && total > 0 {
			c.progress.SetValue(float64(scroll) / float64(total))
		}
	})
	c.eventBus.Subscribe(events.EventTypeScrollFinished, func(events.Event) {
		c.setStatus("OCR 진행 중...")
		if c.progress != nil {
			c.progress.SetValue(1)
		}
	})
	finished := func(text string) events.EventHandler {
		return func(events.Event) {
			c.setStatus(text)
			if c.progress != nil {
				c.progress.Hide()
			}
			c.historyTab.Refresh()
		}
	}
	c.eventBus.Subscribe(events.EventTypeExtractionCompleted, finished("추출 완료"))
	c.eventBus.Subscribe(events.EventTypeExtractionFailed, finished("추출 실패"))
	c.eventBus.Subscribe(events.EventTypeExtractionCancelled, finished("대기 중"))
}

func (c *Controller) setStatus(text string) {
	if c.status != nil {
		c.status.SetText(text)
	}
}

// Shutdown detaches the UI from the event bus
func (c *Controller) Shutdown() {
	c.eventBus.Detach()
}
