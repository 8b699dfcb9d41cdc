package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/noruhunter-go/internal/events"
	"jordanella.com/noruhunter-go/internal/gui/components"
	"jordanella.com/noruhunter-go/internal/roster"
)

var rosterColumnWidths = [rosterColumnCount]float32{160, 140, 140, 110, 90, 100, 260}

// RosterTab lists and edits the circle members
type RosterTab struct {
	window    fyne.Window
	model     *RosterModel
	publisher events.Publisher

	table    *widget.Table
	count    *widget.Label
	selected widget.TableCellID
}

// NewRosterTab creates the roster tab over store
func NewRosterTab(window fyne.Window, store RosterStore, publisher events.Publisher) *RosterTab {
	if publisher == nil {
		publisher = events.Discard
	}
	return &RosterTab{
		window:    window,
		model:     NewRosterModel(store),
		publisher: publisher,
		selected:  widget.TableCellID{Row: -1},
	}
}

// Build constructs the table and its buttons
func (t *RosterTab) Build() fyne.CanvasObject {
	t.table = widget.NewTableWithHeaders(
		func() (int, int) { return t.model.Rows(), int(rosterColumnCount) },
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			cell.(*widget.Label).SetText(t.model.Cell(id.Row, RosterColumn(id.Col)))
		},
	)
	t.table.ShowHeaderColumn = false
	t.table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewButton("", nil)
	}
	t.table.UpdateHeader = func(id widget.TableCellID, template fyne.CanvasObject) {
		btn := template.(*widget.Button)
		col := RosterColumn(id.Col)
		btn.SetText(t.headerText(col))
		btn.OnTapped = func() {
			t.model.ToggleSort(col)
			t.clearSelection()
			t.table.Refresh()
		}
	}
	for col, width := range rosterColumnWidths {
		t.table.SetColumnWidth(col, width)
	}
	t.table.OnSelected = func(id widget.TableCellID) {
		t.selected = id
	}

	t.count = widget.NewLabel("")
	t.updateCount()

	addBtn := components.PrimaryButton("서클원 추가", t.add)
	editBtn := widget.NewButton("수정", func() {
		if col := RosterColumn(t.selected.Col); t.selected.Row >= 0 && col.Editable() {
			t.edit(t.selected.Row, col)
		}
	})
	removeBtn := components.DangerButton("서클원 삭제", t.confirmRemove)

	return container.NewBorder(
		components.SectionHeader("서클원 목록", t.count),
		components.ActionBar(
			[]fyne.CanvasObject{components.Caption("셀을 선택한 뒤 [수정]을 누르면 값을 바꿀 수 있습니다. 가입기간은 자동 계산됩니다.")},
			[]fyne.CanvasObject{addBtn, editBtn, removeBtn},
		),
		nil, nil,
		t.table,
	)
}

func (t *RosterTab) headerText(col RosterColumn) string {
	sortCol, order := t.model.Sort()
	text := col.Header()
	if sortCol == col {
		switch order {
		case SortAscending:
			text += " ▲"
		case SortDescending:
			text += " ▼"
		}
	}
	return text
}

// Reload re-reads the roster file
func (t *RosterTab) Reload() {
	t.model.Reload()
	t.refresh()
}

func (t *RosterTab) refresh() {
	if t.table != nil {
		t.table.Refresh()
	}
	t.updateCount()
}

func (t *RosterTab) updateCount() {
	if t.count != nil {
		t.count.SetText(fmt.Sprintf("총 %d명", t.model.Rows()))
	}
}

func (t *RosterTab) clearSelection() {
	t.selected = widget.TableCellID{Row: -1}
	if t.table != nil {
		t.table.UnselectAll()
	}
}

func (t *RosterTab) changed() {
	t.refresh()
	t.publisher.Publish(events.NewRosterChangedEvent(t.model.Rows()))
}

func (t *RosterTab) add() {
	if err := t.model.Add(); err != nil {
		dialog.ShowError(err, t.window)
		return
	}
	t.changed()
	if t.table != nil {
		t.table.ScrollToBottom()
	}
}

func (t *RosterTab) confirmRemove() {
	row := t.selected.Row
	member, ok := t.model.Member(row)
	if !ok {
		return
	}
	dialog.ShowConfirm("서클원 삭제", member.Nickname+" 서클원을 삭제하시겠습니까?", func(yes bool) {
		if !yes {
			return
		}
		if err := t.model.Remove(row); err != nil {
			dialog.ShowError(err, t.window)
			return
		}
		t.clearSelection()
		t.changed()
	}, t.window)
}

// edit opens an editor for one cell: a selector for the position, an entry otherwise.
func (t *RosterTab) edit(row int, col RosterColumn) {
	current := t.model.Cell(row, col)

	var field fyne.CanvasObject
	var value func() string
	switch col {
	case ColumnRole:
		options := make([]string, len(roster.Roles))
		for i, r := range roster.Roles {
			options[i] = string(r)
		}
		sel := widget.NewSelect(options, nil)
		sel.SetSelected(current)
		field, value = sel, func() string { return sel.Selected }
	case ColumnJoinDate:
		entry := widget.NewEntry()
		entry.SetPlaceHolder(roster.DateLayout)
		entry.SetText(current)
		entry.Validator = func(s string) error {
			if s == "" {
				return nil
			}
			_, err := roster.ParseDate(s)
			return err
		}
		field, value = entry, func() string { return entry.Text }
	default:
		entry := widget.NewEntry()
		entry.SetText(current)
		field, value = entry, func() string { return entry.Text }
	}

	items := []*widget.FormItem{widget.NewFormItem(col.Header(), field)}
	dialog.ShowForm("서클원 수정", "저장", "취소", items, func(ok bool) {
		if !ok {
			return
		}
		if err := t.model.SetCell(row, col, value()); err != nil {
			dialog.ShowError(err, t.window)
			return
		}
		t.changed()
	}, t.window)
}
