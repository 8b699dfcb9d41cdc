package gui

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"jordanella.com/noruhunter-go/internal/roster"
)

// RosterColumn identifies a roster table column
type RosterColumn int

const (
	ColumnNickname RosterColumn = iota
	ColumnPlatformID
	ColumnExternalID
	ColumnJoinDate
	ColumnJoinPeriod
	ColumnRole
	ColumnNote
	rosterColumnCount
)

var rosterHeaders = [rosterColumnCount]string{"닉네임", "UID", "아카라이브 ID", "가입일", "가입기간", "직위", "비고"}

// Header returns the column title
func (c RosterColumn) Header() string {
	if c < 0 || c >= rosterColumnCount {
		return ""
	}
	return rosterHeaders[c]
}

// Editable reports whether the user may change the column. The join period is derived.
func (c RosterColumn) Editable() bool {
	return c != ColumnJoinPeriod
}

// SortOrder is the state of the sortable header
type SortOrder int

const (
	SortNone SortOrder = iota
	SortAscending
	SortDescending
)

var ErrReadOnlyColumn = errors.New("column is read-only")

// RosterStore is the subset of roster.Store the table needs
type RosterStore interface {
	List() []roster.Member
	Upsert(index int, m roster.Member) error
	Add() (roster.Member, error)
	Remove(indices ...int) error
}

// RosterModel maps table rows to roster entries. Sorting only changes the view; the file
// keeps insertion order.
type RosterModel struct {
	store RosterStore
	now   func() time.Time

	mu      sync.RWMutex
	members []roster.Member
	view    []int // view row -> store index
	sortCol RosterColumn
	order   SortOrder
}

// NewRosterModel loads the current roster
func NewRosterModel(store RosterStore) *RosterModel {
	m := &RosterModel{store: store, now: time.Now}
	m.Reload()
	return m
}

// SetClock overrides the clock used for join periods
func (m *RosterModel) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	m.resortLocked()
}

// Reload re-reads the store and reapplies the sort.
func (m *RosterModel) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = m.store.List()
	m.resortLocked()
}

// Rows returns the number of members
func (m *RosterModel) Rows() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.view)
}

// Sort reports the current sort column and order
func (m *RosterModel) Sort() (RosterColumn, SortOrder) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortCol, m.order
}

// ToggleSort cycles a column through ascending, descending and unsorted.
// Choosing another column starts it at ascending.
func (m *RosterModel) ToggleSort(col RosterColumn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.order == SortNone || m.sortCol != col:
		m.sortCol, m.order = col, SortAscending
	case m.order == SortAscending:
		m.order = SortDescending
	default:
		m.sortCol, m.order = 0, SortNone
	}
	m.resortLocked()
}

func (m *RosterModel) resortLocked() {
	m.view = make([]int, len(m.members))
	for i := range m.view {
		m.view[i] = i
	}
	if m.order == SortNone {
		return
	}

	today := m.now()
	col := m.sortCol
	less := func(a, b roster.Member) bool {
		if col == ColumnJoinPeriod {
			pa, okA := a.JoinPeriod(today)
			pb, okB := b.JoinPeriod(today)
			if okA != okB {
				return okB
			}
			return pa < pb
		}
		return cellText(a, col, today) < cellText(b, col, today)
	}
	sort.SliceStable(m.view, func(i, j int) bool {
		a, b := m.members[m.view[i]], m.members[m.view[j]]
		if m.order == SortDescending {
			return less(b, a)
		}
		return less(a, b)
	})
}

// StoreIndex converts a view row to the member's index in the roster file.
func (m *RosterModel) StoreIndex(row int) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row < 0 || row >= len(m.view) {
		return 0, false
	}
	return m.view[row], true
}

// Member returns the member shown at row
func (m *RosterModel) Member(row int) (roster.Member, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row < 0 || row >= len(m.view) {
		return roster.Member{}, false
	}
	return m.members[m.view[row]], true
}

// Cell returns the display text of one cell
func (m *RosterModel) Cell(row int, col RosterColumn) string {
	member, ok := m.Member(row)
	if !ok {
		return ""
	}
	text := cellText(member, col, m.now())
	if col == ColumnJoinPeriod && text != "" {
		text += "일"
	}
	return text
}

func cellText(m roster.Member, col RosterColumn, today time.Time) string {
	switch col {
	case ColumnNickname:
		return m.Nickname
	case ColumnPlatformID:
		return m.PlatformID
	case ColumnExternalID:
		return m.ExternalID
	case ColumnJoinDate:
		return m.JoinDateString()
	case ColumnJoinPeriod:
		if days, ok := m.JoinPeriod(today); ok {
			return strconv.Itoa(days)
		}
		return ""
	case ColumnRole:
		return string(m.Role)
	case ColumnNote:
		return m.Note
	}
	return ""
}

// SetCell validates text, updates the member shown at row and saves the roster.
// An empty join date clears it.
func (m *RosterModel) SetCell(row int, col RosterColumn, text string) error {
	if !col.Editable() {
		return ErrReadOnlyColumn
	}
	index, ok := m.StoreIndex(row)
	if !ok {
		return fmt.Errorf("%w: row %d", roster.ErrIndexOutOfRange, row)
	}
	member, _ := m.Member(row)

	switch col {
	case ColumnNickname:
		member.Nickname = text
	case ColumnPlatformID:
		member.PlatformID = text
	case ColumnExternalID:
		member.ExternalID = text
	case ColumnJoinDate:
		if strings.TrimSpace(text) == "" {
			member.JoinDate = nil
			break
		}
		d, err := roster.ParseDate(text)
		if err != nil {
			return err
		}
		member.JoinDate = &d
	case ColumnRole:
		if !roster.IsRole(text) {
			return fmt.Errorf("unknown position %q", text)
		}
		member.Role = roster.Role(text)
	case ColumnNote:
		member.Note = text
	}

	if err := m.store.Upsert(index, member); err != nil {
		return err
	}
	m.Reload()
	return nil
}

// Add appends a new member joined today
func (m *RosterModel) Add() error {
	if _, err := m.store.Add(); err != nil {
		return err
	}
	m.Reload()
	return nil
}

// Remove deletes the members shown at rows
func (m *RosterModel) Remove(rows ...int) error {
	indices := make([]int, 0, len(rows))
	for _, row := range rows {
		if i, ok := m.StoreIndex(row); ok {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil
	}
	if err := m.store.Remove(indices...); err != nil {
		return err
	}
	m.Reload()
	return nil
}
