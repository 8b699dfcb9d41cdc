package gui

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"jordanella.com/noruhunter-go/internal/roster"
)

func newTestRoster(t *testing.T, members ...roster.Member) *roster.Store {
	t.Helper()
	store, err := roster.Open(filepath.Join(t.TempDir(), roster.DefaultFileName), nil)
	if err != nil {
		t.Fatal(err)
	}
	store.SetClock(func() time.Time { return today })
	for i, m := range members {
		if err := store.Upsert(i, m); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

var today = time.Date(2025, 1, 11, 9, 0, 0, 0, time.Local)

func joined(nickname, date string, role roster.Role) roster.Member {
	m := roster.Member{Nickname: nickname, Role: role}
	if date != "" {
		d, err := roster.ParseDate(date)
		if err != nil {
			panic(err)
		}
		m.JoinDate = &d
	}
	return m
}

func newTestModel(t *testing.T, members ...roster.Member) (*RosterModel, *roster.Store) {
	store := newTestRoster(t, members...)
	model := NewRosterModel(store)
	model.SetClock(func() time.Time { return today })
	return model, store
}

func TestRosterModelCells(t *testing.T) {
	alice := joined("Alice", "2025-01-01", roster.RoleLeader)
	alice.PlatformID = "123"
	alice.ExternalID = "alice_arca"
	alice.Note = "memo"
	model, _ := newTestModel(t, alice, joined("Bob", "", roster.RoleMember))

	want := []string{"Alice", "123", "alice_arca", "2025-01-01", "10일", "서클장", "memo"}
	for col, w := range want {
		if got := model.Cell(0, RosterColumn(col)); got != w {
			t.Errorf("column %s = %q, want %q", RosterColumn(col).Header(), got, w)
		}
	}
	if got := model.Cell(1, ColumnJoinPeriod); got != "" {
		t.Errorf("join period without a date = %q", got)
	}
	if got := model.Cell(5, ColumnNickname); got != "" {
		t.Errorf("out of range row = %q", got)
	}
}

func TestRosterModelToggleSort(t *testing.T) {
	model, _ := newTestModel(t,
		joined("Carol", "2025-01-05", roster.RoleMember),
		joined("Alice", "2024-12-01", roster.RoleMember),
		joined("Bob", "", roster.RoleMember),
	)

	nicknames := func() []string {
		out := make([]string, model.Rows())
		for i := range out {
			out[i] = model.Cell(i, ColumnNickname)
		}
		return out
	}
	check := func(step string, want ...string) {
		t.Helper()
		got := nicknames()
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: order = %v, want %v", step, got, want)
				return
			}
		}
	}

	model.ToggleSort(ColumnNickname)
	check("ascending", "Alice", "Bob", "Carol")

	model.ToggleSort(ColumnNickname)
	check("descending", "Carol", "Bob", "Alice")

	model.ToggleSort(ColumnNickname)
	check("unsorted", "Carol", "Alice", "Bob")
	if _, order := model.Sort(); order != SortNone {
		t.Errorf("order = %v, want none", order)
	}

	// Periods compare numerically; members without a date sort first.
	model.ToggleSort(ColumnJoinPeriod)
	check("join period", "Bob", "Carol", "Alice")

	model.ToggleSort(ColumnNickname)
	if col, order := model.Sort(); col != ColumnNickname || order != SortAscending {
		t.Errorf("switching column gave %v/%v", col, order)
	}
}

func TestRosterModelEditsFollowSortedRows(t *testing.T) {
	model, store := newTestModel(t,
		joined("Carol", "2025-01-05", roster.RoleMember),
		joined("Alice", "2024-12-01", roster.RoleMember),
	)
	model.ToggleSort(ColumnNickname)

	if err := model.SetCell(0, ColumnRole, string(roster.RoleSubLeader)); err != nil {
		t.Fatalf("SetCell failed: %v", err)
	}
	alice, err := store.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if alice.Nickname != "Alice" || alice.Role != roster.RoleSubLeader {
		t.Errorf("wrong member edited: %+v", alice)
	}

	if err := model.SetCell(0, ColumnJoinDate, ""); err != nil {
		t.Fatal(err)
	}
	if alice, _ = store.Get(1); alice.HasJoinDate() {
		t.Error("empty text should clear the join date")
	}
}

func TestRosterModelRejectsInvalidEdits(t *testing.T) {
	model, _ := newTestModel(t, joined("Alice", "2025-01-01", roster.RoleMember))

	if err := model.SetCell(0, ColumnJoinPeriod, "3"); !errors.Is(err, ErrReadOnlyColumn) {
		t.Errorf("join period edit = %v, want ErrReadOnlyColumn", err)
	}
	if err := model.SetCell(0, ColumnRole, "회장"); err == nil {
		t.Error("expected unknown position to be rejected")
	}
	if err := model.SetCell(0, ColumnJoinDate, "2025/01/01"); err == nil {
		t.Error("expected malformed date to be rejected")
	}
	if err := model.SetCell(3, ColumnNickname, "x"); !errors.Is(err, roster.ErrIndexOutOfRange) {
		t.Errorf("out of range edit = %v", err)
	}
	if got := model.Cell(0, ColumnJoinDate); got != "2025-01-01" {
		t.Errorf("rejected edit changed the member: %q", got)
	}
}

func TestRosterModelAddRemove(t *testing.T) {
	model, store := newTestModel(t, joined("Alice", "2025-01-01", roster.RoleMember), joined("Bob", "2025-01-02", roster.RoleMember))

	if err := model.Add(); err != nil {
		t.Fatal(err)
	}
	if model.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", model.Rows())
	}
	if got := model.Cell(2, ColumnJoinDate); got != "2025-01-11" {
		t.Errorf("new member join date = %q, want today", got)
	}
	if got := model.Cell(2, ColumnJoinPeriod); got != "0일" {
		t.Errorf("new member join period = %q", got)
	}

	model.ToggleSort(ColumnNickname) // Alice, Bob, 새 서클원
	if err := model.Remove(1); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.FindByNickname("Bob"); ok {
		t.Error("Bob should have been removed")
	}
	if err := model.Remove(10); err != nil {
		t.Errorf("removing a missing row = %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("store has %d members, want 2", store.Len())
	}
}
