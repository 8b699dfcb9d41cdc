package roster

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) *Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) failed: %v", s, err)
	}
	return &d
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), DefaultFileName), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestJoinPeriod(t *testing.T) {
	alice := Member{Nickname: "Alice", JoinDate: mustDate(t, "2025-01-01"), Role: RoleMember}
	today := time.Date(2025, 1, 11, 14, 30, 0, 0, time.Local)

	days, ok := alice.JoinPeriod(today)
	if !ok || days != 10 {
		t.Errorf("JoinPeriod = %d, %v; want 10, true", days, ok)
	}

	if _, ok := (Member{Nickname: "Bob"}).JoinPeriod(today); ok {
		t.Error("member without join date should report no period")
	}
}

func TestOpenMissingFile(t *testing.T) {
	s := openTemp(t)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("opening should not create the file")
	}
}

func TestUpsertAppendAndReplace(t *testing.T) {
	s := openTemp(t)

	if err := s.Upsert(0, Member{Nickname: "Alice", Role: RoleLeader}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.Upsert(1, Member{Nickname: "Bob", Role: RoleMember}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.Upsert(0, Member{Nickname: "Alicia", Role: RoleLeader}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if err := s.Upsert(5, Member{Nickname: "Eve"}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Upsert past the end error = %v, want ErrIndexOutOfRange", err)
	}

	got := s.List()
	if len(got) != 2 || got[0].Nickname != "Alicia" || got[1].Nickname != "Bob" {
		t.Errorf("List() = %+v", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", DefaultFileName)
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	want := Member{
		Nickname:   "Alice",
		PlatformID: "1234567",
		ExternalID: "alice_arca",
		JoinDate:   mustDate(t, "2025-01-01"),
		Role:       RoleSubLeader,
		Note:       "<officer>",
	}
	if err := s.Upsert(0, want); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := s.Upsert(1, Member{Nickname: "Bob", Role: RoleMember}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("roster file missing: %v", err)
	}
	text := string(raw)
	for _, fragment := range []string{`"nickname": "Alice"`, `"arcalive_id": "alice_arca"`, `"position": "부서클장"`, `"join_date": null`, `"remark": "<officer>"`} {
		if !strings.Contains(text, fragment) {
			t.Errorf("file missing %s:\n%s", fragment, text)
		}
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, found := reopened.FindByNickname("Alice")
	if !found {
		t.Fatal("Alice not found after reload")
	}
	if got.JoinDateString() != "2025-01-01" || got.Role != RoleSubLeader || got.PlatformID != "1234567" {
		t.Errorf("reloaded member = %+v", got)
	}
	if bob, _ := reopened.FindByNickname("Bob"); bob.HasJoinDate() {
		t.Errorf("Bob should have no join date")
	}
}

func TestUnmarshalEmptyJoinDate(t *testing.T) {
	var members []Member
	data := `[{"nickname":"A","uid":"","arcalive_id":"","join_date":"","position":"서클원","remark":""}]`
	if err := json.Unmarshal([]byte(data), &members); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if members[0].HasJoinDate() {
		t.Errorf("empty join_date should be treated as unset")
	}

	bad := `[{"nickname":"A","join_date":"01/02/2025"}]`
	if err := json.Unmarshal([]byte(bad), &members); err == nil {
		t.Error("malformed join_date should fail")
	}
}

func TestAddAndRemove(t *testing.T) {
	s := openTemp(t)
	s.SetClock(func() time.Time { return time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC) })

	for i := 0; i < 4; i++ {
		if _, err := s.Add(); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	m, _ := s.Get(0)
	if m.Nickname != "새 서클원" || m.Role != RoleMember || m.JoinDateString() != "2025-03-04" {
		t.Errorf("default member = %+v", m)
	}

	for i := 0; i < 4; i++ {
		m, _ := s.Get(i)
		m.Nickname = string(rune('A' + i))
		s.Upsert(i, m)
	}

	if err := s.Remove(0, 2, 2); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got := s.List()
	if len(got) != 2 || got[0].Nickname != "B" || got[1].Nickname != "D" {
		t.Errorf("after remove = %+v", got)
	}

	if err := s.Remove(1, 7); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Remove invalid index error = %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("failed remove must not change the roster, Len() = %d", s.Len())
	}
}

func TestIsRole(t *testing.T) {
	for _, r := range Roles {
		if !IsRole(string(r)) {
			t.Errorf("IsRole(%q) = false", r)
		}
	}
	if IsRole("Lv.50") {
		t.Error("IsRole accepted a level token")
	}
}

func TestFailedSaveLeavesRosterUnchanged(t *testing.T) {
	s := openTemp(t)
	if err := s.Upsert(0, Member{Nickname: "Alice", Role: RoleMember}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(1, Member{Nickname: "Bob", Role: RoleMember}); err != nil {
		t.Fatal(err)
	}

	// A directory where the temp file goes makes every write fail
	if err := os.Mkdir(s.Path()+".tmp", 0755); err != nil {
		t.Fatal(err)
	}

	if err := s.Upsert(0, Member{Nickname: "Carol", Role: RoleLeader}); err == nil {
		t.Fatal("Upsert should fail when the roster cannot be written")
	}
	if err := s.Upsert(2, Member{Nickname: "Dave"}); err == nil {
		t.Fatal("append should fail when the roster cannot be written")
	}
	if _, err := s.Add(); err == nil {
		t.Fatal("Add should fail when the roster cannot be written")
	}
	if err := s.Remove(1); err == nil {
		t.Fatal("Remove should fail when the roster cannot be written")
	}

	got := s.List()
	if len(got) != 2 || got[0].Nickname != "Alice" || got[1].Nickname != "Bob" {
		t.Errorf("roster changed after failed saves: %+v", got)
	}

	if err := os.Remove(s.Path() + ".tmp"); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Errorf("file has %d members, want 2", s.Len())
	}
}
