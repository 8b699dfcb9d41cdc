// Package roster persists the circle member list as a JSON array.
package roster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"jordanella.com/noruhunter-go/internal/logging"
)

// DefaultFileName is the roster file created in the working directory
const DefaultFileName = "circle_members.json"

var ErrIndexOutOfRange = errors.New("roster index out of range")

// Store is the in-memory roster backed by a JSON file. Every mutation is saved
// immediately; a mutation whose save fails leaves the roster unchanged. Safe for concurrent use.
type Store struct {
	path    string
	mu      sync.RWMutex
	members []Member
	now     func() time.Time
	logger  *logging.Logger
}

// Open loads the roster at path. A missing file yields an empty roster.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Store{
		path:   path,
		now:    time.Now,
		logger: logger,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetClock overrides the clock used for new members
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Path returns the backing file path
func (s *Store) Path() string { return s.path }

// Reload replaces the in-memory roster with the file contents.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("%s does not exist, starting with an empty roster", s.path)
		s.mu.Lock()
		s.members = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read roster: %w", err)
	}

	var members []Member
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &members); err != nil {
			return fmt.Errorf("failed to parse roster %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.members = members
	s.mu.Unlock()

	s.logger.InfoWithContext("Roster loaded", map[string]interface{}{"members": len(members)})
	return nil
}

// List returns a copy of every member in file order
func (s *Store) List() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Member, len(s.members))
	copy(out, s.members)
	return out
}

// Len returns the number of members
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Get returns the member at index
func (s *Store) Get(index int) (Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.members) {
		return Member{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s.members))
	}
	return s.members[index], nil
}

// Upsert replaces the member at index, or appends when index equals the roster length.
func (s *Store) Upsert(index int, m Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append([]Member(nil), s.members...)
	switch {
	case index == len(next):
		next = append(next, m)
	case index >= 0 && index < len(next):
		next[index] = m
	default:
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s.members))
	}
	return s.commitLocked(next)
}

// Add appends a default member and returns it.
func (s *Store) Add() (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := NewMember(s.now())
	next := append(append([]Member(nil), s.members...), m)
	return m, s.commitLocked(next)
}

// Remove deletes the members at the given indices. Nothing is removed if any index is invalid.
func (s *Store) Remove(indices ...int) error {
	if len(indices) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, i := range sorted {
		if i < 0 || i >= len(s.members) {
			return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.members))
		}
	}

	next := append([]Member(nil), s.members...)
	last := -1
	for _, i := range sorted {
		if i == last {
			continue
		}
		next = append(next[:i], next[i+1:]...)
		last = i
	}
	return s.commitLocked(next)
}

// commitLocked saves next and adopts it only when the write succeeded.
func (s *Store) commitLocked(next []Member) error {
	if err := s.write(next); err != nil {
		return err
	}
	s.members = next
	return nil
}

// FindByNickname returns the first member whose nickname matches exactly.
func (s *Store) FindByNickname(nickname string) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.Nickname == nickname {
			return m, true
		}
	}
	return Member{}, false
}

// Save writes the roster to disk
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.members)
}

func (s *Store) write(members []Member) error {
	if members == nil {
		members = []Member{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(members); err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create roster directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write roster: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace roster: %w", err)
	}
	return nil
}
