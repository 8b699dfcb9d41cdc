package roster

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is a member's position in the circle
type Role string

const (
	RoleLeader    Role = "서클장"
	RoleSubLeader Role = "부서클장"
	RoleMember    Role = "서클원"
)

// Roles lists every valid role, highest first.
var Roles = []Role{RoleLeader, RoleSubLeader, RoleMember}

// IsRole reports whether s names a valid role.
func IsRole(s string) bool {
	for _, r := range Roles {
		if string(r) == s {
			return true
		}
	}
	return false
}

// DateLayout is the on-disk date format
const DateLayout = "2006-01-02"

// Date is a calendar day serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the calendar day of t in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// DaysUntil returns the number of whole calendar days from d to the day of t.
func (d Date) DaysUntil(t time.Time) int {
	return int(NewDate(t).Sub(d.Time).Hours() / 24)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler. An empty string leaves the date unset.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("join date must be a string: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Member is one roster entry
type Member struct {
	Nickname   string `json:"nickname"`
	PlatformID string `json:"uid"`
	ExternalID string `json:"arcalive_id"`
	JoinDate   *Date  `json:"join_date"`
	Role       Role   `json:"position"`
	Note       string `json:"remark"`
}

// NewMember returns the entry created by the "add" action.
func NewMember(today time.Time) Member {
	joined := NewDate(today)
	return Member{
		Nickname: "새 서클원",
		JoinDate: &joined,
		Role:     RoleMember,
	}
}

// HasJoinDate reports whether the join date is set
func (m Member) HasJoinDate() bool {
	return m.JoinDate != nil && !m.JoinDate.IsZero()
}

// JoinPeriod is the number of whole days since the member joined.
// ok is false when no join date is recorded.
func (m Member) JoinPeriod(today time.Time) (days int, ok bool) {
	if !m.HasJoinDate() {
		return 0, false
	}
	return m.JoinDate.DaysUntil(today), true
}

// JoinDateString formats the join date, or "" when unset.
func (m Member) JoinDateString() string {
	if !m.HasJoinDate() {
		return ""
	}
	return m.JoinDate.String()
}
