// Package extract turns a stitched list capture into spreadsheet rows: OCR tokens are
// repaired, grouped into rows, joined with the roster and exported.
package extract

import (
	"errors"
	"time"

	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/excel"
	"jordanella.com/noruhunter-go/internal/roster"
)

var (
	ErrNotConfigured = errors.New("extraction is not configured")
	ErrCancelled     = errors.New("extraction cancelled")
	ErrBusy          = errors.New("an extraction is already running")
)

// ConfigError is a missing-setting error carrying the message shown to the user.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func (e *ConfigError) Unwrap() error { return ErrNotConfigured }

// Lookup finds roster members by in-game nickname
type Lookup interface {
	FindByNickname(nickname string) (roster.Member, bool)
}

// LayoutProvider selects the capture geometry
type LayoutProvider interface {
	Layout(layouts config.Layouts) cv.LayoutSet
}

// TokenRepairer fixes OCR token streams before grouping
type TokenRepairer interface {
	Fields() []Field
	Repair(tokens []string, members Lookup) []string
}

// RowMapper turns grouped rows into output columns
type RowMapper interface {
	Columns() []Column
}

// Extractor is one list the tool knows how to capture
type Extractor interface {
	LayoutProvider
	TokenRepairer
	RowMapper

	Kind() string
	Name() string
	// Preflight returns a *ConfigError when a required setting is missing
	Preflight(settings config.Settings) error
	OutputDir(settings config.Settings) string
	ScrollStep(settings config.Settings) int
}

// Env is everything a column may consult for one row
type Env struct {
	Row      Row
	Member   roster.Member
	Known    bool // Member was found in the roster
	Now      time.Time
	Settings config.Settings
}

// Day is the calendar day the game considers current; days roll over at 05:00.
func (e Env) Day() time.Time {
	return GameDay(e.Now)
}

// Column is one output column with its value and fill
type Column struct {
	Key    string
	Header string
	Value  func(Env) interface{}
	Style  func(Env) string
}

// DayRollover is the hour at which the in-game day changes
const DayRollover = 5

// GameDay returns midnight (UTC) of the in-game day containing t.
func GameDay(t time.Time) time.Time {
	if t.Hour() < DayRollover {
		t = t.AddDate(0, 0, -1)
	}
	return roster.NewDate(t).Time
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// Cells renders one row. A column without Style is left unfilled.
func Cells(columns []Column, env Env) []excel.Cell {
	cells := make([]excel.Cell, len(columns))
	for i, c := range columns {
		if c.Value != nil {
			cells[i].Value = c.Value(env)
		}
		if c.Style != nil {
			cells[i].Fill = c.Style(env)
		}
	}
	return cells
}

// Headers returns the excel column definitions
func Headers(columns []Column) []excel.Column {
	out := make([]excel.Column, len(columns))
	for i, c := range columns {
		out[i] = excel.Column{Header: c.Header}
	}
	return out
}

func rowValue(key string) func(Env) interface{} {
	return func(e Env) interface{} { return e.Row[key] }
}

func memberValue(get func(roster.Member) string) func(Env) interface{} {
	return func(e Env) interface{} {
		if !e.Known {
			return nil
		}
		return get(e.Member)
	}
}

func joinDateValue(e Env) interface{} {
	if !e.Known || !e.Member.HasJoinDate() {
		return nil
	}
	return e.Member.JoinDateString()
}

func joinPeriodValue(e Env) interface{} {
	if !e.Known {
		return nil
	}
	if days, ok := e.Member.JoinPeriod(e.Now); ok {
		return days
	}
	return nil
}

// shared builds the columns both extractors take from the OCR row or the roster.
func shared(key string, style func(Env) string) Column {
	c := Column{Key: key, Style: style}
	switch key {
	case "position":
		c.Header, c.Value = "직위", rowValue(key)
	case "join_date":
		c.Header, c.Value = "가입일", joinDateValue
	case "join_period":
		c.Header, c.Value = "가입기간", joinPeriodValue
	case "nickname":
		c.Header, c.Value = "닉네임", rowValue(key)
	case "level":
		c.Header, c.Value = "레벨", rowValue(key)
	case "arcalive_id":
		c.Header, c.Value = "아카라이브 ID", memberValue(func(m roster.Member) string { return m.ExternalID })
	case "uid":
		c.Header, c.Value = "UID", memberValue(func(m roster.Member) string { return m.PlatformID })
	case "remark":
		c.Header, c.Value = "비고", memberValue(func(m roster.Member) string { return m.Note })
	default:
		panic("extract: no shared column " + key)
	}
	return c
}
