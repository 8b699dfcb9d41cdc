package extract

import (
	"reflect"
	"testing"

	"jordanella.com/noruhunter-go/internal/excel"
	"jordanella.com/noruhunter-go/internal/roster"
)

func TestCircleRepair(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []string
	}{
		{
			name: "well formed rows are unchanged",
			tokens: []string{
				"Alice", "서클장", "540", "3200", "접속중", "Lv.40",
				"Bob", "서클원", "120", "900", "1일 전", "Lv.12",
			},
			want: []string{
				"Alice", "서클장", "540", "3200", "접속중", "Lv.40",
				"Bob", "서클원", "120", "900", "1일 전", "Lv.12",
			},
		},
		{
			name: "split nickname re-joined and next row realigned",
			tokens: []string{
				"Ali", "ce", "서클장", "540", "3200", "접속중", "Lv.40",
				"Bob", "서클원", "120", "900", "접속중", "Lv.12",
			},
			want: []string{
				"Alice", "서클장", "540", "3200", "접속중", "Lv.40",
				"Bob", "서클원", "120", "900", "접속중", "Lv.12",
			},
		},
		{
			name:   "separators stripped from contribution",
			tokens: []string{"Alice", "부서클장", "1,080", "12,400", "접속중", "Lv.40"},
			want:   []string{"Alice", "부서클장", "1080", "12400", "접속중", "Lv.40"},
		},
		{
			name:   "unreadable contribution becomes zero",
			tokens: []string{"Alice", "서클원", "-", "900", "접속중", "Lv.40"},
			want:   []string{"Alice", "서클원", "0", "900", "접속중", "Lv.40"},
		},
		{
			name:   "split status re-joined",
			tokens: []string{"Bob", "서클원", "120", "900", "1일", "전", "Lv.12"},
			want:   []string{"Bob", "서클원", "120", "900", "1일전", "Lv.12"},
		},
		{
			name:   "partial trailing row left alone",
			tokens: []string{"Alice", "서클장", "540"},
			want:   []string{"Alice", "서클장", "540"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := append([]string(nil), tt.tokens...)
			got := Circle{}.Repair(input, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Repair() = %q, want %q", got, tt.want)
			}
			if !reflect.DeepEqual(input, tt.tokens) {
				t.Errorf("Repair modified its input: %q", input)
			}
			if again := (Circle{}).Repair(got, nil); !reflect.DeepEqual(again, got) {
				t.Errorf("Repair not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestContributionGoals(t *testing.T) {
	joined := func(date string) roster.Date {
		d, err := roster.ParseDate(date)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}

	tests := []struct {
		name   string
		join   string
		now    string
		hour   int
		weekly int
		total  int
	}{
		// 2025-01-15 is a Wednesday
		{"joined before this week", "2025-01-01", "2025-01-15", 14, 180, 1260},
		{"joined this week", "2025-01-14", "2025-01-15", 14, 90, 90},
		{"joined on monday", "2025-01-13", "2025-01-15", 14, 180, 180},
		{"before rollover counts yesterday", "2025-01-01", "2025-01-15", 4, 90, 1170},
		{"sunday", "2025-01-01", "2025-01-19", 10, 540, 1620},
		{"monday morning", "2025-01-01", "2025-01-13", 12, 0, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Env{Now: at(tt.now, tt.hour)}
			if got := WeeklyGoal(joined(tt.join), env); got != tt.weekly {
				t.Errorf("WeeklyGoal = %d, want %d", got, tt.weekly)
			}
			if got := TotalGoal(joined(tt.join), env); got != tt.total {
				t.Errorf("TotalGoal = %d, want %d", got, tt.total)
			}
		})
	}
}

func TestCircleCells(t *testing.T) {
	members := fakeRoster{"Alice": memberJoined("Alice", "2025-01-01")}
	columns := Circle{}.Columns()
	settings := testSettings()
	now := at("2025-01-15", 14)

	if len(columns) != 13 {
		t.Fatalf("expected 13 columns, got %d", len(columns))
	}
	headers := Headers(columns)
	if headers[0].Header != "직위" || headers[9].Header != "부족 공헌도" || headers[12].Header != "비고" {
		t.Errorf("unexpected headers: %v", headers)
	}

	env := func(row Row) Env {
		m, ok := members.FindByNickname(row.String("nickname"))
		return Env{Row: row, Member: m, Known: ok, Now: now, Settings: settings}
	}

	t.Run("known member under limit", func(t *testing.T) {
		row := Row{"nickname": "Alice", "position": "서클원", "weekly_contrib": 100, "total_contrib": 1000, "status": "접속중", "level": "Lv.40"}
		cells := Cells(columns, env(row))

		want := []interface{}{"서클원", "2025-01-01", 14, "Alice", "arca-Alice", "uid-Alice", "Lv.40", 100, 1000, 80, 260, "접속중", "note"}
		for i, w := range want {
			if cells[i].Value != w {
				t.Errorf("column %s = %#v, want %#v", columns[i].Key, cells[i].Value, w)
			}
			if cells[i].Fill != "" {
				t.Errorf("column %s filled with %s", columns[i].Key, cells[i].Fill)
			}
		}
	})

	t.Run("known member at limit", func(t *testing.T) {
		row := Row{"nickname": "Alice", "position": "서클원", "weekly_contrib": 270, "total_contrib": 1000, "status": "접속중", "level": "Lv.40"}
		for _, c := range Cells(columns, env(row)) {
			if c.Fill != excel.FillExceedsLimit {
				t.Fatalf("expected every cell filled %s, got %q", excel.FillExceedsLimit, c.Fill)
			}
		}
	})

	t.Run("unknown member", func(t *testing.T) {
		row := Row{"nickname": "Mallory", "position": "서클원", "weekly_contrib": 999, "total_contrib": 1000, "status": "접속중", "level": "Lv.1"}
		cells := Cells(columns, env(row))
		for i, c := range cells {
			if c.Fill != excel.FillNotInRoster {
				t.Errorf("column %s fill = %q", columns[i].Key, c.Fill)
			}
		}
		for _, i := range []int{1, 2, 4, 5, 9, 10, 12} {
			if cells[i].Value != nil {
				t.Errorf("column %s = %#v, want nil", columns[i].Key, cells[i].Value)
			}
		}
	})

	t.Run("member without join date", func(t *testing.T) {
		members["Bob"] = roster.Member{Nickname: "Bob", Role: roster.RoleMember}
		row := Row{"nickname": "Bob", "position": "서클원", "weekly_contrib": 10, "total_contrib": 10, "status": "-", "level": "Lv.1"}
		cells := Cells(columns, env(row))
		if cells[1].Value != nil || cells[2].Value != nil || cells[9].Value != nil || cells[10].Value != nil {
			t.Errorf("expected blank join and goal columns, got %v", cells)
		}
	})

	t.Run("non-numeric contribution leaves goals blank", func(t *testing.T) {
		row := Row{"nickname": "Alice", "position": "서클원", "weekly_contrib": "??", "total_contrib": "??", "status": "-", "level": "Lv.1"}
		cells := Cells(columns, env(row))
		if cells[9].Value != nil || cells[10].Value != nil {
			t.Errorf("expected blank goals, got %v / %v", cells[9].Value, cells[10].Value)
		}
	})
}

func TestCircleSettings(t *testing.T) {
	s := testSettings()
	c := Circle{}
	if c.ScrollStep(s) != 25 {
		t.Errorf("ScrollStep = %d", c.ScrollStep(s))
	}
	if c.OutputDir(s) != "output" {
		t.Errorf("OutputDir = %s", c.OutputDir(s))
	}
	s.OutputDir = ""
	if c.OutputDir(s) != "output" {
		t.Errorf("OutputDir default = %s", c.OutputDir(s))
	}
	if err := c.Preflight(s); err != nil {
		t.Errorf("Preflight = %v", err)
	}
}
