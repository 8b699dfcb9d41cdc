package extract

import (
	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/excel"
	"jordanella.com/noruhunter-go/internal/roster"
)

// MaxDailyContribution is the contribution a member can earn per day
const MaxDailyContribution = 90

// Circle token positions
const (
	circleNickname = iota
	circlePosition
	circleWeekly
	circleTotal
	circleStatus
	circleLevel
)

// Circle extracts the member list with weekly and total contribution.
type Circle struct{}

var _ Extractor = Circle{}

func (Circle) Kind() string { return "circle" }

func (Circle) Name() string { return "서클원 추출" }

func (Circle) Fields() []Field {
	return []Field{
		{Key: "nickname", Label: "닉네임"},
		{Key: "position", Label: "직위"},
		{Key: "weekly_contrib", Label: "이번 주 공헌도"},
		{Key: "total_contrib", Label: "누적 공헌도"},
		{Key: "status", Label: "상태"},
		{Key: "level", Label: "레벨"},
	}
}

func (Circle) Layout(layouts config.Layouts) cv.LayoutSet { return layouts.Circle }

func (Circle) Preflight(config.Settings) error { return nil }

func (Circle) OutputDir(s config.Settings) string {
	if s.OutputDir == "" {
		return "output"
	}
	return s.OutputDir
}

func (Circle) ScrollStep(s config.Settings) int { return s.ScrollRepeat }

// Repair re-joins nicknames split across tokens, strips separators from the contribution
// figures and re-joins a status split before the level.
func (c Circle) Repair(tokens []string, _ Lookup) []string {
	return repairRows(tokens, len(c.Fields()), func(w *tokenWindow) {
		if !roster.IsRole(w.at(circlePosition)) {
			w.mergeInto(circlePosition)
		}
		w.normalizeNumber(circleWeekly)
		w.normalizeNumber(circleTotal)
		if w.has(circleLevel) && !hasLevelPrefix(w.at(circleLevel)) {
			w.mergeInto(circleLevel)
		}
	})
}

func (c Circle) Columns() []Column {
	style := c.style
	return []Column{
		shared("position", style),
		shared("join_date", style),
		shared("join_period", style),
		shared("nickname", style),
		shared("arcalive_id", style),
		shared("uid", style),
		shared("level", style),
		{Key: "weekly_contrib", Header: "이번 주 공헌도", Value: rowValue("weekly_contrib"), Style: style},
		{Key: "total_contrib", Header: "누적 공헌도", Value: rowValue("total_contrib"), Style: style},
		{Key: "missing_weekly_contrib", Header: "부족 공헌도", Value: c.missingWeekly, Style: style},
		{Key: "missing_total_contrib", Header: "부족 누적 공헌도", Value: c.missingTotal, Style: style},
		{Key: "status", Header: "상태", Value: rowValue("status"), Style: style},
		shared("remark", style),
	}
}

// WeeklyGoal is the contribution expected since Monday, or since joining for members who
// joined this week.
func WeeklyGoal(join roster.Date, env Env) int {
	day := env.Day()
	monday := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	from := monday
	if join.After(monday) {
		from = join.Time
	}
	return MaxDailyContribution * daysBetween(from, day)
}

// TotalGoal is the contribution expected since joining.
func TotalGoal(join roster.Date, env Env) int {
	return MaxDailyContribution * daysBetween(join.Time, env.Day())
}

// missingWeekly is negative when the member is ahead of the goal.
func (Circle) missingWeekly(e Env) interface{} {
	weekly, ok := e.Row.Int("weekly_contrib")
	if !e.Known || !e.Member.HasJoinDate() || !ok {
		return nil
	}
	return WeeklyGoal(*e.Member.JoinDate, e) - weekly
}

func (Circle) missingTotal(e Env) interface{} {
	total, ok := e.Row.Int("total_contrib")
	if !e.Known || !e.Member.HasJoinDate() || !ok {
		return nil
	}
	return TotalGoal(*e.Member.JoinDate, e) - total
}

func (Circle) style(e Env) string {
	if !e.Known {
		return excel.FillNotInRoster
	}
	if weekly, ok := e.Row.Int("weekly_contrib"); ok && weekly >= e.Settings.ContribLimit {
		return excel.FillExceedsLimit
	}
	return ""
}

func hasLevelPrefix(s string) bool {
	return len(s) >= 2 && s[:2] == "Lv"
}
