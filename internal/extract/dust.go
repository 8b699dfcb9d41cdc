package extract

import (
	"strings"

	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/excel"
	"jordanella.com/noruhunter-go/internal/roster"
)

// Dust token positions
const (
	dustNickname = iota
	dustHighTitle
	dustTotalTitle
	dustLevel
	dustPosition
	dustHighPoint
	dustTotalPoint
)

const (
	highTitleMarker  = "단일 전투"
	totalTitleMarker = "누적 점수"

	// dustScrollAdjust shortens each scroll; the dust list rows are taller.
	dustScrollAdjust = -5
)

// Dust extracts the dust frontline score board.
type Dust struct{}

var _ Extractor = Dust{}

func (Dust) Kind() string { return "dust" }

func (Dust) Name() string { return "흙먼지전선 추출" }

func (Dust) Fields() []Field {
	return []Field{
		{Key: "nickname", Label: "닉네임"},
		{Key: "higher_point_title", Label: "단일 전투 최고 점수 제목"},
		{Key: "total_point_title", Label: "누적 점수 제목"},
		{Key: "level", Label: "레벨"},
		{Key: "position", Label: "직위"},
		{Key: "higher_point", Label: "단일 전투 최고 점수"},
		{Key: "total_point", Label: "누적 점수"},
	}
}

func (Dust) Layout(layouts config.Layouts) cv.LayoutSet { return layouts.Dust }

// Preflight refuses to run until the season start date has been changed from the placeholder.
func (Dust) Preflight(s config.Settings) error {
	if strings.TrimSpace(s.DustStartDate) == "" || s.DustStartDate == config.DefaultDustStartDate {
		return &ConfigError{Message: "흙먼지 전선의 시작일을 설정해주세요."}
	}
	if _, err := roster.ParseDate(s.DustStartDate); err != nil {
		return &ConfigError{Message: "흙먼지 전선의 시작일 형식이 올바르지 않습니다. (YYYY-MM-DD)"}
	}
	return nil
}

// OutputDir sits beside the circle output: "output" becomes "output_dust".
func (Dust) OutputDir(s config.Settings) string {
	return Circle{}.OutputDir(s) + "_dust"
}

func (Dust) ScrollStep(s config.Settings) int {
	step := s.ScrollRepeat + dustScrollAdjust
	if step < 1 {
		step = 1
	}
	return step
}

// Repair re-joins split nicknames and level labels, drops badge tokens that push the role
// out of place and reduces the score columns to digits.
func (d Dust) Repair(tokens []string, members Lookup) []string {
	return repairRows(tokens, len(d.Fields()), func(w *tokenWindow) {
		if !strings.Contains(w.at(dustHighTitle), highTitleMarker) {
			w.mergeInto(dustHighTitle)
		}
		if !strings.Contains(w.at(dustTotalTitle), totalTitleMarker) {
			w.mergeInto(dustTotalTitle)
		}
		if w.has(dustLevel) && !hasLevelPrefix(w.at(dustLevel)) {
			w.mergeInto(dustLevel)
		}
		if w.has(dustPosition) && !roster.IsRole(w.at(dustPosition)) {
			// A known nickname means the row is aligned and the token is a stray badge.
			if isMember(members, w.at(dustNickname)) {
				w.drop(dustPosition)
			} else {
				w.mergeInto(dustPosition)
			}
		}
		w.normalizeNumber(dustHighPoint)
		w.normalizeNumber(dustTotalPoint)
	})
}

func isMember(members Lookup, nickname string) bool {
	if members == nil {
		return false
	}
	_, ok := members.FindByNickname(nickname)
	return ok
}

func (d Dust) Columns() []Column {
	style := d.style
	return []Column{
		shared("position", style),
		shared("join_date", style),
		shared("join_period", style),
		shared("nickname", style),
		shared("arcalive_id", style),
		shared("uid", style),
		shared("level", style),
		{Key: "higher_point", Header: "단일 전투 최고 점수", Value: rowValue("higher_point"), Style: style},
		{Key: "total_point", Header: "누적 점수", Value: rowValue("total_point"), Style: style},
		{Key: "missing_point", Header: "부족 점수", Value: d.missingPoint, Style: style},
		shared("remark", style),
	}
}

// PointGoal is the score expected since the later of the season start and the join date.
func PointGoal(join *roster.Date, env Env) int {
	start, err := roster.ParseDate(env.Settings.DustStartDate)
	if err != nil {
		return 0
	}
	from := start.Time
	if join != nil && !join.IsZero() && join.After(from) {
		from = join.Time
	}
	return env.Settings.DustPointLimit * daysBetween(from, env.Day())
}

// missingPoint never goes below zero. Members missing from the roster are measured from
// the season start.
func (Dust) missingPoint(e Env) interface{} {
	total, ok := e.Row.Int("total_point")
	if !ok {
		return nil
	}
	var join *roster.Date
	if e.Known {
		join = e.Member.JoinDate
	}
	missing := PointGoal(join, e) - total
	if missing < 0 {
		return 0
	}
	return missing
}

func (Dust) style(e Env) string {
	if !e.Known {
		return excel.FillNotInRoster
	}
	days, ok := e.Member.JoinPeriod(e.Now)
	total, numeric := e.Row.Int("total_point")
	if !ok || days <= 0 || !numeric {
		return ""
	}
	if float64(total)/float64(days) >= float64(e.Settings.DustPointLimit) {
		return excel.FillExceedsLimit
	}
	return ""
}
