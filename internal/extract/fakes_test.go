package extract

import (
	"time"

	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/roster"
)

type fakeRoster map[string]roster.Member

func (f fakeRoster) FindByNickname(nickname string) (roster.Member, bool) {
	m, ok := f[nickname]
	return m, ok
}

func memberJoined(nickname, date string) roster.Member {
	d, err := roster.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return roster.Member{Nickname: nickname, JoinDate: &d, Role: roster.RoleMember, PlatformID: "uid-" + nickname, ExternalID: "arca-" + nickname, Note: "note"}
}

func at(date string, hour int) time.Time {
	d, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour) * time.Hour)
}

func testSettings() config.Settings {
	return config.Settings{
		WindowTitle:    "EXILIUM",
		MaxScrolls:     20,
		ScrollRepeat:   25,
		ContribLimit:   270,
		DustPointLimit: 1600,
		DustStartDate:  "2025-03-01",
		ClovaAPI:       config.ClovaAPI{URL: "http://ocr.invalid", Secret: "secret"},
		OutputDir:      "output",
		OCRBackend:     "clova",
	}
}
