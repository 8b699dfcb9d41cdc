package gui

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/gui/components"
	"jordanella.com/noruhunter-go/internal/ocr"
	"jordanella.com/noruhunter-go/internal/roster"
)

// SettingsStore is the subset of config.Store the settings form edits
type SettingsStore interface {
	GetString(path string) string
	Set(path string, value interface{}) error
	Overridden(path string) (env string, ok bool)
}

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldSecret
	fieldInt
	fieldDate
	fieldChoice
)

// settingField describes one row of the settings form
type settingField struct {
	key     string
	label   string
	hint    string
	kind    fieldKind
	min     int
	max     int
	choices []string
}

var settingFields = []settingField{
	{key: config.KeyWindowTitle, label: "윈도우 제목", kind: fieldText},
	{key: config.KeyMaxScrolls, label: "최대 스크롤", kind: fieldInt, min: 1, max: 200},
	{key: config.KeyScrollRepeat, label: "스크롤 반복", kind: fieldInt, min: 1, max: 200, hint: "한 번 스크롤할 때 보내는 휠 입력 수"},
	{key: config.KeyContribLimit, label: "부족 공헌도 제한", kind: fieldInt, min: 0, max: 10000},
	{key: config.KeyDustStartDate, label: "흙먼지전선 시작일", kind: fieldDate, hint: roster.DateLayout},
	{key: config.KeyDustPointLimit, label: "흙먼지 일일 필요 점수", kind: fieldInt, min: 0, max: 10000},
	{key: config.KeyClovaURL, label: "클로바 API URL", kind: fieldText, hint: "엔드포인트 URL"},
	{key: config.KeyClovaSecret, label: "클로바 X_OCR_SECRET", kind: fieldSecret},
	{key: config.KeyOCRBackend, label: "OCR 엔진", kind: fieldChoice, choices: []string{ocr.BackendClova, ocr.BackendTesseract}},
	{key: config.KeyOutputDir, label: "출력 폴더", kind: fieldText},
}

// parse converts the form text to the value stored in config.json
func (f settingField) parse(text string) (interface{}, error) {
	text = strings.TrimSpace(text)
	switch f.kind {
	case fieldInt:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("%s: 숫자를 입력해주세요", f.label)
		}
		if n < f.min || n > f.max {
			return nil, fmt.Errorf("%s: %d~%d 사이의 값을 입력해주세요", f.label, f.min, f.max)
		}
		return n, nil
	case fieldDate:
		d, err := roster.ParseDate(text)
		if err != nil {
			return nil, fmt.Errorf("%s: 형식이 올바르지 않습니다 (%s)", f.label, roster.DateLayout)
		}
		if d.Before(mustDate(config.DefaultDustStartDate).Time) {
			return nil, fmt.Errorf("%s: %s 이후 날짜를 입력해주세요", f.label, config.DefaultDustStartDate)
		}
		return d.String(), nil
	case fieldChoice:
		for _, c := range f.choices {
			if c == text {
				return text, nil
			}
		}
		return nil, fmt.Errorf("%s: 알 수 없는 값 %q", f.label, text)
	}
	return text, nil
}

func mustDate(s string) roster.Date {
	d, err := roster.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// SettingsTab edits config.json. Valid values are saved as soon as they are typed.
type SettingsTab struct {
	store  SettingsStore
	status *widget.Label
}

// NewSettingsTab creates the settings form over store
func NewSettingsTab(store SettingsStore) *SettingsTab {
	return &SettingsTab{store: store}
}

// Build constructs the settings form
func (t *SettingsTab) Build() fyne.CanvasObject {
	t.status = widget.NewLabel("")

	rows := container.NewVBox()
	for _, f := range settingFields {
		rows.Add(components.FieldRow(f.label, t.input(f), fieldHint(t.store, f)))
	}

	return container.NewBorder(
		components.Heading("설정"),
		t.status,
		nil, nil,
		container.NewVScroll(rows),
	)
}

// fieldHint explains where the shown value comes from when an environment variable supplies it.
func fieldHint(store SettingsStore, f settingField) string {
	if env, ok := store.Overridden(f.key); ok {
		return fmt.Sprintf("%s 환경 변수 값을 사용 중입니다. 수정하면 이번 실행 동안 입력한 값이 우선합니다.", env)
	}
	return f.hint
}

func (t *SettingsTab) input(f settingField) fyne.CanvasObject {
	current := t.store.GetString(f.key)

	if f.kind == fieldChoice {
		sel := widget.NewSelect(f.choices, nil)
		sel.SetSelected(current)
		sel.OnChanged = func(s string) { t.save(f, s) }
		return sel
	}

	var entry *widget.Entry
	if f.kind == fieldSecret {
		entry = widget.NewPasswordEntry()
	} else {
		entry = widget.NewEntry()
	}
	entry.SetText(current)
	if f.hint != "" && f.kind != fieldSecret {
		entry.SetPlaceHolder(f.hint)
	}
	entry.Validator = func(s string) error {
		_, err := f.parse(s)
		return err
	}
	entry.OnChanged = func(s string) { t.save(f, s) }
	return entry
}

// save persists text when it is valid and reports the outcome in the status line.
func (t *SettingsTab) save(f settingField, text string) {
	value, err := f.parse(text)
	if err != nil {
		t.setStatus(err.Error())
		return
	}
	if err := t.store.Set(f.key, value); err != nil {
		t.setStatus(fmt.Sprintf("%s 저장 실패: %v", f.label, err))
		return
	}
	t.setStatus(f.label + " 저장됨")
}

func (t *SettingsTab) setStatus(text string) {
	if t.status != nil {
		t.status.SetText(text)
	}
}
