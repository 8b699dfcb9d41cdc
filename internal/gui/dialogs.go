package gui

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// DialogPrompter shows modal fyne dialogs and blocks the calling goroutine until the user
// answers. It must not be called from the UI goroutine.
type DialogPrompter struct {
	window fyne.Window
}

// NewDialogPrompter creates a prompter parented to w
func NewDialogPrompter(w fyne.Window) *DialogPrompter {
	return &DialogPrompter{window: w}
}

// Alert shows an information dialog
func (p *DialogPrompter) Alert(title, message string) {
	p.wait(func(done func()) {
		d := dialog.NewInformation(title, message, p.window)
		d.SetOnClosed(done)
		d.Show()
	})
}

// Error shows an error dialog with the message as written
func (p *DialogPrompter) Error(title, message string) {
	p.Alert(title, message)
}

// Confirm asks a yes/no question
func (p *DialogPrompter) Confirm(title, message string) bool {
	answer := make(chan bool, 1)
	fyne.Do(func() {
		d := dialog.NewConfirm(title, message, func(ok bool) { answer <- ok }, p.window)
		d.SetConfirmText("확인")
		d.SetDismissText("취소")
		d.Show()
	})
	return <-answer
}

func (p *DialogPrompter) wait(show func(done func())) {
	closed := make(chan struct{})
	var once sync.Once
	fyne.Do(func() {
		show(func() { once.Do(func() { close(closed) }) })
	})
	<-closed
}

// fileURL converts a local path to a file:// URL the shell can open
func fileURL(path string) (*url.URL, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}, nil
}

// shellOpener opens finished workbooks with the default application
func shellOpener(app fyne.App) func(path string) error {
	return func(path string) error {
		u, err := fileURL(path)
		if err != nil {
			return err
		}
		return app.OpenURL(u)
	}
}
