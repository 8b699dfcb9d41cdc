package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// PrimaryButton creates a high-importance button
func PrimaryButton(text string, tapped func()) *widget.Button {
	btn := widget.NewButton(text, tapped)
	btn.Importance = widget.HighImportance
	return btn
}

// DangerButton creates a button for destructive actions
func DangerButton(text string, tapped func()) *widget.Button {
	btn := widget.NewButton(text, tapped)
	btn.Importance = widget.DangerImportance
	return btn
}

// SectionHeader places a subheading on the left and actions on the right.
func SectionHeader(title string, actions ...fyne.CanvasObject) *fyne.Container {
	header := Subheading(title)
	if len(actions) == 0 {
		return container.NewVBox(header)
	}
	return container.NewBorder(nil, nil, header, container.NewHBox(actions...), layout.NewSpacer())
}

// FieldRow stacks a bold label over its input and an optional hint
func FieldRow(label string, field fyne.CanvasObject, hint string) *fyne.Container {
	box := container.NewVBox(BoldText(label), field)
	if hint != "" {
		box.Add(Caption(hint))
	}
	return box
}

// InfoRow shows "label: value" on one line
func InfoRow(label, value string) *fyne.Container {
	return container.NewHBox(BoldText(label+":"), widget.NewLabel(value))
}

// ActionBar lays out buttons on both sides of a bar
func ActionBar(left, right []fyne.CanvasObject) *fyne.Container {
	return container.NewBorder(nil, nil, container.NewHBox(left...), container.NewHBox(right...), layout.NewSpacer())
}
