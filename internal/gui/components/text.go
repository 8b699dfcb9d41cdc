// Package components holds the small widget helpers shared by the tabs.
package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

func styled(text string, size fyne.ThemeSizeName, style fyne.TextStyle, color fyne.ThemeColorName) *widget.RichText {
	return widget.NewRichText(&widget.TextSegment{
		Text: text,
		Style: widget.RichTextStyle{
			SizeName:  size,
			TextStyle: style,
			ColorName: color,
		},
	})
}

// Heading is the bold title at the top of a tab
func Heading(text string) *widget.RichText {
	return styled(text, theme.SizeNameHeadingText, fyne.TextStyle{Bold: true}, theme.ColorNameForeground)
}

// Subheading titles a section inside a tab
func Subheading(text string) *widget.RichText {
	return styled(text, theme.SizeNameSubHeadingText, fyne.TextStyle{Bold: true}, theme.ColorNameForeground)
}

// Caption is small secondary text for hints under a field
func Caption(text string) *widget.RichText {
	return styled(text, theme.SizeNameCaptionText, fyne.TextStyle{}, theme.ColorNamePlaceHolder)
}

// BoldText creates bold text at standard size
func BoldText(text string) *widget.RichText {
	return styled(text, theme.SizeNameText, fyne.TextStyle{Bold: true}, theme.ColorNameForeground)
}

// MonospaceText is used for file paths and error messages
func MonospaceText(text string) *widget.RichText {
	t := styled(text, theme.SizeNameText, fyne.TextStyle{Monospace: true}, theme.ColorNameForeground)
	t.Wrapping = fyne.TextWrapBreak
	return t
}
