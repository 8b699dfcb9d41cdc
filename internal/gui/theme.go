package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	// DefaultWindowSize matches the roster table's natural width
	DefaultWindowSize = fyne.NewSize(1000, 650)

	ColorPrimary = color.NRGBA{R: 0, G: 121, B: 107, A: 255} // teal
	ColorSuccess = color.NRGBA{R: 76, G: 175, B: 80, A: 255}
	ColorWarning = color.NRGBA{R: 255, G: 152, B: 0, A: 255}
	ColorError   = color.NRGBA{R: 229, G: 57, B: 53, A: 255}
)

// AppTheme keeps the default light/dark variants and overrides the accent colors and text sizes.
type AppTheme struct{}

var _ fyne.Theme = (*AppTheme)(nil)

func (t *AppTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return ColorPrimary
	case theme.ColorNameSuccess:
		return ColorSuccess
	case theme.ColorNameWarning:
		return ColorWarning
	case theme.ColorNameError:
		return ColorError
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *AppTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *AppTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *AppTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 14
	case theme.SizeNameHeadingText:
		return 20
	case theme.SizeNameSubHeadingText:
		return 16
	default:
		return theme.DefaultTheme().Size(name)
	}
}
