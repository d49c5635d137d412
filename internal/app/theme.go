package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// QualityMasterTheme is the light theme used on the shop floor tablets.
type QualityMasterTheme struct{}

var _ fyne.Theme = (*QualityMasterTheme)(nil)

func (t *QualityMasterTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xFF}
	case theme.ColorNameBackground:
		return color.NRGBA{R: 0xFA, G: 0xFA, B: 0xFA, A: 0xFF}
	case theme.ColorNameInputBackground:
		return color.White
	case theme.ColorNameSeparator:
		return color.NRGBA{R: 0xE6, G: 0xE6, B: 0xE6, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, theme.VariantLight)
	}
}

func (t *QualityMasterTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *QualityMasterTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *QualityMasterTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameInputRadius, theme.SizeNameSelectionRadius:
		return 8
	case theme.SizeNameScrollBar:
		return 16 // wide enough for a gloved finger
	default:
		return theme.DefaultTheme().Size(name)
	}
}
