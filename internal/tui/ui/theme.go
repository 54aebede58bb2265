// Package ui holds shared presentation pieces for the console.
package ui

import "github.com/gdamore/tcell/v2"

// Theme holds the color palette for the console.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TableHeaderFg    tcell.Color
	TableHeaderBg    tcell.Color
	TableCursorFg    tcell.Color
	TableCursorBg    tcell.Color
	TitleColor       tcell.Color
	UnreadColor      tcell.Color
	BotColor         tcell.Color
	HumanColor       tcell.Color
	AlertColor       tcell.Color
	FlashInfoColor   tcell.Color
	FlashErrColor    tcell.Color
	HintKeyColor     tcell.Color
}

// DefaultTheme returns the default dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		TableHeaderFg:    tcell.ColorWhite,
		TableHeaderBg:    tcell.ColorBlack,
		TableCursorFg:    tcell.ColorBlack,
		TableCursorBg:    tcell.ColorAqua,
		TitleColor:       tcell.ColorFuchsia,
		UnreadColor:      tcell.ColorOrange,
		BotColor:         tcell.ColorMediumSpringGreen,
		HumanColor:       tcell.ColorNavajoWhite,
		AlertColor:       tcell.ColorOrangeRed,
		FlashInfoColor:   tcell.ColorNavajoWhite,
		FlashErrColor:    tcell.ColorOrangeRed,
		HintKeyColor:     tcell.ColorDodgerBlue,
	}
}
