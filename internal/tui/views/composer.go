package views

import (
	"fmt"
	"path/filepath"

	"github.com/atendehq/atende/internal/outbox"
	"github.com/atendehq/atende/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the message input plus the staged-attachment indicator.
type Composer struct {
	*tview.Flex
	theme     *ui.Theme
	input     *tview.InputField
	indicator *tview.TextView
	onSend    func(text string)
}

// NewComposer creates the composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.HintKeyColor)
	input.SetTitle(" Compose (i to focus, Enter to send) ")
	input.SetTitleColor(theme.TitleColor)

	indicator := tview.NewTextView().SetDynamicColors(true)
	indicator.SetBackgroundColor(theme.BgColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(indicator, 0, 0, false).
		AddItem(input, 3, 0, true)

	c := &Composer{
		Flex:      flex,
		theme:     theme,
		input:     input,
		indicator: indicator,
	}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			c.onSend(input.GetText())
		}
	})

	return c
}

// SetOnSend registers the send callback. The callback owns clearing the
// draft; on a failed send the typed text stays put.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// Text returns the current draft.
func (c *Composer) Text() string {
	return c.input.GetText()
}

// ClearText discards the draft.
func (c *Composer) ClearText() {
	c.input.SetText("")
}

// Input exposes the input field for focus management.
func (c *Composer) Input() *tview.InputField {
	return c.input
}

// SetStaged shows or hides the staged-attachment indicator line.
func (c *Composer) SetStaged(att *outbox.Attachment) {
	if att == nil {
		c.indicator.Clear()
		c.ResizeItem(c.indicator, 0, 0)
		return
	}
	c.indicator.Clear()
	_, _ = fmt.Fprintf(c.indicator, " [orange]📎 %s (%s)[-]  x:unstage",
		tview.Escape(filepath.Base(att.Path)), att.Kind)
	c.ResizeItem(c.indicator, 1, 0)
}
