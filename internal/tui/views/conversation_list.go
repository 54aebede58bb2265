// Package views contains the tview primitives composing the console.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	theme  *ui.Theme
	convs  []api.Conversation
	filter string
}

// NewConversationList creates the conversation table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Conversations ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{Table: table, theme: theme}
}

// Update refreshes the table with a new conversation snapshot.
func (cl *ConversationList) Update(convs []api.Conversation) {
	cl.convs = convs
	cl.render()
}

// SetFilter applies a case-insensitive substring filter over client name,
// phone and preview, then re-renders.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter removes the active filter.
func (cl *ConversationList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

func (cl *ConversationList) matches(c api.Conversation) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	return strings.Contains(strings.ToLower(c.ClientName), f) ||
		strings.Contains(c.Phone, f) ||
		strings.Contains(strings.ToLower(c.LastMessagePreview), f)
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" CLIENT", 1},
		{" PHONE", 0},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" MODE", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	row := 1
	for _, c := range cl.convs {
		if !cl.matches(c) {
			continue
		}

		name := c.ClientName
		nameColor := cl.theme.FgColor
		if c.UnreadCount > 0 {
			name = fmt.Sprintf("(%d) %s", c.UnreadCount, name)
			nameColor = cl.theme.UnreadColor
		}
		if c.RequiresReengagement {
			name = "! " + name
			nameColor = cl.theme.AlertColor
		}

		mode := "HUMAN"
		modeColor := cl.theme.HumanColor
		if c.BotActive {
			mode = "BOT"
			modeColor = cl.theme.BotColor
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).
			SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+c.Phone).
			SetExpansion(0).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(c.LastMessagePreview))).
			SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(formatTimestamp(c.LastMessageAt)).
			SetExpansion(0).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 4, tview.NewTableCell(mode).
			SetExpansion(0).SetTextColor(modeColor).SetAlign(tview.AlignRight))
		row++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", row-1, len(cl.convs), cl.filter))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.convs)))
	}
}

// SelectedConversation returns the id of the conversation under the cursor,
// or 0 when none is.
func (cl *ConversationList) SelectedConversation() int64 {
	row, _ := cl.GetSelection()
	idx := row - 1 // header
	if idx < 0 {
		return 0
	}
	visible := 0
	for _, c := range cl.convs {
		if !cl.matches(c) {
			continue
		}
		if visible == idx {
			return c.ID
		}
		visible++
	}
	return 0
}

func formatTimestamp(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02/01")
}
