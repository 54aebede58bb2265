package views

import (
	"fmt"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread renders one conversation's messages.
type MessageThread struct {
	*tview.TextView
	theme *ui.Theme
	title string
}

// NewMessageThread creates the thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Messages ")
	tv.SetTitleColor(theme.TitleColor)

	return &MessageThread{TextView: tv, theme: theme}
}

// SetConversation updates the title shown above the thread.
func (mt *MessageThread) SetConversation(c api.Conversation) {
	mt.title = c.ClientName
	mode := "human"
	if c.BotActive {
		mode = "bot"
	}
	mt.SetTitle(fmt.Sprintf(" %s (%s) ", tview.Escape(sanitizeForTerminal(c.ClientName)), mode))
}

// Update re-renders the thread. mediaPath reports the local file for a
// resolved media id; unresolved attachments render as pending placeholders.
func (mt *MessageThread) Update(msgs []api.Message, mediaPath func(mediaID string) (string, bool)) {
	mt.Clear()

	for _, m := range msgs {
		sender := mt.title
		if m.Direction == api.DirectionOut {
			sender = "You"
		}

		header := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s %s[-:-:-]",
			tview.Escape(sanitizeForTerminal(sender)),
			formatTimestamp(m.CreatedAt),
			deliveryTicks(m))

		body := tview.Escape(sanitizeForTerminal(m.Text))
		if m.MediaKind != api.MediaNone {
			placeholder := mediaLine(m, mediaPath)
			if body != "" {
				body = placeholder + "\n" + body
			} else {
				body = placeholder
			}
		}

		_, _ = fmt.Fprintf(mt, "%s\n%s\n\n", header, body)
	}

	mt.ScrollToEnd()
}

func deliveryTicks(m api.Message) string {
	if m.Direction != api.DirectionOut {
		return ""
	}
	switch m.Delivery {
	case api.DeliveryQueued:
		return "…"
	case api.DeliverySent:
		return "✓"
	case api.DeliveryDelivered:
		return "✓✓"
	case api.DeliveryRead:
		return "[aqua]✓✓[-]"
	default:
		return ""
	}
}

func mediaLine(m api.Message, mediaPath func(string) (string, bool)) string {
	if path, ok := mediaPath(m.MediaID); ok {
		return fmt.Sprintf("[green][%s: %s][-]", m.MediaKind, path)
	}
	return fmt.Sprintf("[yellow][%s attachment, fetching...][-]", m.MediaKind)
}
