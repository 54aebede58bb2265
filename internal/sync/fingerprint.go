package sync

import (
	"strconv"
	"strings"

	"github.com/atendehq/atende/internal/api"
)

// Fingerprint computes a cheap content signature over a conversation list:
// identity plus the mutable fields the console displays. Two polls with
// equal fingerprints carry no visible change and must not replace state.
func Fingerprint(convs []api.Conversation) string {
	var b strings.Builder
	for _, c := range convs {
		b.WriteString(strconv.FormatInt(c.ID, 10))
		b.WriteByte('|')
		b.WriteString(c.ClientName)
		b.WriteByte('|')
		b.WriteString(c.Phone)
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(c.UnreadCount))
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(c.LastMessageAt, 10))
		b.WriteByte('|')
		b.WriteString(c.LastMessagePreview)
		b.WriteByte('|')
		if c.BotActive {
			b.WriteByte('b')
		}
		if c.RequiresReengagement {
			b.WriteByte('r')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ThreadChanged reports whether a freshly polled thread differs from the held
// one. Message ids increase monotonically per conversation and messages are
// never mutated in place, so count plus last id is a sufficient test.
func ThreadChanged(held, fresh []api.Message) bool {
	if len(held) != len(fresh) {
		return true
	}
	if len(fresh) == 0 {
		return false
	}
	return held[len(held)-1].ID != fresh[len(fresh)-1].ID
}
