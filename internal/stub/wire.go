package stub

import "github.com/atendehq/atende/internal/api"

// Wire shapes owned by the backend contract.

type conversationJSON struct {
	ID                   int64  `json:"id"`
	ClientName           string `json:"client_name"`
	Phone                string `json:"phone"`
	LastMessagePreview   string `json:"last_message_preview"`
	LastMessageAt        int64  `json:"last_message_at"`
	UnreadCount          int    `json:"unread_count"`
	BotActive            bool   `json:"bot_active"`
	RequiresReengagement bool   `json:"requires_reengagement"`
}

type messageJSON struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	Direction      string `json:"direction"`
	Text           string `json:"text"`
	MediaKind      string `json:"media_kind,omitempty"`
	MediaID        string `json:"media_id,omitempty"`
	Delivery       string `json:"delivery,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

func conversationToWire(c api.Conversation) conversationJSON {
	return conversationJSON{
		ID:                   c.ID,
		ClientName:           c.ClientName,
		Phone:                c.Phone,
		LastMessagePreview:   c.LastMessagePreview,
		LastMessageAt:        c.LastMessageAt,
		UnreadCount:          c.UnreadCount,
		BotActive:            c.BotActive,
		RequiresReengagement: c.RequiresReengagement,
	}
}

func messageToWire(m api.Message) messageJSON {
	return messageJSON{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Direction:      string(m.Direction),
		Text:           m.Text,
		MediaKind:      string(m.MediaKind),
		MediaID:        m.MediaID,
		Delivery:       string(m.Delivery),
		CreatedAt:      m.CreatedAt,
	}
}
