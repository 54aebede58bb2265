package api

import (
	"github.com/go-playground/validator/v10"
)

// Wire shapes as the backend sends them. Each record is validated before it
// is admitted into the strict types in types.go; malformed records are
// quarantined (dropped and counted) rather than propagated.

type conversationDTO struct {
	ID                   int64  `json:"id" validate:"required,gt=0"`
	ClientName           string `json:"client_name" validate:"required"`
	Phone                string `json:"phone"`
	LastMessagePreview   string `json:"last_message_preview"`
	LastMessageAt        int64  `json:"last_message_at" validate:"gte=0"`
	UnreadCount          int    `json:"unread_count" validate:"gte=0"`
	BotActive            bool   `json:"bot_active"`
	RequiresReengagement bool   `json:"requires_reengagement"`
}

type messageDTO struct {
	ID             int64  `json:"id" validate:"required,gt=0"`
	ConversationID int64  `json:"conversation_id" validate:"required,gt=0"`
	Direction      string `json:"direction" validate:"required,oneof=in out"`
	Text           string `json:"text"`
	MediaKind      string `json:"media_kind" validate:"omitempty,oneof=image audio document"`
	MediaID        string `json:"media_id" validate:"required_with=MediaKind"`
	Delivery       string `json:"delivery" validate:"omitempty,oneof=queued sent delivered read"`
	CreatedAt      int64  `json:"created_at" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeConversations validates a wire batch and returns the admissible
// records plus the number of quarantined ones.
func decodeConversations(dtos []conversationDTO) ([]Conversation, int) {
	out := make([]Conversation, 0, len(dtos))
	dropped := 0
	for _, d := range dtos {
		if err := validate.Struct(d); err != nil {
			dropped++
			continue
		}
		out = append(out, Conversation{
			ID:                   d.ID,
			ClientName:           d.ClientName,
			Phone:                d.Phone,
			LastMessagePreview:   d.LastMessagePreview,
			LastMessageAt:        d.LastMessageAt,
			UnreadCount:          d.UnreadCount,
			BotActive:            d.BotActive,
			RequiresReengagement: d.RequiresReengagement,
		})
	}
	return out, dropped
}

func decodeMessages(dtos []messageDTO) ([]Message, int) {
	out := make([]Message, 0, len(dtos))
	dropped := 0
	for _, d := range dtos {
		if err := validate.Struct(d); err != nil {
			dropped++
			continue
		}
		out = append(out, decodeMessage(d))
	}
	return out, dropped
}

func decodeMessage(d messageDTO) Message {
	return Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		Direction:      Direction(d.Direction),
		Text:           d.Text,
		MediaKind:      MediaKind(d.MediaKind),
		MediaID:        d.MediaID,
		Delivery:       DeliveryState(d.Delivery),
		CreatedAt:      d.CreatedAt,
	}
}
