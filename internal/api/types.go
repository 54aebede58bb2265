package api

// Mode selects who answers a conversation.
type Mode string

const (
	ModeBot   Mode = "bot"
	ModeHuman Mode = "human"
)

// Direction of a message relative to the company.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// MediaKind classifies a message attachment.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaImage    MediaKind = "image"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// DeliveryState tracks an outbound message's progress.
type DeliveryState string

const (
	DeliveryQueued    DeliveryState = "queued"
	DeliverySent      DeliveryState = "sent"
	DeliveryDelivered DeliveryState = "delivered"
	DeliveryRead      DeliveryState = "read"
)

// Conversation is a client-bound message thread.
type Conversation struct {
	ID                 int64
	ClientName         string
	Phone              string
	LastMessagePreview string
	LastMessageAt      int64 // unix ms
	UnreadCount        int
	BotActive          bool
	// RequiresReengagement is set by the backend once the messaging-window
	// SLA has lapsed and outbound automated messages are restricted.
	RequiresReengagement bool
}

// Message is a single entry in a conversation thread. Message IDs are
// assigned by the backend and increase monotonically per conversation.
type Message struct {
	ID             int64
	ConversationID int64
	Direction      Direction
	Text           string
	MediaKind      MediaKind
	MediaID        string
	Delivery       DeliveryState // meaningful only for Direction == out
	CreatedAt      int64         // unix ms
}
