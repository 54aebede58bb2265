package outbox

import (
	"context"
	"errors"
	"strings"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/bus"
	"go.uber.org/zap"
)

// Sender is the backend surface the pipeline drives.
type Sender interface {
	SendText(ctx context.Context, conversationID int64, text string) (api.Message, error)
	SendMedia(ctx context.Context, conversationID int64, kind api.MediaKind, filePath, caption string) (api.Message, error)
}

// Refresher surfaces a sent message in the held thread immediately and
// forces an out-of-band sync cycle so the updated preview follows without
// waiting for the next tick.
type Refresher interface {
	AppendOutbound(m api.Message)
	PollNow()
}

var (
	// ErrNoConversation is returned when no conversation is selected.
	ErrNoConversation = errors.New("no conversation selected")
	// ErrNothingToSend is returned when the guard finds neither trimmed
	// text nor a staged attachment.
	ErrNothingToSend = errors.New("nothing to send")
)

// Pipeline drives the two send paths. On failure the draft state (typed text
// is owned by the composer, the staged attachment by Staging) is left intact
// so the user can retry.
type Pipeline struct {
	sender    Sender
	staging   *Staging
	refresher Refresher
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewPipeline creates a send pipeline.
func NewPipeline(sender Sender, staging *Staging, refresher Refresher, b *bus.Bus, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		sender:    sender,
		staging:   staging,
		refresher: refresher,
		bus:       b,
		logger:    logger,
	}
}

// CanSend reports whether the send affordance should be enabled.
func (p *Pipeline) CanSend(conversationID int64, text string) bool {
	if conversationID == 0 {
		return false
	}
	if strings.TrimSpace(text) != "" {
		return true
	}
	_, staged := p.staging.Pending()
	return staged
}

// SendText sends a text-only message. Whitespace-only text never reaches the
// backend.
func (p *Pipeline) SendText(ctx context.Context, conversationID int64, text string) error {
	if conversationID == 0 {
		return ErrNoConversation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrNothingToSend
	}

	msg, err := p.sender.SendText(ctx, conversationID, text)
	if err != nil {
		p.logger.Error("send text failed",
			zap.Int64("conversation_id", conversationID), zap.Error(err))
		p.bus.Notify(bus.KindNotifyError, "Send failed: "+err.Error())
		return err
	}

	p.refresher.AppendOutbound(msg)
	p.bus.Notify(bus.KindNotifyInfo, "Message sent")
	p.refresher.PollNow()
	return nil
}

// SendStaged sends the staged attachment with an optional caption. Captions
// are carried only for image and document kinds. On success the staged
// attachment is cleared (releasing its preview); on failure it survives.
func (p *Pipeline) SendStaged(ctx context.Context, conversationID int64, caption string) error {
	if conversationID == 0 {
		return ErrNoConversation
	}
	att, ok := p.staging.Pending()
	if !ok {
		return ErrNothingToSend
	}

	caption = strings.TrimSpace(caption)
	if att.Kind == api.MediaAudio {
		caption = ""
	}

	msg, err := p.sender.SendMedia(ctx, conversationID, att.Kind, att.Path, caption)
	if err != nil {
		p.logger.Error("send media failed",
			zap.Int64("conversation_id", conversationID),
			zap.String("kind", string(att.Kind)), zap.Error(err))
		p.bus.Notify(bus.KindNotifyError, "Send failed: "+err.Error())
		return err
	}

	p.staging.Clear()
	p.refresher.AppendOutbound(msg)
	p.bus.Notify(bus.KindNotifyInfo, "Attachment sent")
	p.refresher.PollNow()
	return nil
}
