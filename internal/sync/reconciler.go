package sync

import (
	"context"
	"fmt"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/bus"
	"go.uber.org/zap"
)

// ToggleMode flips a conversation between bot and human handling. On success
// the held botActive flag is patched immediately instead of waiting for the
// next poll, and a list re-poll is forced to converge.
func (e *Engine) ToggleMode(ctx context.Context, conversationID int64) error {
	conv, ok := e.Conversation(conversationID)
	if !ok {
		return fmt.Errorf("conversation %d not held", conversationID)
	}
	target := api.ModeBot
	if conv.BotActive {
		target = api.ModeHuman
	}

	if err := e.backend.SetMode(ctx, conversationID, target); err != nil {
		e.logger.Error("mode toggle failed",
			zap.Int64("conversation_id", conversationID), zap.Error(err))
		e.bus.Notify(bus.KindNotifyError, "Mode change failed: "+err.Error())
		return err
	}

	e.mu.Lock()
	for i := range e.conversations {
		if e.conversations[i].ID == conversationID {
			e.conversations[i].BotActive = target == api.ModeBot
			e.convFP = Fingerprint(e.conversations)
			break
		}
	}
	e.mu.Unlock()

	e.bus.Publish(bus.Event{Kind: bus.KindConversationsUpdated})
	e.bus.Notify(bus.KindNotifyInfo, "Mode: "+string(target))
	e.PollNow()
	return nil
}

// ResetBot restarts the bot's dialogue state for a conversation. Stateless:
// no local mutation, only a user notification either way.
func (e *Engine) ResetBot(ctx context.Context, conversationID int64) error {
	if err := e.backend.ResetBot(ctx, conversationID); err != nil {
		e.logger.Error("bot reset failed",
			zap.Int64("conversation_id", conversationID), zap.Error(err))
		e.bus.Notify(bus.KindNotifyError, "Bot reset failed: "+err.Error())
		return err
	}
	e.bus.Notify(bus.KindNotifyInfo, "Bot restarted")
	return nil
}
