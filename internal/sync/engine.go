// Package sync keeps the conversation list and the selected thread fresh by
// polling the backend on a fixed-period timer and replacing local state only
// when a poll actually carries a change.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/bus"
	"github.com/atendehq/atende/internal/health"
	"go.uber.org/zap"
)

// Backend is the subset of backend operations the engine drives.
type Backend interface {
	ListConversations(ctx context.Context) ([]api.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]api.Message, error)
	MarkRead(ctx context.Context, conversationID int64) error
	SetMode(ctx context.Context, conversationID int64, mode api.Mode) error
	ResetBot(ctx context.Context, conversationID int64) error
}

// Engine owns the conversation list, the selected conversation id and its
// message thread. A single loop goroutine drives polling; all other methods
// only take the mutex briefly and never block on the network while holding it.
type Engine struct {
	backend  Backend
	bus      *bus.Bus
	health   *health.Machine
	logger   *zap.Logger
	interval time.Duration

	mu            sync.Mutex
	conversations []api.Conversation
	convFP        string
	selected      int64 // 0 = no conversation selected
	messages      []api.Message
	visible       bool

	pollNow chan struct{}
	cancel  context.CancelFunc
}

// NewEngine creates an engine. The console starts foreground-visible.
func NewEngine(backend Backend, b *bus.Bus, h *health.Machine, logger *zap.Logger, interval time.Duration) *Engine {
	return &Engine{
		backend:  backend,
		bus:      b,
		health:   h,
		logger:   logger,
		interval: interval,
		visible:  true,
		pollNow:  make(chan struct{}, 1),
	}
}

// Start launches the poll loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	go e.loop(ctx)
}

// Stop stops the poll loop.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) loop(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tick(ctx)
		case <-e.pollNow:
			e.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one poll cycle: the selected thread first, then the conversation
// list. The two are not atomic with respect to each other; a brief window of
// mutual staleness between them is acceptable. Ticks are skipped entirely
// while the console is not foreground-visible.
func (e *Engine) tick(ctx context.Context) {
	if !e.Visible() {
		return
	}
	_ = e.health.Transition(health.Polling)

	ok := true
	if sel := e.SelectedID(); sel != 0 {
		if err := e.pollThread(ctx, sel); err != nil {
			ok = false
		}
	}
	if err := e.pollConversations(ctx); err != nil {
		ok = false
	}

	if ok {
		_ = e.health.Transition(health.Live)
	} else {
		_ = e.health.Transition(health.Degraded)
	}
}

func (e *Engine) pollConversations(ctx context.Context) error {
	convs, err := e.backend.ListConversations(ctx)
	if err != nil {
		e.logger.Error("conversation poll failed", zap.Error(err))
		e.bus.Notify(bus.KindNotifyError, "Sync failed: "+err.Error())
		return err
	}

	// A timer tick that races a still-in-flight mark-read can return the old
	// counter; Select holds its forced re-poll back until mark-read has
	// landed, so the engine's own out-of-band cycle never carries it back.
	fp := Fingerprint(convs)
	e.mu.Lock()
	if fp == e.convFP {
		e.mu.Unlock()
		return nil
	}
	e.conversations = convs
	e.convFP = fp
	e.mu.Unlock()

	e.bus.Publish(bus.Event{Kind: bus.KindConversationsUpdated})
	return nil
}

func (e *Engine) pollThread(ctx context.Context, conversationID int64) error {
	msgs, err := e.backend.ListMessages(ctx, conversationID)

	// Relevance is decided when the response arrives, not when the request
	// was issued: the selection may have moved while the poll was in flight.
	e.mu.Lock()
	if e.selected != conversationID {
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("thread poll failed",
			zap.Int64("conversation_id", conversationID), zap.Error(err))
		e.bus.Notify(bus.KindNotifyError, "Sync failed: "+err.Error())
		return err
	}
	if !ThreadChanged(e.messages, msgs) {
		e.mu.Unlock()
		return nil
	}
	e.messages = msgs
	e.mu.Unlock()

	e.bus.Publish(bus.Event{Kind: bus.KindThreadUpdated, Payload: conversationID})
	return nil
}

// Select makes conversationID the active conversation. The held unread
// counter drops to zero immediately; the mark-read call runs in the
// background, is not rolled back if it fails, and the forced list re-poll
// only fires once it has completed.
func (e *Engine) Select(ctx context.Context, conversationID int64) {
	e.mu.Lock()
	if e.selected != conversationID {
		e.selected = conversationID
		e.messages = nil
	}
	needsRead := false
	for i := range e.conversations {
		if e.conversations[i].ID == conversationID && e.conversations[i].UnreadCount > 0 {
			e.conversations[i].UnreadCount = 0
			e.convFP = Fingerprint(e.conversations)
			needsRead = true
			break
		}
	}
	e.mu.Unlock()

	if !needsRead {
		e.PollNow()
		return
	}

	e.bus.Publish(bus.Event{Kind: bus.KindConversationsUpdated})
	// The thread loads right away, but the list re-poll must wait for the
	// backend to record the read; polling earlier would return the old
	// counter and resurrect the just-cleared count.
	go func() { _ = e.pollThread(ctx, conversationID) }()
	go func() {
		if err := e.backend.MarkRead(ctx, conversationID); err != nil {
			e.logger.Error("mark read failed",
				zap.Int64("conversation_id", conversationID), zap.Error(err))
			e.bus.Notify(bus.KindNotifyError, "Mark read failed: "+err.Error())
		}
		e.PollNow()
	}()
}

// AppendOutbound installs a just-sent message into the held thread so it is
// visible before the next poll confirms it. The id check keeps a slow send
// response from clobbering a thread the poller has already advanced past it.
func (e *Engine) AppendOutbound(m api.Message) {
	e.mu.Lock()
	if e.selected != m.ConversationID {
		e.mu.Unlock()
		return
	}
	if n := len(e.messages); n > 0 && e.messages[n-1].ID >= m.ID {
		e.mu.Unlock()
		return
	}
	e.messages = append(e.messages, m)
	e.mu.Unlock()
	e.bus.Publish(bus.Event{Kind: bus.KindThreadUpdated, Payload: m.ConversationID})
}

// ClearSelection deactivates the thread synchronizer and drops its state.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	e.selected = 0
	e.messages = nil
	e.mu.Unlock()
	e.bus.Publish(bus.Event{Kind: bus.KindThreadUpdated, Payload: int64(0)})
}

// PollNow requests an out-of-band poll cycle. Non-blocking; coalesces with a
// pending request.
func (e *Engine) PollNow() {
	select {
	case e.pollNow <- struct{}{}:
	default:
	}
}

// SetVisible sets the foreground-visibility gate.
func (e *Engine) SetVisible(v bool) {
	e.mu.Lock()
	e.visible = v
	e.mu.Unlock()
}

// Visible reports the foreground-visibility gate.
func (e *Engine) Visible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visible
}

// Conversations returns a snapshot of the held conversation list. Held
// entries are patched in place by Select and ToggleMode, so callers get a
// copy.
func (e *Engine) Conversations() []api.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]api.Conversation, len(e.conversations))
	copy(out, e.conversations)
	return out
}

// Conversation returns one held conversation by id.
func (e *Engine) Conversation(id int64) (api.Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return api.Conversation{}, false
}

// Messages returns a snapshot of the held thread for the selected
// conversation.
func (e *Engine) Messages() []api.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]api.Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// SelectedID returns the active conversation id, 0 if none.
func (e *Engine) SelectedID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}
