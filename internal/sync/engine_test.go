package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/bus"
	"github.com/atendehq/atende/internal/health"
	"go.uber.org/zap"
)

type fakeBackend struct {
	mu    stdsync.Mutex
	convs []api.Conversation
	msgs  map[int64][]api.Message

	listConvErr error
	setModeErr  error

	listConvCalls int32
	listMsgCalls  int32
	msgGate       chan struct{} // when non-nil, ListMessages blocks until closed

	markReadCalls []int64
	markReadGate  chan struct{} // when non-nil, MarkRead blocks until closed
	setModeCalls  []api.Mode
	resetCalls    int32
}

func (f *fakeBackend) ListConversations(context.Context) ([]api.Conversation, error) {
	atomic.AddInt32(&f.listConvCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listConvErr != nil {
		return nil, f.listConvErr
	}
	out := make([]api.Conversation, len(f.convs))
	copy(out, f.convs)
	return out, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, id int64) ([]api.Message, error) {
	atomic.AddInt32(&f.listMsgCalls, 1)
	if f.msgGate != nil {
		<-f.msgGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Message, len(f.msgs[id]))
	copy(out, f.msgs[id])
	return out, nil
}

func (f *fakeBackend) MarkRead(_ context.Context, id int64) error {
	if f.markReadGate != nil {
		<-f.markReadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, id)
	return nil
}

func (f *fakeBackend) SetMode(_ context.Context, _ int64, mode api.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setModeErr != nil {
		return f.setModeErr
	}
	f.setModeCalls = append(f.setModeCalls, mode)
	return nil
}

func (f *fakeBackend) ResetBot(context.Context, int64) error {
	atomic.AddInt32(&f.resetCalls, 1)
	return nil
}

func testEngine(f *fakeBackend, b *bus.Bus) *Engine {
	return NewEngine(f, b, health.NewMachine(b), zap.NewNop(), 5*time.Second)
}

func drain(ch <-chan bus.Event) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}

func TestConversationPollIdentityStability(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conv.", 10)
	defer unsub()

	f := &fakeBackend{convs: []api.Conversation{{ID: 1, ClientName: "Ana", UnreadCount: 3}}}
	e := testEngine(f, b)
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}

	// Identical content polled twice: state replaced exactly once.
	if got := drain(ch); got != 1 {
		t.Errorf("conv.updated events = %d, want 1", got)
	}
}

func TestConversationPollReplacesOnChange(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conv.", 10)
	defer unsub()

	f := &fakeBackend{convs: []api.Conversation{{ID: 1, UnreadCount: 0}}}
	e := testEngine(f, b)
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	f.convs[0].UnreadCount = 1
	f.mu.Unlock()
	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}

	if got := drain(ch); got != 2 {
		t.Errorf("conv.updated events = %d, want 2", got)
	}
	if e.Conversations()[0].UnreadCount != 1 {
		t.Error("held state not replaced on change")
	}
}

func TestConversationPollReplacesOnRename(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conv.", 10)
	defer unsub()

	f := &fakeBackend{convs: []api.Conversation{{ID: 1, ClientName: "Ana", UnreadCount: 3}}}
	e := testEngine(f, b)
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	// Only the display name moves, as when the client is renamed upstream.
	f.mu.Lock()
	f.convs[0].ClientName = "Ana Paula"
	f.mu.Unlock()
	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}

	if got := drain(ch); got != 2 {
		t.Errorf("conv.updated events = %d, want 2", got)
	}
	if got := e.Conversations()[0].ClientName; got != "Ana Paula" {
		t.Errorf("held name = %q, want rename applied", got)
	}
}

func TestConversationPollFailureKeepsState(t *testing.T) {
	b := bus.New()
	notifyCh, unsub := b.Subscribe("notify.", 10)
	defer unsub()

	f := &fakeBackend{convs: []api.Conversation{{ID: 1, ClientName: "Ana"}}}
	e := testEngine(f, b)
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	f.listConvErr = errors.New("connection refused")
	f.mu.Unlock()

	if err := e.pollConversations(ctx); err == nil {
		t.Fatal("expected poll error")
	}
	if len(e.Conversations()) != 1 {
		t.Error("failed poll must not alter held state")
	}

	evt := <-notifyCh
	if evt.Kind != bus.KindNotifyError {
		t.Errorf("notify kind = %q, want %q", evt.Kind, bus.KindNotifyError)
	}
}

func TestStaleThreadResponseDiscarded(t *testing.T) {
	b := bus.New()
	gate := make(chan struct{})
	f := &fakeBackend{
		msgs: map[int64][]api.Message{
			1: {{ID: 1, ConversationID: 1, Text: "from A"}},
			2: {{ID: 1, ConversationID: 2, Text: "from B"}},
		},
		msgGate: gate,
	}
	e := testEngine(f, b)
	ctx := context.Background()

	e.Select(ctx, 1)

	done := make(chan struct{})
	go func() {
		_ = e.pollThread(ctx, 1)
		close(done)
	}()

	// Selection moves to B while A's poll is still in flight.
	e.Select(ctx, 2)
	close(gate)
	<-done

	// A's late response must not be applied.
	if msgs := e.Messages(); len(msgs) != 0 {
		t.Fatalf("stale response applied: %+v", msgs)
	}

	if err := e.pollThread(ctx, 2); err != nil {
		t.Fatal(err)
	}
	msgs := e.Messages()
	if len(msgs) != 1 || msgs[0].ConversationID != 2 {
		t.Errorf("held thread = %+v, want conversation 2's", msgs)
	}
}

func TestThreadPollUnchangedKeepsState(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("thread.", 10)
	defer unsub()

	f := &fakeBackend{msgs: map[int64][]api.Message{1: {{ID: 1, ConversationID: 1}, {ID: 2, ConversationID: 1}}}}
	e := testEngine(f, b)
	ctx := context.Background()

	e.Select(ctx, 1)
	if err := e.pollThread(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := e.pollThread(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if got := drain(ch); got != 1 {
		t.Errorf("thread.updated events = %d, want 1", got)
	}
}

func TestVisibilityGate(t *testing.T) {
	f := &fakeBackend{convs: []api.Conversation{{ID: 1}}}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	e.SetVisible(false)
	e.tick(ctx)
	if got := atomic.LoadInt32(&f.listConvCalls); got != 0 {
		t.Errorf("polls while backgrounded = %d, want 0", got)
	}

	e.SetVisible(true)
	e.tick(ctx)
	if got := atomic.LoadInt32(&f.listConvCalls); got != 1 {
		t.Errorf("polls after foregrounding = %d, want 1", got)
	}
}

func TestSelectClearsUnreadBeforeMarkReadResolves(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeBackend{
		convs:        []api.Conversation{{ID: 1, UnreadCount: 3}},
		msgs:         map[int64][]api.Message{},
		markReadGate: gate,
	}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}

	e.Select(ctx, 1)

	// The held counter is zero immediately, while mark-read is still blocked.
	conv, _ := e.Conversation(1)
	if conv.UnreadCount != 0 {
		t.Errorf("unread after select = %d, want 0", conv.UnreadCount)
	}

	close(gate)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		n := len(f.markReadCalls)
		f.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("mark-read was never issued")
}

func TestSelectDefersListRepollUntilMarkRead(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeBackend{
		convs:        []api.Conversation{{ID: 1, UnreadCount: 3}},
		msgs:         map[int64][]api.Message{},
		markReadGate: gate,
	}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	e.Select(ctx, 1)

	// While mark-read is blocked, the backend would still answer a list poll
	// with the old counter, so no out-of-band cycle may be requested yet.
	time.Sleep(50 * time.Millisecond)
	select {
	case <-e.pollNow:
		t.Fatal("list re-poll requested before mark-read resolved")
	default:
	}
	conv, _ := e.Conversation(1)
	if conv.UnreadCount != 0 {
		t.Errorf("unread after select = %d, want 0", conv.UnreadCount)
	}

	close(gate)
	select {
	case <-e.pollNow:
	case <-time.After(2 * time.Second):
		t.Fatal("re-poll never requested after mark-read landed")
	}

	// The backend has recorded the read by now; the deferred cycle converges.
	f.mu.Lock()
	f.convs[0].UnreadCount = 0
	f.mu.Unlock()
	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	conv, _ = e.Conversation(1)
	if conv.UnreadCount != 0 {
		t.Errorf("unread after deferred re-poll = %d, want 0", conv.UnreadCount)
	}
}

func TestSelectWithoutUnreadSkipsMarkRead(t *testing.T) {
	f := &fakeBackend{convs: []api.Conversation{{ID: 1, UnreadCount: 0}}, msgs: map[int64][]api.Message{}}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	e.Select(ctx, 1)
	time.Sleep(50 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.markReadCalls) != 0 {
		t.Errorf("markRead calls = %d, want 0", len(f.markReadCalls))
	}
}

func TestToggleModeOptimistic(t *testing.T) {
	f := &fakeBackend{convs: []api.Conversation{{ID: 7, BotActive: false}}}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.ToggleMode(ctx, 7); err != nil {
		t.Fatal(err)
	}

	// botActive flips locally on request success, ahead of the next poll.
	conv, _ := e.Conversation(7)
	if !conv.BotActive {
		t.Error("BotActive = false, want true after toggle")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.setModeCalls) != 1 || f.setModeCalls[0] != api.ModeBot {
		t.Errorf("setMode calls = %v, want [bot]", f.setModeCalls)
	}
}

func TestToggleModeFailureLeavesState(t *testing.T) {
	f := &fakeBackend{
		convs:      []api.Conversation{{ID: 7, BotActive: true}},
		setModeErr: errors.New("offline"),
	}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	if err := e.pollConversations(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.ToggleMode(ctx, 7); err == nil {
		t.Fatal("expected toggle error")
	}

	conv, _ := e.Conversation(7)
	if !conv.BotActive {
		t.Error("failed toggle must not patch local state")
	}
}

func TestAppendOutboundEchoesIntoSelectedThread(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("thread.", 10)
	defer unsub()

	f := &fakeBackend{msgs: map[int64][]api.Message{1: {{ID: 1, ConversationID: 1}}}}
	e := testEngine(f, b)
	ctx := context.Background()

	e.Select(ctx, 1)
	if err := e.pollThread(ctx, 1); err != nil {
		t.Fatal(err)
	}
	drain(ch)

	e.AppendOutbound(api.Message{ID: 2, ConversationID: 1, Direction: api.DirectionOut, Text: "reply"})

	msgs := e.Messages()
	if len(msgs) != 2 || msgs[1].ID != 2 {
		t.Fatalf("held thread = %+v, want echoed message appended", msgs)
	}
	if got := drain(ch); got != 1 {
		t.Errorf("thread.updated events = %d, want 1", got)
	}

	// The next poll returns the same thread; the echo already matches it, so
	// no further update fires.
	f.mu.Lock()
	f.msgs[1] = append(f.msgs[1], api.Message{ID: 2, ConversationID: 1, Direction: api.DirectionOut, Text: "reply"})
	f.mu.Unlock()
	if err := e.pollThread(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if got := drain(ch); got != 0 {
		t.Errorf("thread.updated events after confirming poll = %d, want 0", got)
	}
}

func TestAppendOutboundIgnoresOtherConversations(t *testing.T) {
	f := &fakeBackend{msgs: map[int64][]api.Message{1: {{ID: 1, ConversationID: 1}}}}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	e.Select(ctx, 1)
	if err := e.pollThread(ctx, 1); err != nil {
		t.Fatal(err)
	}

	e.AppendOutbound(api.Message{ID: 5, ConversationID: 2, Direction: api.DirectionOut})
	if msgs := e.Messages(); len(msgs) != 1 {
		t.Errorf("message for another conversation echoed: %+v", msgs)
	}

	// A send response slower than the poll that already confirmed it must
	// not be appended twice.
	e.AppendOutbound(api.Message{ID: 1, ConversationID: 1, Direction: api.DirectionOut})
	if msgs := e.Messages(); len(msgs) != 1 {
		t.Errorf("stale echo appended: %+v", msgs)
	}
}

func TestClearSelectionDropsThread(t *testing.T) {
	f := &fakeBackend{msgs: map[int64][]api.Message{1: {{ID: 1, ConversationID: 1}}}}
	e := testEngine(f, bus.New())
	ctx := context.Background()

	e.Select(ctx, 1)
	if err := e.pollThread(ctx, 1); err != nil {
		t.Fatal(err)
	}
	e.ClearSelection()

	if e.SelectedID() != 0 {
		t.Error("selection not cleared")
	}
	if len(e.Messages()) != 0 {
		t.Error("thread state not dropped")
	}
}

func TestEngineLoopPollNow(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conv.", 10)
	defer unsub()

	f := &fakeBackend{convs: []api.Conversation{{ID: 1}}}
	e := testEngine(f, b)
	e.Start(context.Background())
	defer e.Stop()

	e.PollNow()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for out-of-band poll")
	}
}
