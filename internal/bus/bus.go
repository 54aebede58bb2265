// Package bus is the in-process publish/subscribe channel between the sync
// engine and the console surfaces. Subscriptions match on a namespace prefix
// of the event kind.
package bus

import (
	"strings"
	"sync"
	"time"
)

// Event kinds published by the engine and its collaborators.
const (
	KindConversationsUpdated = "conv.updated"
	KindThreadUpdated        = "thread.updated"
	KindMediaResolved        = "media.resolved"
	KindHealthChanged        = "health.changed"
	KindNotifyInfo           = "notify.info"
	KindNotifyError          = "notify.error"
)

// Event is a domain event.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

type subscription struct {
	namespace string
	ch        chan Event
}

// Bus fans events out to subscribers. Delivery is non-blocking: a subscriber
// that cannot keep up loses events rather than stalling the publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscription
	next int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Publish sends an event to every subscriber whose namespace prefixes the
// event kind. A zero Timestamp is filled in.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if strings.HasPrefix(evt.Kind, sub.namespace) {
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// Notify publishes a user-facing notification. kind must be KindNotifyInfo
// or KindNotifyError; the payload is the message text.
func (b *Bus) Notify(kind, message string) {
	b.Publish(Event{Kind: kind, Payload: message})
}

// Subscribe registers interest in a kind prefix. The returned function
// removes the subscription; the channel is buffered with bufSize slots.
func (b *Bus) Subscribe(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{namespace: namespace, ch: ch}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
