package health

import (
	"fmt"
	"slices"
	"sync"

	"github.com/atendehq/atende/internal/bus"
)

// State represents the poller's sync health.
type State string

const (
	// Idle: no poll has been issued yet.
	Idle State = "IDLE"
	// Polling: a poll cycle is in flight.
	Polling State = "POLLING"
	// Live: the last poll succeeded.
	Live State = "LIVE"
	// Degraded: the last poll failed; the next tick retries unconditionally.
	Degraded State = "DEGRADED"
)

// validTransitions defines allowed state transitions. A poll cycle is
// Idle/Live/Degraded → Polling → Live|Degraded.
var validTransitions = map[State][]State{
	Idle:     {Polling},
	Polling:  {Live, Degraded},
	Live:     {Polling},
	Degraded: {Polling},
}

// Machine tracks the poller's health and publishes changes on the bus.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a machine starting in Idle.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Idle, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid. Transitioning to the current state is a no-op.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == m.current {
		return nil
	}
	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:    bus.KindHealthChanged,
			Payload: Change{From: from, To: to},
		})
	}
	return nil
}

// Change is the payload for health change events.
type Change struct {
	From State
	To   State
}
