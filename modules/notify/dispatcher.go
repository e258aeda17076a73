package notify

import (
	"sync"
	"time"

	"github.com/example/taskdesk/modules/presence"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/jonboulle/clockwork"
)

// Outbound event names.
const (
	EventTaskUpdated  = "taskUpdated"
	EventTaskAssigned = "taskAssigned"
	EventNewMessage   = "newMessage"
)

// Intent pairs a durable state change with the user who should hear about it.
type Intent struct {
	Target  string
	Event   string
	Payload any
	Delay   time.Duration
}

// Dispatcher turns intents into at most one delivery attempt each.
type Dispatcher struct {
	registry *presence.Registry
	clock    clockwork.Clock
	logger   types.Logger

	mu      sync.Mutex
	timers  map[uint64]clockwork.Timer
	nextID  uint64
	stopped bool
}

// NewDispatcher creates a Dispatcher that delivers through registry.
func NewDispatcher(registry *presence.Registry, clock clockwork.Clock, logger types.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		clock:    clock,
		logger:   logger,
		timers:   make(map[uint64]clockwork.Timer),
	}
}

// Dispatch resolves the target and delivers the intent now.
// An unreachable target is not an error: the intent is dropped.
func (d *Dispatcher) Dispatch(intent Intent) bool {
	if intent.Target == "" {
		return false
	}
	env := presence.Envelope{Event: intent.Event, Payload: intent.Payload}
	if !d.registry.Deliver(intent.Target, env) {
		d.logger.Debug("Notification dropped", "target", intent.Target, "event", intent.Event)
		return false
	}
	d.logger.Debug("Notification delivered", "target", intent.Target, "event", intent.Event)
	return true
}

// Schedule dispatches immediately when the intent has no delay, otherwise
// after the delay has elapsed on the dispatcher's clock. Presence is resolved
// when the timer fires.
func (d *Dispatcher) Schedule(intent Intent) {
	if intent.Delay <= 0 {
		d.Dispatch(intent)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		d.logger.Debug("Dispatcher stopped, deferred notification discarded", "target", intent.Target, "event", intent.Event)
		return
	}

	id := d.nextID
	d.nextID++
	d.timers[id] = d.clock.AfterFunc(intent.Delay, func() {
		d.mu.Lock()
		_, pending := d.timers[id]
		delete(d.timers, id)
		d.mu.Unlock()

		if pending {
			d.Dispatch(intent)
		}
	})
	d.logger.Debug("Notification deferred", "target", intent.Target, "event", intent.Event, "delay", intent.Delay)
}

// Pending returns the number of deferred intents that have not fired yet.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels every pending timer and rejects further deferred intents.
// It returns the number of cancelled intents.
func (d *Dispatcher) Stop() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	n := len(d.timers)
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
	return n
}
