package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/getfleetsim/fleetsim/pkg/logging"
)

// Type identifies a kind of event.
type Type string

// Event types emitted by the simulation core.
const (
	// Device events
	DeviceAdded        Type = "device.added"
	DeviceRemoved      Type = "device.removed"
	DeviceConnected    Type = "device.connected"
	DeviceDisconnected Type = "device.disconnected"

	// Simulation events
	SimulationStarted Type = "simulation.started"
	SimulationStopped Type = "simulation.stopped"

	// Message events
	MessageSent   Type = "message.sent"
	MessageFailed Type = "message.failed"

	// Monitoring events
	MetricsUpdated Type = "metrics.updated"

	// Template events
	TemplateCreated Type = "template.created"
	TemplateUpdated Type = "template.updated"
	TemplateDeleted Type = "template.deleted"
)

// Event is the payload delivered to handlers.
type Event struct {
	Type      Type
	Source    string
	Data      any
	Timestamp time.Time
}

// Handler processes a single event.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus routes events to subscribed handlers by type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]subscription
	nextID   uint64
	log      *slog.Logger
}

// NewBus creates a new event bus. A nil logger disables handler-failure
// logging.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = logging.Nop()
	}
	return &Bus{
		handlers: make(map[Type][]subscription),
		log:      log,
	}
}

// Subscribe registers a handler for an event type and returns a function
// that removes the subscription.
func (b *Bus) Subscribe(t Type, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, handler: h})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Emit delivers an event to every handler subscribed to its type.
// Handlers run synchronously in registration order; a handler that panics
// is recovered and logged without affecting the others.
func (b *Bus) Emit(t Type, source string, data any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[t]))
	copy(subs, b.handlers[t])
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	evt := Event{
		Type:      t,
		Source:    source,
		Data:      data,
		Timestamp: time.Now(),
	}

	for _, s := range subs {
		b.deliver(s.handler, evt)
	}
}

func (b *Bus) deliver(h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				"type", string(evt.Type),
				"source", evt.Source,
				"panic", r)
		}
	}()
	h(evt)
}

// SubscriberCount returns the number of handlers subscribed to a type.
func (b *Bus) SubscriberCount(t Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t])
}
