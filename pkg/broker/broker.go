// Package broker embeds a local MQTT broker so a fleet can be simulated
// end to end on one machine, with no cloud hub involved. Devices pointed at
// localhost publish through it and any MQTT client can subscribe to watch
// the traffic.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"github.com/getfleetsim/fleetsim/pkg/logging"
)

// DefaultPort is the standard MQTT port.
const DefaultPort = 1883

// SubscriptionHandler is a callback for messages observed by the broker.
type SubscriptionHandler func(topic string, payload []byte)

// Stats describes the broker's current state.
type Stats struct {
	Running      bool      `json:"running"`
	ClientCount  int       `json:"clientCount"`
	MessageCount int64     `json:"messageCount"`
	Port         int       `json:"port"`
	StartedAt    time.Time `json:"startedAt,omitzero"`
}

// Broker is an embedded MQTT broker for local fleet runs.
type Broker struct {
	server *mqtt.Server
	port   int
	log    *slog.Logger

	mu           sync.RWMutex
	running      bool
	startedAt    time.Time
	messageCount int64
	subscribers  map[string][]SubscriptionHandler
}

// New creates a broker listening on the given port when started. A port of
// zero or less falls back to DefaultPort.
func New(port int, log *slog.Logger) (*Broker, error) {
	if port <= 0 {
		port = DefaultPort
	}
	if log == nil {
		log = logging.Nop()
	}

	server := mqtt.New(&mqtt.Options{
		InlineClient: true,
	})

	b := &Broker{
		server:      server,
		port:        port,
		log:         log,
		subscribers: make(map[string][]SubscriptionHandler),
	}

	// mochi-mqtt requires an auth hook; all local clients are allowed.
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("failed to add allow hook: %w", err)
	}
	if err := server.AddHook(&messageHook{broker: b}, nil); err != nil {
		return nil, fmt.Errorf("failed to add message hook: %w", err)
	}

	return b, nil
}

// Start adds the TCP listener and begins serving. It returns an error when
// the broker is already running or the port cannot be bound.
func (b *Broker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("broker is already running")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	listener := listeners.NewTCP(listeners.Config{
		ID:      fmt.Sprintf("mqtt-%d", b.port),
		Address: fmt.Sprintf(":%d", b.port),
	})
	if err := b.server.AddListener(listener); err != nil {
		return fmt.Errorf("failed to add listener: %w", err)
	}

	go func() {
		if err := b.server.Serve(); err != nil {
			b.log.Error("mqtt server error", "error", err)
		}
	}()

	b.running = true
	b.startedAt = time.Now()
	b.log.Info("embedded broker started", "port", b.port)
	return nil
}

// Stop shuts the broker down, waiting up to timeout for a clean close.
func (b *Broker) Stop(ctx context.Context, timeout time.Duration) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Close triggers client disconnections which call hooks, so the mutex
	// must not be held across it.
	done := make(chan error, 1)
	go func() {
		done <- b.server.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close server: %w", err)
		}
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}

	b.log.Info("embedded broker stopped")
	return nil
}

// IsRunning reports whether the broker is serving.
func (b *Broker) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Port returns the configured listen port.
func (b *Broker) Port() int { return b.port }

// URL returns the broker URL suitable for paho clients.
func (b *Broker) URL() string {
	return fmt.Sprintf("tcp://localhost:%d", b.port)
}

// Publish injects a message through the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, qos byte, retain bool) error {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()

	if !running {
		return errors.New("broker is not running")
	}
	return b.server.Publish(topic, payload, retain, qos)
}

// Subscribe registers an internal handler invoked for every publish whose
// topic matches the given filter. Filters support + and # wildcards.
func (b *Broker) Subscribe(filter string, handler SubscriptionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[filter] = append(b.subscribers[filter], handler)
}

// Unsubscribe removes all internal handlers for a filter.
func (b *Broker) Unsubscribe(filter string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, filter)
}

// Stats returns the broker's operational counters.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Stats{
		Running:      b.running,
		ClientCount:  len(b.server.Clients.GetAll()),
		MessageCount: b.messageCount,
		Port:         b.port,
		StartedAt:    b.startedAt,
	}
}

// observePublish is called from the message hook for every publish.
func (b *Broker) observePublish(topic string, payload []byte) {
	b.mu.Lock()
	b.messageCount++
	var handlers []SubscriptionHandler
	for filter, hs := range b.subscribers {
		if MatchTopic(filter, topic) {
			handlers = append(handlers, hs...)
		}
	}
	b.mu.Unlock()

	for _, h := range handlers {
		go h(topic, payload)
	}
}

// MatchTopic reports whether an MQTT topic filter matches a topic.
// Supports + (single level) and # (multi-level) wildcards.
func MatchTopic(filter, topic string) bool {
	filterParts := splitTopic(filter)
	topicParts := splitTopic(topic)

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part == "+" {
			continue
		}
		if part != topicParts[i] {
			return false
		}
	}
	return len(filterParts) == len(topicParts)
}
