package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqttclient "github.com/eclipse/paho.mqtt.golang"
	"github.com/getfleetsim/fleetsim/pkg/logging"
	"github.com/google/uuid"
)

const defaultConnectTimeout = 5 * time.Second

// MQTTSender publishes telemetry to a message hub over MQTT. One sender is
// bound to one device; messages go to devices/{deviceId}/messages/events.
type MQTTSender struct {
	cs     *ConnectionString
	qos    byte
	client mqttclient.Client
	log    *slog.Logger

	mu        sync.Mutex
	connected bool
}

// MQTTSenderOption customizes an MQTTSender.
type MQTTSenderOption func(*MQTTSender)

// WithQoS sets the publish QoS level (0, 1, or 2). Values above 2 fall back
// to 0.
func WithQoS(qos byte) MQTTSenderOption {
	return func(s *MQTTSender) {
		if qos <= 2 {
			s.qos = qos
		}
	}
}

// WithSenderLogger sets the sender's logger.
func WithSenderLogger(log *slog.Logger) MQTTSenderOption {
	return func(s *MQTTSender) {
		if log != nil {
			s.log = log
		}
	}
}

// NewMQTTSender creates a sender for the device named in the connection
// string. The connection is not opened until Connect.
func NewMQTTSender(cs *ConnectionString, opts ...MQTTSenderOption) *MQTTSender {
	s := &MQTTSender{
		cs:  cs,
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens the MQTT connection. It is a no-op when already connected.
func (s *MQTTSender) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	opts := mqttclient.NewClientOptions()
	opts.AddBroker(s.cs.BrokerURL())
	opts.SetClientID(s.cs.DeviceID)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetAutoReconnect(true)

	client := mqttclient.NewClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", s.cs.BrokerURL(), err)
	}

	s.client = client
	s.connected = true
	s.log.Debug("device connected", "deviceId", s.cs.DeviceID, "broker", s.cs.BrokerURL())
	return nil
}

// Disconnect closes the MQTT connection. It is a no-op when not connected.
func (s *MQTTSender) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return
	}
	s.client.Disconnect(250)
	s.client = nil
	s.connected = false
	s.log.Debug("device disconnected", "deviceId", s.cs.DeviceID)
}

// Send publishes one payload as JSON. It returns once the broker
// acknowledges the publish or ctx is canceled.
func (s *MQTTSender) Send(ctx context.Context, payload map[string]any) error {
	s.mu.Lock()
	client := s.client
	connected := s.connected
	s.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	token := client.Publish(s.topic(), s.qos, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (s *MQTTSender) topic() string {
	return fmt.Sprintf("devices/%s/messages/events", sanitizeTopicSegment(s.cs.DeviceID))
}

// MessageID returns a fresh unique message identifier, mirroring the per-
// message ids the hub SDKs attach.
func MessageID() string {
	return uuid.NewString()
}

// sanitizeTopicSegment strips MQTT wildcard and separator characters from a
// device id so it cannot break out of its topic.
func sanitizeTopicSegment(s string) string {
	r := strings.NewReplacer("/", "_", "+", "_", "#", "_")
	return r.Replace(s)
}
