package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getfleetsim/fleetsim/pkg/events"
	"github.com/getfleetsim/fleetsim/pkg/hub"
	"github.com/getfleetsim/fleetsim/pkg/logging"
	"github.com/getfleetsim/fleetsim/pkg/metrics"
)

// Device is one virtual device: a sender plus counters and connection
// state. All methods are safe for concurrent use.
type Device struct {
	ID           string
	TemplateName string

	sender    hub.Sender
	bus       *events.Bus
	collector *metrics.Collector
	log       *slog.Logger

	mu              sync.Mutex
	connected       bool
	messageCount    int64
	errorCount      int64
	lastMessageTime time.Time
}

// Status is a point-in-time view of a device.
type Status struct {
	ID              string    `json:"deviceId"`
	Connected       bool      `json:"connected"`
	MessageCount    int64     `json:"messageCount"`
	ErrorCount      int64     `json:"errorCount"`
	LastMessageTime time.Time `json:"lastMessageTime,omitzero"`
}

// New creates a device. bus and collector may be nil to disable event
// emission and metrics reporting.
func New(id, templateName string, sender hub.Sender, bus *events.Bus, collector *metrics.Collector, log *slog.Logger) *Device {
	if log == nil {
		log = logging.Nop()
	}
	return &Device{
		ID:           id,
		TemplateName: templateName,
		sender:       sender,
		bus:          bus,
		collector:    collector,
		log:          log,
	}
}

// Send delivers one payload through the device's sender, updates counters,
// feeds the metrics collector, and emits a message event. A send failure is
// recorded and returned, never escalated.
func (d *Device) Send(ctx context.Context, payload map[string]any) error {
	err := d.sender.Send(ctx, payload)

	d.mu.Lock()
	if err != nil {
		d.errorCount++
	} else {
		d.messageCount++
		d.lastMessageTime = time.Now()
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Warn("message send failed", "deviceId", d.ID, "error", err)
		if d.collector != nil {
			d.collector.RecordMessageError(d.ID, payload)
		}
		d.emit(events.MessageFailed, map[string]any{
			"deviceId": d.ID,
			"error":    err.Error(),
		})
		return err
	}

	if d.collector != nil {
		d.collector.RecordMessageSent(d.ID, payload)
	}
	d.emit(events.MessageSent, map[string]any{
		"deviceId":  d.ID,
		"messageId": hub.MessageID(),
	})
	return nil
}

// Connect opens the underlying sender's connection when it has one and
// marks the device connected. Senders without a connection (loopback) are
// treated as always connectable.
func (d *Device) Connect(ctx context.Context) error {
	if c, ok := d.sender.(hub.Connector); ok {
		if err := c.Connect(ctx); err != nil {
			d.log.Error("device connect failed", "deviceId", d.ID, "error", err)
			return err
		}
	}

	d.mu.Lock()
	already := d.connected
	d.connected = true
	d.mu.Unlock()

	if already {
		return nil
	}

	d.reportStatus(true)
	d.emit(events.DeviceConnected, map[string]any{"deviceId": d.ID})
	d.log.Info("device connected", "deviceId", d.ID)
	return nil
}

// Disconnect closes the underlying connection and marks the device
// disconnected. It is a no-op when already disconnected.
func (d *Device) Disconnect() {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return
	}
	d.connected = false
	d.mu.Unlock()

	if c, ok := d.sender.(hub.Connector); ok {
		c.Disconnect()
	}

	d.reportStatus(false)
	d.emit(events.DeviceDisconnected, map[string]any{"deviceId": d.ID})
	d.log.Info("device disconnected", "deviceId", d.ID)
}

// Connected reports whether the device is marked connected.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Status returns a copy of the device's current state.
func (d *Device) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		ID:              d.ID,
		Connected:       d.connected,
		MessageCount:    d.messageCount,
		ErrorCount:      d.errorCount,
		LastMessageTime: d.lastMessageTime,
	}
}

// reportStatus feeds the collector a full status pair, preserving the
// simulating flag the collector already holds for this device.
func (d *Device) reportStatus(connected bool) {
	if d.collector == nil {
		return
	}
	dm, _ := d.collector.DeviceMetrics(d.ID)
	d.collector.UpdateDeviceStatus(d.ID, metrics.DeviceStatus{
		Connected:  connected,
		Simulating: dm.SimulationStatus == metrics.Running,
	})
}

func (d *Device) emit(t events.Type, data map[string]any) {
	if d.bus == nil {
		return
	}
	d.bus.Emit(t, "device", data)
}
