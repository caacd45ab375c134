package device

import (
	"context"
	"log/slog"
	"sync"

	"github.com/getfleetsim/fleetsim/pkg/events"
	"github.com/getfleetsim/fleetsim/pkg/logging"
)

// Manager is the registry of virtual devices, keyed by device id.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*Device
	bus     *events.Bus
	log     *slog.Logger
}

// Summary aggregates device state across the fleet.
type Summary struct {
	TotalDevices     int   `json:"totalDevices"`
	ConnectedDevices int   `json:"connectedDevices"`
	TotalMessages    int64 `json:"totalMessages"`
	TotalErrors      int64 `json:"totalErrors"`
}

// NewManager creates an empty device registry.
func NewManager(bus *events.Bus, log *slog.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		devices: make(map[string]*Device),
		bus:     bus,
		log:     log,
	}
}

// Add registers a device, replacing any existing device with the same id.
func (m *Manager) Add(d *Device) {
	m.mu.Lock()
	m.devices[d.ID] = d
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Emit(events.DeviceAdded, "device-manager", map[string]any{"deviceId": d.ID})
	}
	m.log.Info("device added", "deviceId", d.ID)
}

// Remove disconnects and deregisters a device. Unknown ids are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	d, ok := m.devices[id]
	if ok {
		delete(m.devices, id)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	d.Disconnect()
	if m.bus != nil {
		m.bus.Emit(events.DeviceRemoved, "device-manager", map[string]any{"deviceId": id})
	}
	m.log.Info("device removed", "deviceId", id)
}

// Get returns the device with the given id, or nil.
func (m *Manager) Get(id string) *Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices[id]
}

// All returns a copy of the registry.
func (m *Manager) All() map[string]*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Device, len(m.devices))
	for id, d := range m.devices {
		out[id] = d
	}
	return out
}

// ConnectAll connects every registered device and returns the per-device
// outcome. A failed connect does not abort the others.
func (m *Manager) ConnectAll(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for id, d := range m.All() {
		results[id] = d.Connect(ctx)
	}
	return results
}

// DisconnectAll disconnects every registered device.
func (m *Manager) DisconnectAll() {
	for _, d := range m.All() {
		d.Disconnect()
	}
}

// Summary returns fleet-wide totals.
func (m *Manager) Summary() Summary {
	var s Summary
	for _, d := range m.All() {
		st := d.Status()
		s.TotalDevices++
		if st.Connected {
			s.ConnectedDevices++
		}
		s.TotalMessages += st.MessageCount
		s.TotalErrors += st.ErrorCount
	}
	return s
}
