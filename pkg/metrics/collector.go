package metrics

import (
	"sync"
	"time"

	"github.com/getfleetsim/fleetsim/pkg/events"
)

// HistoryCapacity bounds each history series: 24 hours at one-minute
// granularity.
const HistoryCapacity = 24 * 60

// ConnectionStatus is a device's hub connection state.
type ConnectionStatus string

// Connection states.
const (
	Connected    ConnectionStatus = "connected"
	Disconnected ConnectionStatus = "disconnected"
)

// SimulationStatus is a device's simulation state.
type SimulationStatus string

// Simulation states.
const (
	Running SimulationStatus = "running"
	Stopped SimulationStatus = "stopped"
)

// DeviceMetrics holds per-device counters. Entries are created lazily on the
// first event for a device id and cleared only by Reset.
type DeviceMetrics struct {
	MessageCount     int64            `json:"messageCount"`
	ErrorCount       int64            `json:"errorCount"`
	LastMessageTime  time.Time        `json:"lastMessageTime,omitzero"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	SimulationStatus SimulationStatus `json:"simulationStatus"`
}

// SystemMetrics holds system-wide aggregates.
type SystemMetrics struct {
	TotalMessages     int64   `json:"totalMessages"`
	TotalErrors       int64   `json:"totalErrors"`
	MessagesPerSecond float64 `json:"messagesPerSecond"`
	ActiveDevices     int     `json:"activeDevices"`
	ConnectedDevices  int     `json:"connectedDevices"`
	TotalDevices      int     `json:"totalDevices"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`
}

// DeviceStatus is a point-in-time status report for a device.
type DeviceStatus struct {
	Connected  bool
	Simulating bool
}

// HistoricalData bundles the message and error history series.
type HistoricalData struct {
	Messages []Entry `json:"messages"`
	Errors   []Entry `json:"errors"`
}

// Snapshot is a deep, consistent point-in-time copy of all metrics. Its
// shape is the stable contract consumed by exporters.
type Snapshot struct {
	System     SystemMetrics            `json:"systemMetrics"`
	Devices    map[string]DeviceMetrics `json:"deviceMetrics"`
	History    HistoricalData           `json:"historicalData"`
	ExportedAt time.Time                `json:"exportTimestamp"`
}

// Collector aggregates message and status events. It is the single
// shared-state hotspot of the simulator; every mutation and every read of
// aggregate state happens under one mutex.
type Collector struct {
	mu         sync.Mutex
	devices    map[string]*DeviceMetrics
	system     SystemMetrics
	msgHistory *history
	errHistory *history
	startTime  time.Time
	lastRate   time.Time

	bus *events.Bus

	// now is swappable in tests.
	now func() time.Time
}

// NewCollector creates a collector. A nil bus disables event emission.
func NewCollector(bus *events.Bus) *Collector {
	c := &Collector{
		devices:    make(map[string]*DeviceMetrics),
		msgHistory: newHistory(HistoryCapacity),
		errHistory: newHistory(HistoryCapacity),
		bus:        bus,
		now:        time.Now,
	}
	c.startTime = c.now()
	return c
}

// device returns the entry for id, creating it on first use. Callers hold
// c.mu.
func (c *Collector) device(id string) *DeviceMetrics {
	dm, ok := c.devices[id]
	if !ok {
		dm = &DeviceMetrics{
			ConnectionStatus: Disconnected,
			SimulationStatus: Stopped,
		}
		c.devices[id] = dm
	}
	return dm
}

// RecordMessageSent records a successful send for a device.
func (c *Collector) RecordMessageSent(deviceID string, payload map[string]any) {
	c.mu.Lock()
	now := c.now()

	dm := c.device(deviceID)
	dm.MessageCount++
	dm.LastMessageTime = now

	c.system.TotalMessages++
	c.msgHistory.append(Entry{Timestamp: now, Count: 1})
	c.updateRates(now)
	c.mu.Unlock()

	c.emitUpdated(deviceID, "message_sent")
}

// RecordMessageError records a failed send for a device.
func (c *Collector) RecordMessageError(deviceID string, payload map[string]any) {
	c.mu.Lock()
	now := c.now()

	dm := c.device(deviceID)
	dm.ErrorCount++

	c.system.TotalErrors++
	c.errHistory.append(Entry{Timestamp: now, Count: 1})
	c.mu.Unlock()

	c.emitUpdated(deviceID, "message_error")
}

// UpdateDeviceStatus transitions a device's connection and simulation
// states. The system-wide connected/active counters move by exactly one per
// actual state change; repeated identical updates are no-ops.
func (c *Collector) UpdateDeviceStatus(deviceID string, status DeviceStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dm := c.device(deviceID)

	oldConnected := dm.ConnectionStatus == Connected
	oldSimulating := dm.SimulationStatus == Running

	if status.Connected {
		dm.ConnectionStatus = Connected
	} else {
		dm.ConnectionStatus = Disconnected
	}
	if status.Simulating {
		dm.SimulationStatus = Running
	} else {
		dm.SimulationStatus = Stopped
	}

	if status.Connected != oldConnected {
		if status.Connected {
			c.system.ConnectedDevices++
		} else {
			c.system.ConnectedDevices--
		}
	}
	if status.Simulating != oldSimulating {
		if status.Simulating {
			c.system.ActiveDevices++
		} else {
			c.system.ActiveDevices--
		}
	}
}

// updateRates recomputes messagesPerSecond at most once per wall-clock
// second, as the sum of the last 60 seconds of history divided by 60.
// Callers hold c.mu.
func (c *Collector) updateRates(now time.Time) {
	if now.Sub(c.lastRate) < time.Second {
		return
	}

	total := 0
	for _, e := range c.msgHistory.since(now.Add(-time.Minute)) {
		total += e.Count
	}
	c.system.MessagesPerSecond = float64(total) / 60.0
	c.lastRate = now
}

// DeviceMetrics returns a copy of one device's counters. The second return
// reports whether the device has been seen.
func (c *Collector) DeviceMetrics(deviceID string) (DeviceMetrics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dm, ok := c.devices[deviceID]
	if !ok {
		return DeviceMetrics{ConnectionStatus: Disconnected, SimulationStatus: Stopped}, false
	}
	return *dm, true
}

// SystemMetrics returns a copy of the system aggregates with derived fields
// filled in.
func (c *Collector) SystemMetrics() SystemMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemLocked()
}

func (c *Collector) systemLocked() SystemMetrics {
	sm := c.system
	sm.TotalDevices = len(c.devices)
	sm.UptimeSeconds = c.now().Sub(c.startTime).Seconds()
	return sm
}

// HistoricalData returns all history entries with a timestamp within the
// last `hours` hours, for both series.
func (c *Collector) HistoricalData(hours int) HistoricalData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.historicalLocked(hours)
}

func (c *Collector) historicalLocked(hours int) HistoricalData {
	cutoff := c.now().Add(-time.Duration(hours) * time.Hour)
	return HistoricalData{
		Messages: c.msgHistory.since(cutoff),
		Errors:   c.errHistory.since(cutoff),
	}
}

// Snapshot builds a deep point-in-time copy of all metrics under the same
// lock as mutations, so it never races with concurrent records or status
// updates.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	devices := make(map[string]DeviceMetrics, len(c.devices))
	for id, dm := range c.devices {
		devices[id] = *dm
	}

	return Snapshot{
		System:     c.systemLocked(),
		Devices:    devices,
		History:    c.historicalLocked(24),
		ExportedAt: c.now(),
	}
}

// Reset clears every device entry, zeroes the system counters, clears both
// history series, and restarts the uptime baseline.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.devices = make(map[string]*DeviceMetrics)
	c.system = SystemMetrics{}
	c.msgHistory.clear()
	c.errHistory.clear()
	c.startTime = c.now()
	c.lastRate = time.Time{}
}

func (c *Collector) emitUpdated(deviceID, metricType string) {
	if c.bus == nil {
		return
	}
	c.bus.Emit(events.MetricsUpdated, "metrics", map[string]any{
		"deviceId":   deviceID,
		"metricType": metricType,
	})
}
