package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
)

// Handler returns an http.Handler that serves the collector's aggregates in
// Prometheus text exposition format, for dashboards that poll rather than
// subscribe.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		snap := c.Snapshot()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		writeGauge(w, "fleetsim_messages_total", "Total messages sent across all devices.",
			float64(snap.System.TotalMessages))
		writeGauge(w, "fleetsim_errors_total", "Total send errors across all devices.",
			float64(snap.System.TotalErrors))
		writeGauge(w, "fleetsim_messages_per_second", "Message rate averaged over the last minute.",
			snap.System.MessagesPerSecond)
		writeGauge(w, "fleetsim_active_devices", "Devices currently simulating.",
			float64(snap.System.ActiveDevices))
		writeGauge(w, "fleetsim_connected_devices", "Devices currently connected.",
			float64(snap.System.ConnectedDevices))
		writeGauge(w, "fleetsim_devices_total", "Devices known to the collector.",
			float64(snap.System.TotalDevices))
		writeGauge(w, "fleetsim_uptime_seconds", "Seconds since the collector was started or reset.",
			snap.System.UptimeSeconds)

		writeDeviceCounter(w, "fleetsim_device_messages_total", "Messages sent per device.",
			snap.Devices, func(dm DeviceMetrics) float64 { return float64(dm.MessageCount) })
		writeDeviceCounter(w, "fleetsim_device_errors_total", "Send errors per device.",
			snap.Devices, func(dm DeviceMetrics) float64 { return float64(dm.ErrorCount) })
	})
}

func writeGauge(w http.ResponseWriter, name, help string, value float64) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s gauge\n", name)
	_, _ = fmt.Fprintf(w, "%s %s\n", name, formatFloat(value))
}

func writeDeviceCounter(w http.ResponseWriter, name, help string, devices map[string]DeviceMetrics, value func(DeviceMetrics) float64) {
	if len(devices) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s counter\n", name)

	// Sort device ids for deterministic output.
	ids := make([]string, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		_, _ = fmt.Fprintf(w, "%s{device=%q} %s\n", name, escapeLabelValue(id), formatFloat(value(devices[id])))
	}
}

// formatFloat formats a float64 for Prometheus output.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	if math.IsInf(v, -1) {
		return "-Inf"
	}
	s := fmt.Sprintf("%g", v)
	if v == float64(int64(v)) && !strings.Contains(s, ".") && !strings.Contains(s, "e") {
		return fmt.Sprintf("%.0f", v)
	}
	return s
}

// escapeLabelValue escapes label values for Prometheus format.
func escapeLabelValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
