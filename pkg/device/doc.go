// Package device models the virtual devices of a simulated fleet.
//
// A Device wraps a hub.Sender with per-device counters, connection state,
// and event emission; the Manager is the registry the rest of the simulator
// works against. Devices report every send outcome to the metrics collector
// and the event bus, so the aggregates in pkg/metrics stay consistent
// without the pacing loops knowing about either.
package device
