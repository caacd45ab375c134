// Package metrics aggregates message and status events from the simulation
// into per-device and system-wide counters.
//
// The Collector is event-sourced: device simulations and senders report
// message-sent, message-error, and status-change events, and the collector
// maintains consistent aggregates plus a bounded rolling history (24 hours at
// one-minute granularity). All mutations and snapshot reads go through a
// single mutex, so exported snapshots are consistent point-in-time copies.
//
// System counters for connected and active devices are incremental deltas
// adjusted only on actual state transitions; repeated identical status
// updates never double-count.
package metrics
