// Package events implements an in-process publish/subscribe bus.
//
// The bus carries typed events between the simulation core and interested
// listeners (dashboards, exporters, the metrics feed). Delivery is
// best-effort and synchronous: Emit invokes every subscribed handler in
// registration order on the calling goroutine. A panicking handler is
// recovered and logged; it never prevents other handlers from running or
// corrupts the bus.
//
// Buses are explicit instances passed by handle. There is no package-level
// singleton.
package events
