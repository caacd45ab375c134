// Package hub adapts the simulator to a cloud message hub.
//
// It is a thin I/O layer: connection-string parsing, a Sender contract for
// delivering telemetry, an MQTT-backed implementation on the Eclipse Paho
// client, and an in-process loopback implementation for offline runs and
// tests. No delivery guarantees are provided or required.
package hub
