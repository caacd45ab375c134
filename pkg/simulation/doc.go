// Package simulation paces telemetry emission for a fleet of virtual
// devices.
//
// Each DeviceSimulation owns one goroutine that repeatedly builds a message
// from its private template and hands it to the device's send capability,
// sleeping interval ± jitter between iterations (or emitting bursts on a
// fixed cadence). Loops are independent: one device's pacing or a slow
// in-flight send never blocks another's.
//
// The Engine is the registry of simulations with bulk and per-device
// start/stop. Stop calls cancel the loop promptly and wait for it to
// terminate, so once Stop or StopAll returns no further events are emitted
// by the stopped simulations.
package simulation
