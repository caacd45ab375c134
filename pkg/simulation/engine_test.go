package simulation

import (
	"testing"
	"time"
)

func newTestSim(id string) (*DeviceSimulation, *countingSender) {
	sender := &countingSender{}
	return NewDeviceSimulation(id, testTemplate(), fastConfig(), sender, nil, nil), sender
}

func TestEngineAddGetRemove(t *testing.T) {
	e := NewEngine(nil)

	sim, _ := newTestSim("dev-1")
	e.Add(sim)

	if e.Count() != 1 {
		t.Fatalf("Count = %d, want 1", e.Count())
	}
	if got := e.Get("dev-1"); got != sim {
		t.Error("Get returned a different simulation")
	}
	if e.Get("ghost") != nil {
		t.Error("Get for unknown id returned non-nil")
	}

	e.Remove("dev-1")
	if e.Count() != 0 {
		t.Errorf("Count after Remove = %d, want 0", e.Count())
	}
	// Unknown removes are a no-op.
	e.Remove("dev-1")
}

func TestEngineAddReplacesAndStopsOld(t *testing.T) {
	e := NewEngine(nil)

	old, _ := newTestSim("dev-1")
	e.Add(old)
	e.StartOne("dev-1")

	replacement, _ := newTestSim("dev-1")
	e.Add(replacement)

	if old.IsRunning() {
		t.Error("replaced simulation still running")
	}
	if e.Count() != 1 {
		t.Errorf("Count = %d, want 1", e.Count())
	}
	if e.Get("dev-1") != replacement {
		t.Error("registry does not hold the replacement")
	}
}

func TestEngineStartAllStopAll(t *testing.T) {
	e := NewEngine(nil)

	sims := make([]*DeviceSimulation, 5)
	for i := range sims {
		sim, _ := newTestSim(deviceID(i))
		sims[i] = sim
		e.Add(sim)
	}

	e.StartAll()
	for i, sim := range sims {
		if !sim.IsRunning() {
			t.Errorf("simulation %d not running after StartAll", i)
		}
	}

	e.StopAll()
	for i, sim := range sims {
		if sim.IsRunning() {
			t.Errorf("simulation %d still running after StopAll", i)
		}
	}
}

func TestEngineRemoveStopsSimulation(t *testing.T) {
	e := NewEngine(nil)
	sim, _ := newTestSim("dev-1")
	e.Add(sim)
	e.StartOne("dev-1")

	e.Remove("dev-1")
	if sim.IsRunning() {
		t.Error("removed simulation still running")
	}
}

func TestEngineStartStopUnknownID(t *testing.T) {
	e := NewEngine(nil)
	// No panic, no effect.
	e.StartOne("ghost")
	e.StopOne("ghost")
}

func TestEngineStatistics(t *testing.T) {
	e := NewEngine(nil)

	for i := 0; i < 3; i++ {
		sim, _ := newTestSim(deviceID(i))
		e.Add(sim)
	}
	e.StartOne(deviceID(0))
	defer e.StopAll()

	// Give the running loop a moment to send.
	time.Sleep(20 * time.Millisecond)

	stats := e.Statistics()
	if stats.TotalSimulations != 3 {
		t.Errorf("TotalSimulations = %d, want 3", stats.TotalSimulations)
	}
	if stats.RunningCount != 1 {
		t.Errorf("RunningCount = %d, want 1", stats.RunningCount)
	}
	if len(stats.Devices) != 3 {
		t.Errorf("Devices = %d entries, want 3", len(stats.Devices))
	}
	if _, ok := stats.Devices[deviceID(0)]; !ok {
		t.Error("per-device statistics missing the running device")
	}
}

func deviceID(i int) string {
	return "dev-" + string(rune('a'+i))
}
