package telemetry

import (
	"fmt"
	mathrand "math/rand/v2"
	"strings"
)

// Curated data for random string fields. Richer text generation is a
// pluggable nicety; these lists keep the output plausible without an
// external faker dependency.

var deviceNames = []string{
	"gateway-alpha", "gateway-beta", "sensor-hub-01", "sensor-hub-02",
	"edge-node-east", "edge-node-west", "relay-unit-1", "relay-unit-2",
	"controller-a", "controller-b", "monitor-north", "monitor-south",
}

var statusWords = []string{"active", "inactive", "warning", "error"}

var genericWords = []string{
	"nominal", "stable", "elevated", "reduced", "baseline", "peak",
	"standby", "operational", "degraded", "recovering", "calibrating",
	"synchronized",
}

// randomWord picks a random string appropriate to the field name: device
// names for name-like fields, status words for state-like fields, and a
// generic vocabulary otherwise.
func randomWord(fieldName string) string {
	switch strings.ToLower(fieldName) {
	case "name", "device_name", "devicename":
		return deviceNames[mathrand.IntN(len(deviceNames))]
	case "status", "state":
		return statusWords[mathrand.IntN(len(statusWords))]
	default:
		return genericWords[mathrand.IntN(len(genericWords))]
	}
}

// placeholder builds a deterministic string for non-random string patterns,
// incorporating the step counter.
func placeholder(fieldName string, step int) string {
	return fmt.Sprintf("%s_%d", fieldName, step)
}
