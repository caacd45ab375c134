// Package export writes metrics snapshots to disk as JSON or CSV and
// supports JSONPath queries against snapshot data.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/getfleetsim/fleetsim/pkg/logging"
	"github.com/getfleetsim/fleetsim/pkg/metrics"
)

// ErrUnsupportedFormat is returned for export formats other than json/csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Exporter writes snapshots into a target directory with timestamped
// filenames.
type Exporter struct {
	dir string
	log *slog.Logger

	// now is swappable in tests for deterministic filenames.
	now func() time.Time
}

// New creates an exporter rooted at dir, creating it when missing.
func New(dir string, log *slog.Logger) (*Exporter, error) {
	if log == nil {
		log = logging.Nop()
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	return &Exporter{dir: dir, log: log, now: time.Now}, nil
}

// Write exports a snapshot in the named format ("json" or "csv") and
// returns the path of the written file.
func (e *Exporter) Write(snap metrics.Snapshot, format string) (string, error) {
	switch format {
	case "json":
		return e.WriteJSON(snap)
	case "csv":
		return e.WriteCSV(snap)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteJSON exports a snapshot as indented JSON.
func (e *Exporter) WriteJSON(snap metrics.Snapshot) (string, error) {
	path := e.filename("json")

	data, err := oj.Marshal(snap, 2)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	e.log.Info("metrics exported", "format", "json", "path", path)
	return path, nil
}

// WriteCSV exports a snapshot as CSV: a system totals section followed by
// one row per device.
func (e *Exporter) WriteCSV(snap metrics.Snapshot) (string, error) {
	path := e.filename("csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	system := [][]string{
		{"metric", "value"},
		{"total_messages", strconv.FormatInt(snap.System.TotalMessages, 10)},
		{"total_errors", strconv.FormatInt(snap.System.TotalErrors, 10)},
		{"messages_per_second", strconv.FormatFloat(snap.System.MessagesPerSecond, 'f', 2, 64)},
		{"active_devices", strconv.Itoa(snap.System.ActiveDevices)},
		{"connected_devices", strconv.Itoa(snap.System.ConnectedDevices)},
		{"total_devices", strconv.Itoa(snap.System.TotalDevices)},
		{"uptime_seconds", strconv.FormatFloat(snap.System.UptimeSeconds, 'f', 1, 64)},
	}
	if err := w.WriteAll(system); err != nil {
		return "", fmt.Errorf("failed to write system section: %w", err)
	}

	if err := w.Write([]string{}); err != nil {
		return "", fmt.Errorf("failed to write separator: %w", err)
	}
	if err := w.Write([]string{"device_id", "messages", "errors", "connection_status", "simulation_status", "last_message_time"}); err != nil {
		return "", fmt.Errorf("failed to write device header: %w", err)
	}

	ids := make([]string, 0, len(snap.Devices))
	for id := range snap.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		dm := snap.Devices[id]
		last := ""
		if !dm.LastMessageTime.IsZero() {
			last = dm.LastMessageTime.UTC().Format(time.RFC3339)
		}
		row := []string{
			id,
			strconv.FormatInt(dm.MessageCount, 10),
			strconv.FormatInt(dm.ErrorCount, 10),
			string(dm.ConnectionStatus),
			string(dm.SimulationStatus),
			last,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write device row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export file: %w", err)
	}

	e.log.Info("metrics exported", "format", "csv", "path", path)
	return path, nil
}

// Query evaluates a JSONPath expression against a snapshot and returns the
// matching values.
func Query(snap metrics.Snapshot, path string) ([]any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid query path: %w", err)
	}

	// Round-trip through generic JSON so the path sees maps and slices.
	data, err := oj.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	generic, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	return expr.Get(generic), nil
}

func (e *Exporter) filename(ext string) string {
	name := fmt.Sprintf("metrics_export_%s.%s", e.now().Format("20060102_150405"), ext)
	return filepath.Join(e.dir, name)
}
