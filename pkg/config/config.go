// Package config defines the fleetsim configuration file format and its
// loader. Files are YAML or JSON, detected by extension.
package config

import (
	"errors"
	"fmt"

	"github.com/getfleetsim/fleetsim/pkg/simulation"
	"github.com/getfleetsim/fleetsim/pkg/store"
)

// HubMode selects how devices deliver telemetry.
type HubMode string

// Hub modes.
const (
	// ModeLoopback keeps messages in-process. The default.
	ModeLoopback HubMode = "loopback"

	// ModeMQTT publishes to the broker named by each device's connection
	// string.
	ModeMQTT HubMode = "mqtt"

	// ModeEmbedded starts the embedded broker and points every device at it.
	ModeEmbedded HubMode = "embedded"
)

// Config is the root of a fleetsim configuration file.
type Config struct {
	Logging   LoggingConfig     `json:"logging" yaml:"logging"`
	Hub       HubConfig         `json:"hub" yaml:"hub"`
	Broker    BrokerConfig      `json:"broker" yaml:"broker"`
	Metrics   MetricsConfig     `json:"metrics" yaml:"metrics"`
	Export    ExportConfig      `json:"export" yaml:"export"`
	Defaults  simulation.Config `json:"defaults" yaml:"defaults"`
	Devices   []DeviceConfig    `json:"devices" yaml:"devices"`
	Templates []store.Document  `json:"templates,omitempty" yaml:"templates,omitempty"`

	// TemplateDir is an optional directory of template files loaded into
	// the store at startup.
	TemplateDir string `json:"templateDir,omitempty" yaml:"templateDir,omitempty"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// HubConfig selects the telemetry destination.
type HubConfig struct {
	Mode HubMode `json:"mode" yaml:"mode"`

	// ConnectionString is the shared default for devices that do not carry
	// their own. Used in mqtt mode.
	ConnectionString string `json:"connectionString,omitempty" yaml:"connectionString,omitempty"`

	// FailureRate and Delay tune the loopback sender.
	FailureRate float64             `json:"failureRate,omitempty" yaml:"failureRate,omitempty"`
	Delay       simulation.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// BrokerConfig controls the embedded MQTT broker.
type BrokerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// MetricsConfig controls the metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// ExportConfig controls snapshot export.
type ExportConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// DeviceConfig declares one device or a numbered group of them.
type DeviceConfig struct {
	// ID names a single device. Mutually exclusive with Prefix/Count.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Prefix and Count expand into Count devices named prefix-001 onward.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Count  int    `json:"count,omitempty" yaml:"count,omitempty"`

	// Template names the telemetry template the device generates from.
	Template string `json:"template" yaml:"template"`

	// ConnectionString overrides the hub-level default in mqtt mode.
	ConnectionString string `json:"connectionString,omitempty" yaml:"connectionString,omitempty"`

	// Simulation overrides the top-level defaults when present.
	Simulation *simulation.Config `json:"simulation,omitempty" yaml:"simulation,omitempty"`
}

// Default returns a runnable configuration: one loopback device on the
// built-in temperature template.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Hub:      HubConfig{Mode: ModeLoopback},
		Broker:   BrokerConfig{Port: 1883},
		Metrics:  MetricsConfig{Enabled: true, Addr: ":9090"},
		Defaults: simulation.DefaultConfig(),
		Devices: []DeviceConfig{
			{ID: "sim-device-001", Template: "temperature_sensor"},
		},
	}
}

// DeviceIDs expands a device entry into its concrete device ids.
func (d *DeviceConfig) DeviceIDs() []string {
	if d.ID != "" {
		return []string{d.ID}
	}
	ids := make([]string, 0, d.Count)
	for i := 1; i <= d.Count; i++ {
		ids = append(ids, fmt.Sprintf("%s-%03d", d.Prefix, i))
	}
	return ids
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Hub.Mode {
	case ModeLoopback, ModeMQTT, ModeEmbedded, "":
	default:
		return fmt.Errorf("unknown hub mode: %q", c.Hub.Mode)
	}

	if c.Hub.FailureRate < 0 || c.Hub.FailureRate > 1 {
		return fmt.Errorf("hub failureRate must be between 0.0 and 1.0, got %g", c.Hub.FailureRate)
	}
	if c.Broker.Port < 0 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker port out of range: %d", c.Broker.Port)
	}

	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	if len(c.Devices) == 0 {
		return errors.New("at least one device must be configured")
	}

	seen := make(map[string]struct{})
	for i := range c.Devices {
		d := &c.Devices[i]
		if err := d.validate(); err != nil {
			return fmt.Errorf("device %d: %w", i, err)
		}
		for _, id := range d.DeviceIDs() {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("duplicate device id: %s", id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

func (d *DeviceConfig) validate() error {
	if d.ID == "" && d.Prefix == "" {
		return errors.New("either id or prefix must be set")
	}
	if d.ID != "" && d.Prefix != "" {
		return errors.New("id and prefix are mutually exclusive")
	}
	if d.Prefix != "" && d.Count < 1 {
		return fmt.Errorf("count must be at least 1 with a prefix, got %d", d.Count)
	}
	if d.Template == "" {
		return errors.New("template is required")
	}
	if d.Simulation != nil {
		if err := d.Simulation.Validate(); err != nil {
			return fmt.Errorf("simulation: %w", err)
		}
	}
	return nil
}
