package simulation

import (
	"errors"
	"fmt"
	"time"
)

// minSleep is the floor applied to inter-message delays to avoid
// busy-looping when jitter drives the interval toward zero.
const minSleep = 100 * time.Millisecond

// Config holds per-device pacing parameters. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// Interval is the base period between loop iterations.
	Interval Duration `json:"interval" yaml:"interval"`

	// Jitter is a fraction in [0,1] applied symmetrically to Interval.
	Jitter float64 `json:"jitter" yaml:"jitter"`

	// BurstMode sends BurstCount messages per iteration instead of one.
	BurstMode bool `json:"burstMode" yaml:"burstMode"`

	// BurstCount is the number of messages per burst.
	BurstCount int `json:"burstCount" yaml:"burstCount"`

	// BurstInterval is the delay between burst members.
	BurstInterval Duration `json:"burstInterval" yaml:"burstInterval"`

	// MaxMessages stops the simulation after this many successful sends.
	// Zero means unlimited.
	MaxMessages int64 `json:"maxMessages,omitempty" yaml:"maxMessages,omitempty"`
}

// DefaultConfig returns the default pacing parameters.
func DefaultConfig() Config {
	return Config{
		Interval:      Duration(10 * time.Second),
		Jitter:        0.1,
		BurstCount:    5,
		BurstInterval: Duration(time.Second),
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %g", c.Jitter)
	}
	if c.BurstMode && c.BurstCount < 1 {
		return errors.New("burstCount must be at least 1 in burst mode")
	}
	if c.BurstInterval < 0 {
		return fmt.Errorf("burstInterval cannot be negative, got %s", c.BurstInterval)
	}
	if c.MaxMessages < 0 {
		return fmt.Errorf("maxMessages cannot be negative, got %d", c.MaxMessages)
	}
	return nil
}
