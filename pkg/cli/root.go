// Package cli implements the fleetsim command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fleetsim",
	Short: "fleetsim simulates a fleet of IoT devices emitting telemetry",
	Long: `fleetsim runs a configurable fleet of virtual IoT devices, each generating
synthetic telemetry from a template (sine waves, linear ramps, gaussian noise,
random values, expressions) on its own schedule.

Devices can deliver messages in-process, to a local embedded MQTT broker, or
to any MQTT endpoint via a hub connection string. Aggregate metrics are served
on a /metrics endpoint and can be exported as JSON or CSV on shutdown.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
