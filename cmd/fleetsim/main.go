// fleetsim CLI - command-line interface for the fleet simulator
package main

import (
	"github.com/getfleetsim/fleetsim/pkg/cli"
)

// Build-time variables set via ldflags
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
