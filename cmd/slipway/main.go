package main

import (
	"log/slog"
	"os"

	"github.com/slipway-ci/slipway/internal/cli"
)

// The entry point for the slipway pipeline.
//
// Executes the selected subcommand and exits non-zero if any pipeline stage
// or command fails.
func main() {
	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
