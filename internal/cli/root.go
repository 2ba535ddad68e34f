// Package cli parses flags and dispatches the slipway subcommands.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// Root holds the global flags and subcommands.
var Root struct {
	Config string `short:"c" default:"slipway.yaml" help:"Path to the pipeline configuration file." placeholder:"PATH"`
	Debug  bool   `short:"d" help:"Enable debug output."`
	Quiet  bool   `short:"q" help:"Suppress informational output."`

	Run     RunCmd     `cmd:"" help:"Execute one pipeline invocation."`
	Serve   ServeCmd   `cmd:"" help:"Serve the pipeline HTTP API."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Execute parses arguments, configures logging, and runs the selected
// subcommand. The returned error makes the process exit non-zero.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&Root,
		kong.Name("slipway"),
		kong.Description("Builds a service binary in a toolchain container and repackages it into a minimal runtime image."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger from the CLI flags.
func configureLogger() {
	level := slog.LevelInfo
	if Root.Debug {
		level = slog.LevelDebug
	} else if Root.Quiet {
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
