package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/slipway-ci/slipway/internal/adapters/http"
	"github.com/slipway-ci/slipway/internal/config"
)

// ServeCmd represents 'slipway serve': the pipeline HTTP API.
type ServeCmd struct {
	Listen string `short:"l" default:":3000" help:"Address to listen on." placeholder:"ADDR"`
}

// Run serves the HTTP API until the context is cancelled (SIGINT/SIGTERM).
func (c *ServeCmd) Run(ctx context.Context) error {
	cfg, err := config.Load(Root.Config)
	if err != nil {
		return err
	}

	runner, cleanup, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	handler := http.NewRunHandler(runner, http.NewRegistry(), cfg.Branch)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	api := app.Group("/api")
	v1 := api.Group("/v1")
	handler.Register(v1)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("slipway is listening", "addr", c.Listen)
	return app.Listen(c.Listen)
}
