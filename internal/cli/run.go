package cli

import (
	"context"
	"fmt"

	"github.com/slipway-ci/slipway/internal/adapters/docker"
	"github.com/slipway-ci/slipway/internal/adapters/git"
	"github.com/slipway-ci/slipway/internal/adapters/store"
	"github.com/slipway-ci/slipway/internal/config"
	"github.com/slipway-ci/slipway/internal/core/ports"
	"github.com/slipway-ci/slipway/internal/pipeline"
)

// RunCmd represents 'slipway run': a single pipeline invocation.
type RunCmd struct {
	Branch  string `short:"b" help:"Branch identifier to build. Overrides the configuration and SLIPWAY_BRANCH." placeholder:"NAME"`
	Publish bool   `help:"Enable the registry publish stage for this run."`
}

// Run executes one pipeline invocation and returns its error, if any. The
// process exits zero only if every stage through packaging (and publish,
// when enabled) succeeded.
func (c *RunCmd) Run(ctx context.Context) error {
	cfg, err := config.Load(Root.Config)
	if err != nil {
		return err
	}
	if c.Branch != "" {
		cfg.Branch = c.Branch
	}
	if c.Publish {
		cfg.Publish.Enabled = true
		if cfg.Publish.Registry == "" {
			return fmt.Errorf("%w: publish.registry is required when publish is enabled", config.ErrConfig)
		}
	}

	runner, cleanup, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = runner.Execute(ctx, cfg.Branch, nil)
	return err
}

// Wires the configured adapters into a pipeline runner. The cleanup function
// releases the engine connection.
func newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, func(), error) {
	engine, err := docker.NewEngine()
	if err != nil {
		return nil, nil, err
	}

	var archiver ports.ArchiveService
	if cfg.Archive.Enabled {
		a, err := store.NewArchiver(ctx, cfg.Archive)
		if err != nil {
			engine.Close()
			return nil, nil, err
		}
		archiver = a
	}

	runner := pipeline.NewRunner(cfg, git.NewAdapter(), engine, archiver)
	return runner, func() { engine.Close() }, nil
}
