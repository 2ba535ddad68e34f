package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/slipway-ci/slipway/internal/config"
	"github.com/slipway-ci/slipway/internal/core/domain"
	"github.com/slipway-ci/slipway/internal/core/ports"
)

// Runner assembles and executes pipelines from the loaded configuration.
//
// Concurrent invocations share one engine daemon and one host filesystem,
// so runs are namespaced by their derived tag: each branch gets its own
// workspace and artifact path, and runs for the same branch are serialized
// with a per-tag lock. Ephemeral container names carry the invocation ID so
// two runs never contend on a name.
type Runner struct {
	cfg      *config.Config
	checkout ports.CheckoutService
	engine   ports.EngineService
	archive  ports.ArchiveService // nil when archiving is disabled

	mu       sync.Mutex
	tagLocks map[string]*sync.Mutex
}

// NewRunner creates a Runner. archive may be nil when archiving is disabled.
func NewRunner(cfg *config.Config, checkout ports.CheckoutService, engine ports.EngineService, archive ports.ArchiveService) *Runner {
	return &Runner{
		cfg:      cfg,
		checkout: checkout,
		engine:   engine,
		archive:  archive,
		tagLocks: make(map[string]*sync.Mutex),
	}
}

// NewContext builds the BuildContext for one invocation on branch.
func (r *Runner) NewContext(branch string) *domain.BuildContext {
	runtimeTag := domain.DeriveTag(r.cfg.Image, branch)
	intermediateTag := domain.DeriveTag(r.cfg.Image+"-build", branch)

	workspace := filepath.Join(r.cfg.WorkRoot, runtimeTag.Tag)

	return &domain.BuildContext{
		Branch:          branch,
		InvocationID:    uuid.NewString(),
		WorkspaceDir:    workspace,
		ArtifactPath:    filepath.Join(workspace, r.cfg.Artifact.Name),
		IntermediateTag: intermediateTag,
		RuntimeTag:      runtimeTag,
		PublishEnabled:  r.cfg.Publish.Enabled,
	}
}

// Execute runs the full pipeline for branch, reporting state transitions to
// observe (which may be nil). The returned context reflects the run's tags
// and paths whether or not it succeeded.
func (r *Runner) Execute(ctx context.Context, branch string, observe Observer) (*domain.BuildContext, error) {
	bc := r.NewContext(branch)

	lock := r.tagLock(bc.RuntimeTag.Tag)
	lock.Lock()
	defer lock.Unlock()

	slog.Info("pipeline starting",
		"branch", bc.Branch,
		"invocation", bc.InvocationID,
		"intermediate", bc.IntermediateTag.String(),
		"runtime", bc.RuntimeTag.String(),
	)

	p := New(r.stages()...)
	p.OnTransition(observe)

	if err := p.Run(ctx, bc); err != nil {
		slog.Error("pipeline failed", "branch", bc.Branch, "error", err)
		return bc, err
	}

	slog.Info("pipeline done", "branch", bc.Branch, "runtime", bc.RuntimeTag.String())
	return bc, nil
}

// Returns the stage list for a run, in execution order.
func (r *Runner) stages() []Stage {
	stages := []Stage{
		&checkoutStage{checkout: r.checkout, repoURL: r.cfg.Repository},
		&buildStage{engine: r.engine, descriptor: r.cfg.Descriptors.Build},
		&extractStage{engine: r.engine, source: r.cfg.Artifact.Source, method: r.cfg.Extraction},
	}
	if r.archive != nil {
		stages = append(stages, &archiveStage{store: r.archive})
	}
	stages = append(stages,
		&packageStage{engine: r.engine, descriptor: r.cfg.Descriptors.Runtime},
		&publishStage{engine: r.engine, publish: r.cfg.Publish},
	)
	return stages
}

// Returns the mutex serializing runs of the given tag.
func (r *Runner) tagLock(tag string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.tagLocks[tag]
	if !ok {
		lock = &sync.Mutex{}
		r.tagLocks[tag] = lock
	}
	return lock
}
