package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/slipway-ci/slipway/internal/config"
	"github.com/slipway-ci/slipway/internal/core/domain"
	"github.com/slipway-ci/slipway/internal/core/ports"
)

// ErrPackaging indicates a runtime image packaging failure, including the
// fail-fast precondition on the extracted artifact.
var ErrPackaging = errors.New("packaging failed")

// checkoutStage retrieves the source into the workspace.
type checkoutStage struct {
	checkout ports.CheckoutService
	repoURL  string
}

func (s *checkoutStage) Name() string           { return "checkout" }
func (s *checkoutStage) State() domain.RunState { return domain.StateCheckout }

func (s *checkoutStage) Execute(ctx context.Context, bc *domain.BuildContext) error {
	return s.checkout.Checkout(ctx, s.repoURL, bc.Branch, bc.WorkspaceDir)
}

// buildStage builds the intermediate toolchain image from the build
// descriptor.
type buildStage struct {
	engine     ports.EngineService
	descriptor string
}

func (s *buildStage) Name() string           { return "build" }
func (s *buildStage) State() domain.RunState { return domain.StateBuilding }

func (s *buildStage) Execute(ctx context.Context, bc *domain.BuildContext) error {
	cleanup, err := stageDescriptor(s.descriptor, bc.WorkspaceDir)
	if err != nil {
		return err
	}
	defer cleanup()

	return s.engine.BuildImage(ctx, bc.WorkspaceDir, bc.IntermediateTag)
}

// extractStage copies the compiled artifact out of the intermediate image.
type extractStage struct {
	engine ports.EngineService
	source string
	method domain.ExtractionMethod
}

func (s *extractStage) Name() string           { return "extract" }
func (s *extractStage) State() domain.RunState { return domain.StateExtracting }

func (s *extractStage) Execute(ctx context.Context, bc *domain.BuildContext) error {
	if err := bc.ReadyForExtraction(); err != nil {
		return err
	}

	return s.engine.ExtractArtifact(ctx, ports.ExtractRequest{
		Image:         bc.IntermediateTag.String(),
		ContainerName: "slipway-extract-" + bc.InvocationID,
		SourcePath:    s.source,
		DestPath:      bc.ArtifactPath,
		Method:        s.method,
	})
}

// archiveStage uploads the extracted artifact to the object store. Present
// only when archiving is enabled.
type archiveStage struct {
	store ports.ArchiveService
}

func (s *archiveStage) Name() string           { return "archive" }
func (s *archiveStage) State() domain.RunState { return domain.StateExtracting }

func (s *archiveStage) Execute(ctx context.Context, bc *domain.BuildContext) error {
	object := bc.RuntimeTag.Tag + "/" + filepath.Base(bc.ArtifactPath)
	return s.store.Store(ctx, bc.ArtifactPath, object)
}

// packageStage builds the minimal runtime image embedding the artifact.
type packageStage struct {
	engine     ports.EngineService
	descriptor string
}

func (s *packageStage) Name() string           { return "package" }
func (s *packageStage) State() domain.RunState { return domain.StatePackaging }

func (s *packageStage) Execute(ctx context.Context, bc *domain.BuildContext) error {
	// Checked before the engine is touched: a missing or empty artifact
	// fails the run without starting a build.
	info, err := os.Stat(bc.ArtifactPath)
	if err != nil {
		return fmt.Errorf("%w: artifact %s missing", ErrPackaging, bc.ArtifactPath)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: artifact %s is empty", ErrPackaging, bc.ArtifactPath)
	}

	cleanup, err := stageDescriptor(s.descriptor, bc.WorkspaceDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPackaging, err)
	}
	defer cleanup()

	if err := s.engine.BuildImage(ctx, bc.WorkspaceDir, bc.RuntimeTag); err != nil {
		return fmt.Errorf("%w: %w", ErrPackaging, err)
	}
	return nil
}

// publishStage pushes the runtime image to a registry when publishing is
// enabled; otherwise it succeeds without doing anything.
type publishStage struct {
	engine  ports.EngineService
	publish config.Publish
}

func (s *publishStage) Name() string           { return "publish" }
func (s *publishStage) State() domain.RunState { return domain.StatePublishing }

func (s *publishStage) Execute(ctx context.Context, bc *domain.BuildContext) error {
	if !bc.PublishEnabled {
		slog.Debug("publish disabled, skipping")
		return nil
	}

	auth := ports.RegistryAuth{
		ServerAddress: s.publish.Registry,
		Username:      s.publish.Username,
		Password:      s.publish.Password(),
	}

	// The image is pushed under two aliases: the branch tag and "latest".
	// The pair is best-effort, not atomic; a failure between the two pushes
	// leaves only the first alias in the registry.
	remote := domain.ImageTag{
		Repository: s.publish.Registry + "/" + bc.RuntimeTag.Repository,
		Tag:        bc.RuntimeTag.Tag,
	}
	if err := s.engine.TagImage(ctx, bc.RuntimeTag, remote); err != nil {
		return err
	}
	if err := s.engine.PushImage(ctx, remote, auth); err != nil {
		return err
	}

	latest := remote.WithTag("latest")
	if err := s.engine.TagImage(ctx, bc.RuntimeTag, latest); err != nil {
		return err
	}
	return s.engine.PushImage(ctx, latest, auth)
}
