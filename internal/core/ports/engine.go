package ports

import (
	"context"

	"github.com/slipway-ci/slipway/internal/core/domain"
)

// ExtractRequest describes a single artifact extraction from a built image.
type ExtractRequest struct {
	Image         string                  // Image to extract from.
	ContainerName string                  // Name for the ephemeral container, unique per invocation.
	SourcePath    string                  // Absolute path of the artifact inside the image.
	DestPath      string                  // Host path the artifact is written to.
	Method        domain.ExtractionMethod // Extraction mechanism for this run.
}

// RegistryAuth carries the credentials for a registry push.
type RegistryAuth struct {
	ServerAddress string
	Username      string
	Password      string
}

// EngineService defines the container engine operations the pipeline drives.
// This interface allows swapping Docker for another engine without touching
// the stage logic.
type EngineService interface {
	// BuildImage builds an image from the descriptor staged in contextDir
	// and tags it. The engine's build log is returned inside the error on
	// failure, verbatim.
	BuildImage(ctx context.Context, contextDir string, tag domain.ImageTag) error

	// ExtractArtifact copies a file out of an image per the request. The
	// ephemeral container is removed regardless of the copy outcome.
	ExtractArtifact(ctx context.Context, req ExtractRequest) error

	// TagImage applies an additional tag to an existing image.
	TagImage(ctx context.Context, source, target domain.ImageTag) error

	// PushImage pushes a tagged image to its registry.
	PushImage(ctx context.Context, tag domain.ImageTag, auth RegistryAuth) error
}
