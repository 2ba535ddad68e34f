// Package docker implements the pipeline's container engine port against the
// Docker daemon.
//
// The adapter drives four daemon operations: image builds from a staged
// descriptor, artifact extraction out of a built image, image re-tagging,
// and registry pushes. All operations are full, uncached invocations; the
// pipeline's idempotency comes from deterministic tags overwriting the
// previous run's images, not from layer caching.
package docker

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/docker/docker/client"
)

var (
	// ErrBuild indicates a non-zero result from an image build. The daemon's
	// message is carried verbatim.
	ErrBuild = errors.New("image build failed")

	// ErrExtraction indicates the artifact could not be copied out of the
	// intermediate image.
	ErrExtraction = errors.New("artifact extraction failed")

	// ErrArtifactMissing indicates the expected artifact path does not exist
	// inside the intermediate image.
	ErrArtifactMissing = errors.New("artifact not found in image")

	// ErrPublish indicates a registry authentication or push failure.
	ErrPublish = errors.New("publish failed")
)

// Engine implements ports.EngineService using the Docker SDK.
type Engine struct {
	cli *client.Client
	out io.Writer // Destination for engine progress output.
}

// NewEngine creates a Docker engine adapter from the environment
// (DOCKER_HOST and friends), negotiating the API version with the daemon.
func NewEngine() (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Engine{cli: cli, out: os.Stdout}, nil
}

// SetOutput redirects engine progress output, e.g. into a per-run log.
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// Close releases the client connection.
func (e *Engine) Close() error {
	return e.cli.Close()
}
