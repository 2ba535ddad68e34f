package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/slipway-ci/slipway/internal/core/domain"
	"github.com/slipway-ci/slipway/internal/core/ports"
)

// In-container mount point used by the volume-mount extraction method.
const extractMount = "/slipway-out"

// ExtractArtifact copies the compiled artifact out of the intermediate image
// using the method selected for this run.
//
// Both methods share the same guarantees: a missing in-container source path
// fails with ErrArtifactMissing rather than producing an empty file, and the
// ephemeral container is removed whether or not the copy succeeded.
func (e *Engine) ExtractArtifact(ctx context.Context, req ports.ExtractRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.DestPath), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	slog.Info("extracting artifact",
		"image", req.Image,
		"source", req.SourcePath,
		"dest", req.DestPath,
		"method", req.Method,
	)

	switch req.Method {
	case domain.ExtractRunCopy:
		return e.extractRunCopy(ctx, req)
	case domain.ExtractVolumeMount:
		return e.extractVolumeMount(ctx, req)
	default:
		return fmt.Errorf("%w: unknown extraction method %q", ErrExtraction, req.Method)
	}
}

// Extracts via a created-but-never-started container and the engine's
// archive API.
func (e *Engine) extractRunCopy(ctx context.Context, req ports.ExtractRequest) error {
	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image:      req.Image,
		Entrypoint: []string{"/bin/true"},
	}, nil, nil, nil, req.ContainerName)
	if err != nil {
		return fmt.Errorf("%w: create container: %v", ErrExtraction, err)
	}
	defer e.removeContainer(ctx, resp.ID)

	// Stat before copying so a missing artifact is a hard failure, never an
	// empty file on the host.
	if _, err := e.cli.ContainerStatPath(ctx, resp.ID, req.SourcePath); err != nil {
		if client.IsErrNotFound(err) {
			return fmt.Errorf("%w: %s in %s", ErrArtifactMissing, req.SourcePath, req.Image)
		}
		return fmt.Errorf("%w: stat %s: %v", ErrExtraction, req.SourcePath, err)
	}

	reader, _, err := e.cli.CopyFromContainer(ctx, resp.ID, req.SourcePath)
	if err != nil {
		return fmt.Errorf("%w: copy %s: %v", ErrExtraction, req.SourcePath, err)
	}
	defer reader.Close()

	if err := writeFirstFile(reader, req.DestPath); err != nil {
		return err
	}

	return verifyArtifact(req.DestPath)
}

// Extracts by running an in-container cp with the artifact directory
// bind-mounted from the host.
func (e *Engine) extractVolumeMount(ctx context.Context, req ports.ExtractRequest) error {
	hostDir := filepath.Dir(req.DestPath)

	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image: req.Image,
		Cmd:   []string{"cp", req.SourcePath, extractMount + "/" + filepath.Base(req.DestPath)},
	}, &container.HostConfig{
		Binds: []string{hostDir + ":" + extractMount},
	}, nil, nil, req.ContainerName)
	if err != nil {
		return fmt.Errorf("%w: create container: %v", ErrExtraction, err)
	}
	defer e.removeContainer(ctx, resp.ID)

	if err := e.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("%w: start container: %v", ErrExtraction, err)
	}

	statusCh, errCh := e.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return fmt.Errorf("%w: wait: %v", ErrExtraction, err)
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("%w: %s in %s: cp exited %d: %s",
				ErrArtifactMissing, req.SourcePath, req.Image,
				status.StatusCode, e.containerStderr(ctx, resp.ID))
		}
	}

	return verifyArtifact(req.DestPath)
}

// Removes an ephemeral container. Runs even when the surrounding operation
// was cancelled, so failed extractions don't leak containers.
func (e *Engine) removeContainer(ctx context.Context, id string) {
	err := e.cli.ContainerRemove(context.WithoutCancel(ctx), id, types.ContainerRemoveOptions{
		Force: true,
	})
	if err != nil {
		slog.Warn("failed to remove extraction container", "id", id, "error", err)
	}
}

// Returns the container's stderr output, best effort.
func (e *Engine) containerStderr(ctx context.Context, id string) string {
	logs, err := e.cli.ContainerLogs(context.WithoutCancel(ctx), id, types.ContainerLogsOptions{
		ShowStderr: true,
	})
	if err != nil {
		return "(logs unavailable)"
	}
	defer logs.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(io.Discard, &buf, logs); err != nil {
		return "(logs unavailable)"
	}
	return strings.TrimSpace(buf.String())
}

// Writes the first regular file of a tar stream to destPath, preserving the
// file mode. CopyFromContainer returns a tar archive whose single entry is
// the requested file.
func writeFirstFile(r io.Reader, destPath string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("%w: archive stream contained no file", ErrArtifactMissing)
		}
		if err != nil {
			return fmt.Errorf("%w: read archive: %v", ErrExtraction, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return fmt.Errorf("%w: write %s: %v", ErrExtraction, destPath, err)
		}
		return f.Close()
	}
}

// Fails when the extracted artifact is missing or empty on the host.
func verifyArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s not written", ErrArtifactMissing, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrExtraction, path)
	}
	return nil
}
