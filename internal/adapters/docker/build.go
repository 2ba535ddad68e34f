package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/slipway-ci/slipway/internal/core/domain"
)

// Filename the daemon expects the descriptor under inside the build context.
// The pipeline stages each descriptor into this name for the duration of its
// build and removes it afterwards.
const descriptorName = "Dockerfile"

// BuildImage tars contextDir and builds the descriptor staged inside it,
// tagging the result.
//
// Caching is disabled: every invocation is a full rebuild, so the image for
// a tag always reflects the current workspace contents. On failure the
// daemon's error message is propagated verbatim inside ErrBuild.
func (e *Engine) BuildImage(ctx context.Context, contextDir string, tag domain.ImageTag) error {
	slog.Info("building image", "tag", tag.String(), "context", contextDir)

	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("%w: create build context: %v", ErrBuild, err)
	}
	defer buildCtx.Close()

	resp, err := e.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:        []string{tag.String()},
		Dockerfile:  descriptorName,
		NoCache:     true,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}
	defer resp.Body.Close()

	// The daemon reports progress and errors as a JSON message stream; a
	// build failure surfaces as a JSONError once the stream is drained.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, e.out, 0, false, nil); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) {
			return fmt.Errorf("%w: %s", ErrBuild, jerr.Message)
		}
		return fmt.Errorf("%w: %v", ErrBuild, err)
	}

	return nil
}
