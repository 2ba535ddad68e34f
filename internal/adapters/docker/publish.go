package docker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/slipway-ci/slipway/internal/core/domain"
	"github.com/slipway-ci/slipway/internal/core/ports"
)

// TagImage applies target as an additional tag on the image at source.
func (e *Engine) TagImage(ctx context.Context, source, target domain.ImageTag) error {
	if err := e.cli.ImageTag(ctx, source.String(), target.String()); err != nil {
		return fmt.Errorf("%w: tag %s as %s: %v", ErrPublish, source, target, err)
	}
	return nil
}

// PushImage pushes a tagged image to its registry.
//
// The push is not atomic with respect to other tags of the same image; a
// multi-tag publish that fails partway leaves the earlier tags pushed.
func (e *Engine) PushImage(ctx context.Context, tag domain.ImageTag, auth ports.RegistryAuth) error {
	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		ServerAddress: auth.ServerAddress,
		Username:      auth.Username,
		Password:      auth.Password,
	})
	if err != nil {
		return fmt.Errorf("%w: encode credentials: %v", ErrPublish, err)
	}

	slog.Info("pushing image", "tag", tag.String())

	reader, err := e.cli.ImagePush(ctx, tag.String(), types.ImagePushOptions{
		RegistryAuth: encoded,
	})
	if err != nil {
		return fmt.Errorf("%w: push %s: %v", ErrPublish, tag, err)
	}
	defer reader.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(reader, e.out, 0, false, nil); err != nil {
		var jerr *jsonmessage.JSONError
		if errors.As(err, &jerr) {
			return fmt.Errorf("%w: push %s: %s", ErrPublish, tag, jerr.Message)
		}
		return fmt.Errorf("%w: push %s: %v", ErrPublish, tag, err)
	}

	return nil
}
