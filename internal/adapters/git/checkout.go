package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrCheckout is the stage-level failure for source retrieval. Checkout
// failures are fatal; the pipeline never retries them.
var ErrCheckout = errors.New("checkout failed")

// Adapter implements ports.CheckoutService using go-git.
type Adapter struct{}

// NewAdapter creates a go-git checkout adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Checkout clones repoURL at branch into dir, recursing into nested
// submodules.
//
// The workspace is fully replaced: any previous contents of dir are removed
// before the clone so stale files from an earlier run cannot leak into the
// build context.
func (a *Adapter) Checkout(ctx context.Context, repoURL, branch, dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: reset workspace: %v", ErrCheckout, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create workspace: %v", ErrCheckout, err)
	}

	slog.Info("checking out source", "repo", repoURL, "branch", branch, "workspace", dir)

	_, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:               repoURL,
		ReferenceName:     plumbing.NewBranchReferenceName(branch),
		SingleBranch:      true,
		RecurseSubmodules: gogit.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		return fmt.Errorf("%w: clone %s@%s: %v", ErrCheckout, repoURL, branch, err)
	}

	return nil
}
