package ports

import "context"

// CheckoutService defines the source retrieval operation for a pipeline run.
type CheckoutService interface {
	// Checkout populates dir with the source of repoURL at branch, including
	// all nested submodules. Existing contents of dir are fully replaced.
	Checkout(ctx context.Context, repoURL, branch, dir string) error
}
