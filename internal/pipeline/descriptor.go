package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
)

// Filename the engine expects a descriptor under inside the build context.
const stagedDescriptorName = "Dockerfile"

// Copies a descriptor template into the workspace under the engine's
// expected filename and returns a cleanup function that removes it again.
//
// The build-time and runtime descriptors share the same staged filename, so
// each one is removed after its build to keep the two roles from colliding.
// The template itself is a read-only input and is never modified.
func stageDescriptor(descriptorPath, workspace string) (func(), error) {
	raw, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", descriptorPath, err)
	}

	staged := filepath.Join(workspace, stagedDescriptorName)
	if err := os.WriteFile(staged, raw, 0o644); err != nil {
		return nil, fmt.Errorf("stage descriptor: %w", err)
	}

	return func() { os.Remove(staged) }, nil
}
