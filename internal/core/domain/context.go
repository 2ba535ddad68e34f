package domain

import "errors"

var (
	// ErrNoIntermediateImage indicates that extraction was attempted before
	// the intermediate image tag was set on the context.
	ErrNoIntermediateImage = errors.New("intermediate image tag not set")

	// ErrNoArtifactPath indicates that a stage needing the host-side artifact
	// location was run against a context that never had one assigned.
	ErrNoArtifactPath = errors.New("artifact path not set")
)

// BuildContext carries the state of a single pipeline invocation.
//
// A context is created once per run, threaded stage to stage, and discarded
// when the run finishes. It is never shared across invocations.
type BuildContext struct {
	Branch          string   `json:"branch"`           // Branch or build identifier the run was started for.
	InvocationID    string   `json:"invocation_id"`    // Unique ID for this run, namespaces ephemeral containers.
	WorkspaceDir    string   `json:"workspace_dir"`    // Directory the source is checked out into.
	ArtifactPath    string   `json:"artifact_path"`    // Host path the compiled binary is extracted to.
	IntermediateTag ImageTag `json:"intermediate_tag"` // Tag of the build-time image.
	RuntimeTag      ImageTag `json:"runtime_tag"`      // Tag of the runtime image.
	PublishEnabled  bool     `json:"publish_enabled"`  // Whether the publish stage pushes to a registry.
}

// ReadyForExtraction reports whether the context satisfies the preconditions
// of the artifact extraction stage.
func (bc *BuildContext) ReadyForExtraction() error {
	if bc.IntermediateTag.IsZero() {
		return ErrNoIntermediateImage
	}
	if bc.ArtifactPath == "" {
		return ErrNoArtifactPath
	}
	return nil
}
