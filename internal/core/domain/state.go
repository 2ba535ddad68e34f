package domain

// RunState is the position of a pipeline invocation in its lifecycle.
type RunState string

const (
	StateInit       RunState = "init"
	StateCheckout   RunState = "checkout"
	StateBuilding   RunState = "building"
	StateExtracting RunState = "extracting"
	StatePackaging  RunState = "packaging"
	StatePublishing RunState = "publishing"
	StateDone       RunState = "done"
	StateFailed     RunState = "failed"
)

// Terminal reports whether the state ends the run. A failed run is never
// resumed; it restarts from scratch.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ExtractionMethod selects how the compiled artifact is copied out of the
// intermediate image. Exactly one method is active for a given run.
type ExtractionMethod string

const (
	// ExtractRunCopy creates a throwaway container from the intermediate
	// image and copies the artifact out through the engine's archive API.
	ExtractRunCopy ExtractionMethod = "run-copy"

	// ExtractVolumeMount runs a container with the artifact directory
	// bind-mounted and copies the artifact with an in-container command.
	ExtractVolumeMount ExtractionMethod = "volume-mount"
)

// Valid reports whether m names a supported extraction method.
func (m ExtractionMethod) Valid() bool {
	return m == ExtractRunCopy || m == ExtractVolumeMount
}
