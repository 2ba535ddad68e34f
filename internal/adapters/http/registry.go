package http

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slipway-ci/slipway/internal/core/domain"
)

// Run is the externally visible record of one pipeline invocation.
type Run struct {
	ID              string          `json:"id"`
	Branch          string          `json:"branch"`
	State           domain.RunState `json:"state"`
	IntermediateTag string          `json:"intermediate_tag,omitempty"`
	RuntimeTag      string          `json:"runtime_tag,omitempty"`
	Error           string          `json:"error,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
}

// Registry tracks pipeline runs triggered through the HTTP API. Records are
// held in memory for the lifetime of the server process.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

// Create records a new run in the Init state and returns its ID.
func (r *Registry) Create(branch string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.runs[id] = &Run{
		ID:        id,
		Branch:    branch,
		State:     domain.StateInit,
		StartedAt: time.Now().UTC(),
	}
	return id
}

// SetState records an intermediate state transition for a run. Terminal
// states are recorded by Finish, together with the run's outcome.
func (r *Registry) SetState(id string, state domain.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok || state.Terminal() {
		return
	}
	run.State = state
}

// Finish records the run's terminal state, its final tags and, on failure,
// its error.
func (r *Registry) Finish(id string, bc *domain.BuildContext, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return
	}
	run.IntermediateTag = bc.IntermediateTag.String()
	run.RuntimeTag = bc.RuntimeTag.String()
	if err != nil {
		run.Error = err.Error()
		run.State = domain.StateFailed
	} else {
		run.State = domain.StateDone
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
}

// Get returns the run with the given ID, or false when it does not exist.
func (r *Registry) Get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// List returns all runs, most recent first.
func (r *Registry) List() []Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Run, 0, len(r.runs))
	for _, run := range r.runs {
		result = append(result, *run)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	return result
}
