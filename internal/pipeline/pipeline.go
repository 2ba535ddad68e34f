// Package pipeline sequences the build stages of a single slipway run.
//
// A run is strictly linear: checkout, intermediate image build, artifact
// extraction, runtime image packaging, and an optional publish. Each stage
// consumes the run's BuildContext and either advances it or fails the whole
// run; nothing is retried and a failed run restarts from scratch. Stage
// failures are wrapped in a StageError naming the stage, with the underlying
// engine output preserved in the chain.
package pipeline

import (
	"context"
	"fmt"

	"github.com/slipway-ci/slipway/internal/core/domain"
)

// Stage is a single unit of work in the pipeline.
type Stage interface {
	// Name identifies the stage in errors and logs.
	Name() string

	// State is the run state entered when the stage starts.
	State() domain.RunState

	// Execute performs the stage against the run's context.
	Execute(ctx context.Context, bc *domain.BuildContext) error
}

// StageError wraps a stage failure with the stage's name.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Observer is notified of run state transitions as they happen.
type Observer func(domain.RunState)

// Pipeline executes a sequence of stages in order.
type Pipeline struct {
	stages  []Stage
	observe Observer
}

// New creates a Pipeline from the given stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, observe: func(domain.RunState) {}}
}

// OnTransition registers an observer for state transitions.
func (p *Pipeline) OnTransition(fn Observer) {
	if fn != nil {
		p.observe = fn
	}
}

// Run executes the stages against bc, stopping at the first failure.
//
// Cancellation is checked between stages; an aborted run leaves previously
// built images and any copied artifact in place, to be overwritten by the
// next run of the same branch.
func (p *Pipeline) Run(ctx context.Context, bc *domain.BuildContext) error {
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			p.observe(domain.StateFailed)
			return &StageError{Stage: s.Name(), Err: err}
		}

		p.observe(s.State())
		if err := s.Execute(ctx, bc); err != nil {
			p.observe(domain.StateFailed)
			return &StageError{Stage: s.Name(), Err: err}
		}
	}

	p.observe(domain.StateDone)
	return nil
}
