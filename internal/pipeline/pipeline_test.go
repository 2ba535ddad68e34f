package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/slipway-ci/slipway/internal/core/domain"
)

// fakeStage records whether it executed and optionally fails.
type fakeStage struct {
	name     string
	state    domain.RunState
	err      error
	executed bool
}

func (s *fakeStage) Name() string           { return s.name }
func (s *fakeStage) State() domain.RunState { return s.state }

func (s *fakeStage) Execute(ctx context.Context, bc *domain.BuildContext) error {
	s.executed = true
	return s.err
}

func TestRunAllStagesSucceed(t *testing.T) {
	stages := []*fakeStage{
		{name: "checkout", state: domain.StateCheckout},
		{name: "build", state: domain.StateBuilding},
		{name: "package", state: domain.StatePackaging},
	}

	var transitions []domain.RunState
	p := New(stages[0], stages[1], stages[2])
	p.OnTransition(func(s domain.RunState) { transitions = append(transitions, s) })

	if err := p.Run(context.Background(), &domain.BuildContext{}); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	for _, s := range stages {
		if !s.executed {
			t.Fatalf("stage %s never executed", s.name)
		}
	}

	want := []domain.RunState{domain.StateCheckout, domain.StateBuilding, domain.StatePackaging, domain.StateDone}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

// A failing stage must abort the run immediately: later stages never execute
// and the run ends in the failed state.
func TestRunStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("build exited 1")
	first := &fakeStage{name: "checkout", state: domain.StateCheckout}
	failing := &fakeStage{name: "build", state: domain.StateBuilding, err: boom}
	never := &fakeStage{name: "extract", state: domain.StateExtracting}

	var last domain.RunState
	p := New(first, failing, never)
	p.OnTransition(func(s domain.RunState) { last = s })

	err := p.Run(context.Background(), &domain.BuildContext{})
	if err == nil {
		t.Fatal("Run() = nil, want error")
	}
	if never.executed {
		t.Fatal("stage after failure executed")
	}
	if last != domain.StateFailed {
		t.Fatalf("final state = %q, want %q", last, domain.StateFailed)
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err type = %T, want *StageError", err)
	}
	if stageErr.Stage != "build" {
		t.Fatalf("failing stage = %q, want build", stageErr.Stage)
	}
	if !errors.Is(err, boom) {
		t.Fatal("underlying error lost from chain")
	}
}

func TestRunCancelledBeforeNextStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stage := &fakeStage{name: "checkout", state: domain.StateCheckout}
	p := New(stage)

	err := p.Run(ctx, &domain.BuildContext{})
	if err == nil {
		t.Fatal("Run() = nil, want cancellation error")
	}
	if stage.executed {
		t.Fatal("stage executed after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled in chain", err)
	}
}

func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: "extract", Err: errors.New("no such path")}
	want := "stage extract: no such path"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
