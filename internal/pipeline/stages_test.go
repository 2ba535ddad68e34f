package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/slipway-ci/slipway/internal/config"
	"github.com/slipway-ci/slipway/internal/core/domain"
	"github.com/slipway-ci/slipway/internal/core/ports"
)

// fakeEngine records every engine call for assertions.
type fakeEngine struct {
	built     []domain.ImageTag
	extracted []ports.ExtractRequest
	tagged    [][2]domain.ImageTag
	pushed    []domain.ImageTag

	buildErr   error
	extractErr error
	pushErr    error

	// When set, ExtractArtifact writes these bytes to the request's
	// destination path, mimicking a successful copy.
	artifact []byte
}

func (e *fakeEngine) BuildImage(ctx context.Context, contextDir string, tag domain.ImageTag) error {
	e.built = append(e.built, tag)
	return e.buildErr
}

func (e *fakeEngine) ExtractArtifact(ctx context.Context, req ports.ExtractRequest) error {
	e.extracted = append(e.extracted, req)
	if e.extractErr != nil {
		return e.extractErr
	}
	if e.artifact != nil {
		if err := os.WriteFile(req.DestPath, e.artifact, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (e *fakeEngine) TagImage(ctx context.Context, source, target domain.ImageTag) error {
	e.tagged = append(e.tagged, [2]domain.ImageTag{source, target})
	return nil
}

func (e *fakeEngine) PushImage(ctx context.Context, tag domain.ImageTag, auth ports.RegistryAuth) error {
	e.pushed = append(e.pushed, tag)
	return e.pushErr
}

func testContext(t *testing.T) *domain.BuildContext {
	t.Helper()
	workspace := t.TempDir()
	return &domain.BuildContext{
		Branch:          "main",
		InvocationID:    "test-invocation",
		WorkspaceDir:    workspace,
		ArtifactPath:    filepath.Join(workspace, "service"),
		IntermediateTag: domain.ImageTag{Repository: "svc-build", Tag: "main"},
		RuntimeTag:      domain.ImageTag{Repository: "svc", Tag: "main"},
	}
}

func writeArtifact(t *testing.T, bc *domain.BuildContext, contents string) {
	t.Helper()
	if err := os.WriteFile(bc.ArtifactPath, []byte(contents), 0o755); err != nil {
		t.Fatal(err)
	}
}

func writeDescriptor(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runtime.Dockerfile")
	if err := os.WriteFile(path, []byte("FROM scratch\nCOPY service /service\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractStagePreconditions(t *testing.T) {
	engine := &fakeEngine{}
	stage := &extractStage{engine: engine, source: "/build/service", method: domain.ExtractRunCopy}

	err := stage.Execute(context.Background(), &domain.BuildContext{ArtifactPath: "/out/service"})
	if !errors.Is(err, domain.ErrNoIntermediateImage) {
		t.Fatalf("err = %v, want ErrNoIntermediateImage", err)
	}
	if len(engine.extracted) != 0 {
		t.Fatal("engine called despite unmet precondition")
	}
}

func TestExtractStageRequest(t *testing.T) {
	engine := &fakeEngine{}
	stage := &extractStage{engine: engine, source: "/build/service", method: domain.ExtractVolumeMount}
	bc := testContext(t)

	if err := stage.Execute(context.Background(), bc); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if len(engine.extracted) != 1 {
		t.Fatalf("extract calls = %d, want 1", len(engine.extracted))
	}

	req := engine.extracted[0]
	if req.Image != "svc-build:main" {
		t.Fatalf("image = %q, want svc-build:main", req.Image)
	}
	if req.Method != domain.ExtractVolumeMount {
		t.Fatalf("method = %q, want volume-mount", req.Method)
	}
	if req.ContainerName != "slipway-extract-test-invocation" {
		t.Fatalf("container name = %q, not namespaced by invocation", req.ContainerName)
	}
}

// Packaging must refuse to run before touching the engine when the artifact
// is missing or empty.
func TestPackageStageFailsFastWithoutArtifact(t *testing.T) {
	engine := &fakeEngine{}
	stage := &packageStage{engine: engine, descriptor: writeDescriptor(t)}
	bc := testContext(t)

	err := stage.Execute(context.Background(), bc)
	if !errors.Is(err, ErrPackaging) {
		t.Fatalf("err = %v, want ErrPackaging", err)
	}
	if len(engine.built) != 0 {
		t.Fatal("engine invoked despite missing artifact")
	}

	writeArtifact(t, bc, "")
	err = stage.Execute(context.Background(), bc)
	if !errors.Is(err, ErrPackaging) {
		t.Fatalf("err = %v, want ErrPackaging for empty artifact", err)
	}
	if len(engine.built) != 0 {
		t.Fatal("engine invoked despite empty artifact")
	}
}

func TestPackageStageBuildsRuntimeImage(t *testing.T) {
	engine := &fakeEngine{}
	stage := &packageStage{engine: engine, descriptor: writeDescriptor(t)}
	bc := testContext(t)
	writeArtifact(t, bc, "binary contents")

	if err := stage.Execute(context.Background(), bc); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if len(engine.built) != 1 || engine.built[0] != bc.RuntimeTag {
		t.Fatalf("built = %v, want [%v]", engine.built, bc.RuntimeTag)
	}

	// The staged descriptor is removed after the build so the next role
	// cannot pick it up.
	if _, err := os.Stat(filepath.Join(bc.WorkspaceDir, "Dockerfile")); !os.IsNotExist(err) {
		t.Fatal("staged descriptor left behind after build")
	}
}

// With publishing disabled the stage is a no-op: no tag, no push, no
// registry interaction of any kind.
func TestPublishStageDisabled(t *testing.T) {
	engine := &fakeEngine{}
	stage := &publishStage{engine: engine, publish: config.Publish{Registry: "registry.example.com"}}
	bc := testContext(t)
	bc.PublishEnabled = false

	if err := stage.Execute(context.Background(), bc); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if len(engine.tagged) != 0 || len(engine.pushed) != 0 {
		t.Fatalf("registry interaction despite publish disabled: tagged=%v pushed=%v", engine.tagged, engine.pushed)
	}
}

func TestPublishStagePushesTwoAliases(t *testing.T) {
	engine := &fakeEngine{}
	stage := &publishStage{engine: engine, publish: config.Publish{
		Registry: "registry.example.com",
		Username: "ci",
	}}
	bc := testContext(t)
	bc.PublishEnabled = true

	if err := stage.Execute(context.Background(), bc); err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}

	if len(engine.pushed) != 2 {
		t.Fatalf("pushes = %d, want 2", len(engine.pushed))
	}
	if got := engine.pushed[0].String(); got != "registry.example.com/svc:main" {
		t.Fatalf("first push = %q, want registry.example.com/svc:main", got)
	}
	if got := engine.pushed[1].String(); got != "registry.example.com/svc:latest" {
		t.Fatalf("second push = %q, want registry.example.com/svc:latest", got)
	}
}

// A failed first push leaves the second alias unpushed: the pair is
// best-effort, not atomic.
func TestPublishStageNonAtomic(t *testing.T) {
	engine := &fakeEngine{pushErr: errors.New("denied")}
	stage := &publishStage{engine: engine, publish: config.Publish{Registry: "registry.example.com"}}
	bc := testContext(t)
	bc.PublishEnabled = true

	if err := stage.Execute(context.Background(), bc); err == nil {
		t.Fatal("Execute() = nil, want push error")
	}
	if len(engine.pushed) != 1 {
		t.Fatalf("pushes = %d, want 1 (stop after first failure)", len(engine.pushed))
	}
}

func TestStageDescriptor(t *testing.T) {
	workspace := t.TempDir()
	descriptor := filepath.Join(t.TempDir(), "build.Dockerfile")
	if err := os.WriteFile(descriptor, []byte("FROM golang:1.24\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cleanup, err := stageDescriptor(descriptor, workspace)
	if err != nil {
		t.Fatalf("stageDescriptor() = %v, want nil", err)
	}

	staged := filepath.Join(workspace, "Dockerfile")
	raw, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("staged descriptor unreadable: %v", err)
	}
	if string(raw) != "FROM golang:1.24\n" {
		t.Fatalf("staged contents = %q", raw)
	}

	cleanup()
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatal("cleanup left the staged descriptor behind")
	}

	// The template itself is untouched.
	if _, err := os.Stat(descriptor); err != nil {
		t.Fatalf("descriptor template missing after staging: %v", err)
	}
}

func TestStageDescriptorMissingTemplate(t *testing.T) {
	_, err := stageDescriptor(filepath.Join(t.TempDir(), "nope.Dockerfile"), t.TempDir())
	if err == nil {
		t.Fatal("stageDescriptor() = nil, want error for missing template")
	}
}
