package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/slipway-ci/slipway/internal/core/domain"
	"github.com/slipway-ci/slipway/internal/pipeline"
)

// PipelineService is the HTTP layer's view of the run executor.
type PipelineService interface {
	Execute(ctx context.Context, branch string, observe pipeline.Observer) (*domain.BuildContext, error)
}

// RunHandler exposes pipeline runs over HTTP.
type RunHandler struct {
	service       PipelineService
	runs          *Registry
	defaultBranch string
}

// NewRunHandler creates a handler backed by the given executor.
func NewRunHandler(service PipelineService, runs *Registry, defaultBranch string) *RunHandler {
	return &RunHandler{service: service, runs: runs, defaultBranch: defaultBranch}
}

// Register mounts the run routes under the given router group.
func (h *RunHandler) Register(router fiber.Router) {
	runs := router.Group("/runs")
	runs.Post("/", h.StartRun)
	runs.Get("/", h.ListRuns)
	runs.Get("/:id", h.GetRun)
}

type startRunRequest struct {
	Branch string `json:"branch"`
}

// StartRun triggers a pipeline invocation in the background and returns the
// run's ID immediately. A build can take minutes; callers poll GetRun for
// the outcome.
func (h *RunHandler) StartRun(c *fiber.Ctx) error {
	var req startRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	branch := req.Branch
	if branch == "" {
		branch = h.defaultBranch
	}

	id := h.runs.Create(branch)

	// The run outlives the request; it is bound to the server's lifetime,
	// not the caller's connection.
	go func() {
		bc, err := h.service.Execute(context.Background(), branch, func(state domain.RunState) {
			h.runs.SetState(id, state)
		})
		h.runs.Finish(id, bc, err)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":     id,
		"branch": branch,
	})
}

// ListRuns returns all recorded runs, most recent first.
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	return c.JSON(h.runs.List())
}

// GetRun returns a single run by ID.
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	id := c.Params("id")

	run, ok := h.runs.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Run not found",
		})
	}
	return c.JSON(run)
}
