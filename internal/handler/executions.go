package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/dto"
	"github.com/decisionxray/xray/internal/service"
)

// ExecutionHandler handles execution endpoints
type ExecutionHandler struct {
	service *service.ExecutionService
	logger  *zap.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(svc *service.ExecutionService, logger *zap.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		service: svc,
		logger:  logger,
	}
}

// ListExecutions handles GET /api/executions
func (h *ExecutionHandler) ListExecutions(c *fiber.Ctx) error {
	limit := parseQueryInt(c, "limit", service.DefaultListLimit)

	executions, err := h.service.ListRecent(c.UserContext(), limit)
	if err != nil {
		return handleError(c, h.logger, err, "Failed to fetch executions")
	}

	return respond(c, fiber.StatusOK, executions)
}

// GetExecution handles GET /api/executions/:id
func (h *ExecutionHandler) GetExecution(c *fiber.Ctx) error {
	id := domain.ExecutionID(c.Params("id"))

	execution, err := h.service.GetWithSteps(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err, "Failed to fetch execution")
	}

	return respond(c, fiber.StatusOK, execution)
}

// RunCompetitorSelection handles POST /api/executions/run
func (h *ExecutionHandler) RunCompetitorSelection(c *fiber.Ctx) error {
	var req dto.RunRequest
	if err := dto.ParseAndValidate(c, &req); err != nil {
		return handleError(c, h.logger, err, "Invalid request")
	}

	result, err := h.service.RunCompetitorSelection(c.UserContext(), req.ReferenceProduct.Product())
	if err != nil {
		return handleError(c, h.logger, err, "Failed to run competitor selection")
	}

	h.logger.Info("competitor selection completed",
		zap.String("execution_id", string(result.Execution.ID)),
		zap.Int("steps", len(result.Steps)),
	)

	return respond(c, fiber.StatusOK, dto.NewRunResponse(result))
}

// ExportExecution handles POST /api/executions/:id/export
func (h *ExecutionHandler) ExportExecution(c *fiber.Ctx) error {
	id := domain.ExecutionID(c.Params("id"))

	if err := h.service.RequestExport(c.UserContext(), id); err != nil {
		return handleError(c, h.logger, err, "Failed to queue export")
	}

	return respond(c, fiber.StatusAccepted, dto.ExportResponse{
		ExecutionID: id,
		Status:      "queued",
	})
}

// RegisterRoutes registers execution routes. Handlers in runLimiters are
// applied to the run endpoint only.
func (h *ExecutionHandler) RegisterRoutes(router fiber.Router, runLimiters ...fiber.Handler) {
	executions := router.Group("/executions")

	executions.Get("/", h.ListExecutions)
	executions.Post("/run", append(runLimiters, h.RunCompetitorSelection)...)
	executions.Get("/:id", h.GetExecution)
	executions.Post("/:id/export", h.ExportExecution)
}
