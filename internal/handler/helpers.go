package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/middleware"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/workflow"
)

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error"`
	Code        string            `json:"code,omitempty"`
	ExecutionID string            `json:"executionId,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// respond writes the success envelope
func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// errorResponse writes the failure envelope
func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: message})
}

// handleError maps err to a failure response. fallback is the message shown
// for errors that carry no client-safe message.
func handleError(c *fiber.Ctx, logger *zap.Logger, err error, fallback string) error {
	resp := ErrorResponse{Error: fallback}
	status := fiber.StatusInternalServerError

	var stageErr *workflow.StageError
	if errors.As(err, &stageErr) {
		resp.ExecutionID = string(stageErr.ExecutionID)
	}

	if appErr := apperrors.GetAppError(err); appErr != nil {
		status = appErr.StatusCode
		resp.Code = appErr.Code
		resp.Details = appErr.Details
		if status < fiber.StatusInternalServerError || appErr.Code != apperrors.CodeInternal {
			resp.Error = appErr.Message
		}
	} else if stageErr != nil {
		resp.Error = stageErr.Err.Error()
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error(fallback,
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		middleware.CaptureError(c, err)
	}

	return c.Status(status).JSON(resp)
}

// parseQueryInt parses an integer query parameter with a default value.
// Zero and unparsable values yield the default.
func parseQueryInt(c *fiber.Ctx, key string, defaultValue int) int {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(val)
	if err != nil || intVal == 0 {
		return defaultValue
	}
	return intVal
}

// ErrorHandler is the fiber error handler. It renders errors that escape
// the handlers, including unknown routes, in the API envelope.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return errorResponse(c, fiberErr.Code, fiberErr.Message)
		}
		return handleError(c, logger, err, "Internal Server Error")
	}
}
