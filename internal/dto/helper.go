package dto

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/validator"
)

// ParseAndValidate parses the request body into the given struct and validates it.
// Failures are returned as validation errors carrying the offending fields
// as details; nothing is written to the response.
func ParseAndValidate(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.Validation("Invalid request body: " + err.Error())
	}

	if err := validator.Validate(v); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			appErr := apperrors.Validation(validationErrors.First())
			for _, fe := range validationErrors {
				appErr = appErr.WithDetail(fe.Field, fe.Message)
			}
			return appErr
		}
		return apperrors.Validation(err.Error())
	}

	return nil
}
