// Package errors provides application error types for the decision trace service.
//
// This package defines:
//   - AppError type with error classification
//   - Error constructors for common error types
//   - Error type checking helpers
//   - HTTP status code mapping
//
// # Error Types
//
//   - Precondition: invalid lifecycle transition, e.g. finishing a finished execution (409)
//   - NotFound: execution or steps do not exist (404)
//   - Persistence: the store failed; the write may or may not have happened (503)
//   - Validation: malformed request payload (400)
//   - Internal: unexpected server error (500)
//
// # Usage
//
//	return apperrors.NotFound("execution")
//	return apperrors.Precondition("execution already completed")
//
// Check error types:
//
//	if apperrors.IsNotFound(err) {
//	    // Handle not found
//	}
//
// Errors support wrapping with fmt.Errorf:
//
//	return fmt.Errorf("load trace: %w", apperrors.NotFound("execution"))
package errors
