// Package validator wraps go-playground/validator for request DTOs.
//
// Field names in errors are JSON paths below the validated value, for
// example "referenceProduct.asin", so they can be shown to API clients as is.
//
//	if err := validator.Validate(req); err != nil {
//	    // err is a validator.ValidationErrors
//	}
//
// The validator instance is package-level and safe for concurrent use.
package validator
