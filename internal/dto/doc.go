// Package dto contains the request and response bodies of the HTTP API.
//
// Requests are parsed and validated in one call:
//
//	var req dto.RunRequest
//	if err := dto.ParseAndValidate(c, &req); err != nil {
//	    return err
//	}
//
// Required request fields are pointers so that a field sent with its zero
// value is told apart from a missing one.
package dto
