package apperrors

import (
	"errors"
	"net/http"
)

// Shared error taxonomy of the enrollment backend. Scope misses are reported
// as ErrNotFound on purpose, so callers cannot distinguish "does not exist"
// from "exists but outside your substudy scope".
var (
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidEntity       = errors.New("entity is invalid")
	ErrConstraintViolation = errors.New("operation blocked by existing dependents")
	ErrUnauthorized        = errors.New("not authorized for this action")
)

// HTTPStatus maps a taxonomy error to the response status used by the API
// services. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidEntity):
		return http.StatusBadRequest
	case errors.Is(err, ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
