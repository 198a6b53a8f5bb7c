// Package server provides the HTTP API for WCAG audits and alt-text remediation.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/wcag-check/internal/remediation"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrReport indicates a submitted audit report that could not be used
type ErrReport struct {
	Cause error
}

func (e *ErrReport) Error() string {
	return fmt.Sprintf("invalid audit report: %v", e.Cause)
}

func (e *ErrReport) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var reportErr *ErrReport
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &reportErr):
		return http.StatusBadRequest
	case errors.Is(err, remediation.ErrInvalidReport):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
