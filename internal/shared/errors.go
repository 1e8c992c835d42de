// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"
	"net/http"

	"github.com/ashureev/macro-maker/internal/domain"
)

// IsBadRequest checks if the error stems from invalid client input.
func IsBadRequest(err error) bool {
	return err != nil && errors.Is(err, domain.ErrBadRequest)
}

// StatusFromError maps a plan-generation error to an HTTP status.
// Client input errors are 400; everything else (configuration, upstream,
// unparseable output) is reported as 500.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsBadRequest(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
