package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation occurs when request input is malformed or missing.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound occurs when a product, release or feature could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict occurs when a release version already exists for a product.
	ErrConflict = errors.New("resource already exists")

	// ErrUnauthorized occurs when an admin operation is attempted without a session.
	ErrUnauthorized = errors.New("authentication required")

	// ErrForbidden occurs when the CSRF token is missing or invalid.
	ErrForbidden = errors.New("forbidden")

	// ErrStore occurs when the underlying database fails.
	ErrStore = errors.New("store error")
)

// Specific lookups that failed. Each one also matches ErrNotFound.
var (
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrReleaseNotFound = fmt.Errorf("release %w", ErrNotFound)
	ErrFeatureNotFound = fmt.Errorf("feature %w", ErrNotFound)
)

// ValidationError carries the client-facing reason for rejected input.
// It matches ErrValidation.
type ValidationError struct {
	Message string
}

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StatusMap maps every known error to the HTTP status it surfaces as.
var StatusMap = map[error]int{
	ErrValidation:   http.StatusBadRequest,
	ErrNotFound:     http.StatusNotFound,
	ErrConflict:     http.StatusConflict,
	ErrUnauthorized: http.StatusUnauthorized,
	ErrForbidden:    http.StatusForbidden,
	ErrStore:        http.StatusInternalServerError,
}

// StatusFor resolves the HTTP status for err, defaulting to 500.
func StatusFor(err error) int {
	for knownErr, statusCode := range StatusMap {
		if knownErr == ErrStore {
			continue
		}
		if errors.Is(err, knownErr) {
			return statusCode
		}
	}
	return http.StatusInternalServerError
}
