package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrOrderNotFound is returned when no order matches both the order id
	// and the customer id. Ownership is part of the lookup, so a foreign
	// order is reported as not found.
	ErrOrderNotFound = errors.New("order not found")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError reports malformed input. It is raised before anything is
// persisted or published.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
