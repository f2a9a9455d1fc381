package notes

import (
	"errors"
	"strings"
)

// ErrNotFound covers both a note that does not exist and a note owned
// by another user; callers cannot tell the two apart.
var ErrNotFound = errors.New("note not found")

// ValidationError lists the constraints a request violated. It is
// raised before any storage access.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func validationError(violations ...string) error {
	return &ValidationError{Violations: violations}
}
