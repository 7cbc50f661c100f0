package transform

import (
	"errors"
	"fmt"
	"net/http"
)

// Common transformation errors.
var (
	// ErrTransformation indicates that a transformer failed.
	ErrTransformation = errors.New("transformation failed")

	// ErrInvalidRule indicates a rule that cannot be built from its config.
	ErrInvalidRule = errors.New("invalid transformation rule")

	// ErrNoTransformer indicates content with no applicable transformer.
	ErrNoTransformer = errors.New("no transformer registered")

	// ErrNestingTooDeep indicates runaway nested transformation.
	ErrNestingTooDeep = errors.New("nested transformation too deep")

	// ErrFilterResult indicates a filter expression that did not yield a bool.
	ErrFilterResult = errors.New("filter expression did not evaluate to bool")
)

// TransformationError is returned when transforming a resource fails.
type TransformationError struct {
	Kind  string
	Cause error
}

// Error implements the error interface.
func (e *TransformationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrTransformation, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", ErrTransformation, e.Kind, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransformationError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrTransformation or another
// TransformationError.
func (e *TransformationError) Is(target error) bool {
	if target == ErrTransformation {
		return true
	}
	_, ok := target.(*TransformationError)
	return ok
}

// StatusCode returns the HTTP status code.
func (e *TransformationError) StatusCode() int { return http.StatusInternalServerError }

func transformationError(kind string, cause error) error {
	var te *TransformationError
	if errors.As(cause, &te) {
		return cause
	}
	return &TransformationError{Kind: kind, Cause: cause}
}
