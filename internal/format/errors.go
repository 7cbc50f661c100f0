package format

import (
	"errors"
	"fmt"
	"net/http"
)

// Common format errors.
var (
	// ErrUnsupportedFormat indicates that no formatter is registered for the
	// requested format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrSerialization indicates that a formatter could not render a value.
	ErrSerialization = errors.New("serialization failed")

	// ErrInvalidUTF8 indicates a string that a text format cannot carry.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 string")

	// ErrInvalidElementName indicates a map key that is not a valid XML name.
	ErrInvalidElementName = errors.New("invalid XML element name")

	// ErrCatalogSealed indicates a registration after the catalog was sealed.
	ErrCatalogSealed = errors.New("format catalog is sealed")

	// ErrInvalidRegistration indicates an empty id or a nil formatter.
	ErrInvalidRegistration = errors.New("invalid formatter registration")

	// ErrUnknownKind indicates a formatter kind with no built-in implementation.
	ErrUnknownKind = errors.New("unknown formatter kind")
)

// UnsupportedFormatError is returned when a format has no registered
// formatter. It maps to 406 Not Acceptable at the transport boundary.
type UnsupportedFormatError struct {
	Format string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unable to format response as %q according to Accept header", e.Format)
}

// Is reports whether target is ErrUnsupportedFormat or another
// UnsupportedFormatError.
func (e *UnsupportedFormatError) Is(target error) bool {
	if target == ErrUnsupportedFormat {
		return true
	}
	_, ok := target.(*UnsupportedFormatError)
	return ok
}

// StatusCode returns the HTTP status code.
func (e *UnsupportedFormatError) StatusCode() int { return http.StatusNotAcceptable }

// SerializationError is returned when a formatter cannot represent a value.
type SerializationError struct {
	Format string
	Shape  string
	Cause  error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: cannot render %s as %s", ErrSerialization, e.Shape, e.Format)
	}
	return fmt.Sprintf("%s: cannot render %s as %s: %v", ErrSerialization, e.Shape, e.Format, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SerializationError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrSerialization or another SerializationError.
func (e *SerializationError) Is(target error) bool {
	if target == ErrSerialization {
		return true
	}
	_, ok := target.(*SerializationError)
	return ok
}

// StatusCode returns the HTTP status code.
func (e *SerializationError) StatusCode() int { return http.StatusInternalServerError }

func serializationError(format, shape string, cause error) error {
	return &SerializationError{Format: format, Shape: shape, Cause: cause}
}
