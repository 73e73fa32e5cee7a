// Package shred implements the columnar node tree and the generic
// record-shredding converter that drives it from format-specific adapters.
package shred

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes a ShredError for handling strategy and monitoring,
// mirroring the taxonomy every format adapter reports into.
type ErrorKind string

const (
	// ErrSchemaConflict is returned when a node's established variant
	// disagrees with a new observation.
	ErrSchemaConflict ErrorKind = "schema_conflict"
	// ErrUnsupportedUnion is returned for an Avro union not of shape null|T.
	ErrUnsupportedUnion ErrorKind = "unsupported_union"
	// ErrUnsupportedGroups is returned when a Protobuf group wire type is encountered.
	ErrUnsupportedGroups ErrorKind = "unsupported_groups"
	// ErrNotImplemented is returned for a deliberately unsupported type.
	ErrNotImplemented ErrorKind = "not_implemented"
	// ErrMixedEnum is returned when an enum value from a foreign dictionary
	// is appended to an existing enum column.
	ErrMixedEnum ErrorKind = "mixed_enum"
	// ErrMalformedInput is returned for a decoding failure in the source bytes.
	ErrMalformedInput ErrorKind = "malformed_input"
	// ErrTypeMismatch is returned when an appended value's classification
	// disagrees with a node's already-specialized primitive type.
	ErrTypeMismatch ErrorKind = "type_mismatch"
)

// ShredError is a structured error carrying a taxonomy Kind, a message, an
// optional wrapped cause, and free-form Details for debugging context.
type ShredError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Details map[string]interface{}
}

// Error implements the error interface.
func (e *ShredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, enabling errors.Is/errors.As.
func (e *ShredError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key-value detail to the error and returns it for chaining.
func (e *ShredError) WithDetail(key string, value interface{}) *ShredError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewError constructs a new ShredError of the given kind.
func NewError(kind ErrorKind, message string) *ShredError {
	return &ShredError{Kind: kind, Message: message}
}

// WrapError wraps an existing error with a ShredError kind and message.
// Returns nil if err is nil.
func WrapError(err error, kind ErrorKind, message string) *ShredError {
	if err == nil {
		return nil
	}
	return &ShredError{Kind: kind, Message: message, Cause: err}
}

// IsKind reports whether err is a *ShredError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *ShredError
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}
