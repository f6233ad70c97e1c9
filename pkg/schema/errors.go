package schema

import "fmt"

// ErrorKind classifies a validation error.
type ErrorKind string

const (
	// ErrMissingRequiredField reports a required field absent from the
	// merged variable set.
	ErrMissingRequiredField ErrorKind = "missing-required-field"

	// ErrTypeMismatch reports a value whose kind cannot be safely coerced
	// to the declared field kind.
	ErrTypeMismatch ErrorKind = "type-mismatch"

	// ErrConstraintViolation reports a coerced value that fails one of the
	// field's declared constraints.
	ErrConstraintViolation ErrorKind = "constraint-violation"
)

// ValidationError describes a single problem found while validating one
// target's merged variables against a schema.
type ValidationError struct {
	// Path is the dotted field path; sequence elements use index notation
	// (for example dns[1]).
	Path string `json:"path"`

	// Kind classifies the error.
	Kind ErrorKind `json:"kind"`

	// Expected names the declared kind or the violated constraint.
	Expected string `json:"expected"`

	// Received renders the offending raw value, when one exists.
	Received string `json:"received,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s [%s]", e.Path, e.Message, e.Kind)
}
