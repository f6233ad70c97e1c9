package resolver

import (
	"errors"
	"fmt"
)

// ErrorClass separates errors that poison an entire run from errors that
// only fail the target they belong to.
type ErrorClass string

const (
	// ErrorClassStructural marks defects in the registered inputs:
	// duplicate scope documents, unknown group references, group cycles,
	// or an unsealed registry. The whole run aborts.
	ErrorClassStructural ErrorClass = "structural"

	// ErrorClassValidation marks schema failures scoped to one target.
	// Other targets keep resolving.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassInternal marks unexpected failures, including run
	// cancellation.
	ErrorClassInternal ErrorClass = "internal"
)

// ResolveError is a classified resolution failure with target context.
type ResolveError struct {
	// Class decides whether the run or only one target fails.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Target is the target being resolved when the error occurred, if
	// the error is scoped to one.
	Target string `json:"target,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("[%s] %s (target=%s): %s", e.Class, e.Message, e.Target, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

func (e *ResolveError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// NewStructuralError creates a run-fatal error.
func NewStructuralError(message string, err error) *ResolveError {
	return &ResolveError{Class: ErrorClassStructural, Message: message, Err: err}
}

// NewValidationError creates a target-scoped error.
func NewValidationError(message string, err error) *ResolveError {
	return &ResolveError{Class: ErrorClassValidation, Message: message, Err: err}
}

// NewInternalError creates an unclassified failure.
func NewInternalError(message string, err error) *ResolveError {
	return &ResolveError{Class: ErrorClassInternal, Message: message, Err: err}
}

// WithTarget adds target context to an error.
func (e *ResolveError) WithTarget(target string) *ResolveError {
	e.Target = target
	return e
}

// IsStructural returns true if the error aborts the whole run.
func IsStructural(err error) bool {
	var e *ResolveError
	if errors.As(err, &e) {
		return e.Class == ErrorClassStructural
	}
	return false
}

// IsValidation returns true if the error is scoped to a single target.
func IsValidation(err error) bool {
	var e *ResolveError
	if errors.As(err, &e) {
		return e.Class == ErrorClassValidation
	}
	return false
}
