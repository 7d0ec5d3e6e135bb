package model

import (
	"errors"
	"fmt"
)

// ErrInput is the sentinel matched by every InputError.
var ErrInput = errors.New("invalid input")

// InputError reports a malformed series or configuration. It is raised before
// any model is built.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInput) match any InputError.
func (e *InputError) Is(target error) bool { return target == ErrInput }

// NewInputError builds an InputError for field.
func NewInputError(field, format string, args ...any) *InputError {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
