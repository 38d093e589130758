package domain

import (
	"errors"
	"fmt"
)

// ErrControllerNotFound is returned when a controller ID cannot be found in a store.
var ErrControllerNotFound = errors.New("controller not found")

// Sentinel error classes for errors.Is checks.
var (
	// ErrValidation marks recoverable problems such as a gate parameter of the wrong type.
	ErrValidation = errors.New("validation error")

	// ErrStructural marks a broken graph, e.g. a transition to a state that does not exist.
	ErrStructural = errors.New("structural error")
)

// ValidationError is a non-fatal problem found while normalizing.
// It wraps ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StructuralError describes a layer that cannot be normalized safely.
// It wraps ErrStructural.
type StructuralError struct {
	Layer string
	Kind  string // "dangling_destination", "duplicate_state", "missing_state_machine", ...
	Msg   string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	if e.Layer != "" {
		return fmt.Sprintf("%s: layer %q: %s", ErrStructural.Error(), e.Layer, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrStructural.Error(), e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }
