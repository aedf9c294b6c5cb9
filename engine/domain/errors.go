package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrMissingColumn = errors.New("missing column")
	ErrEmptyDataset  = errors.New("empty dataset")
	ErrMissingQuery  = errors.New("missing query")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// ColumnError reports a required column absent from a table header.
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Table, ErrMissingColumn, e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrMissingColumn }
