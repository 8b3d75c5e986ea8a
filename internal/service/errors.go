package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when the requested chunk is not loaded.
	ErrNotFound = errors.New("not found")
)

// ValidationError names the request field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets callers test for ErrInvalidInput without knowing the field.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// WrapError prefixes err with msg, keeping it matchable. A nil err stays nil.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
