package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation marks collected field errors.
	ErrValidation = errors.New("publishing: validation failed")
	// ErrNotFound marks missing aggregates.
	ErrNotFound = errors.New("publishing: not found")
	// ErrUnprocessable marks semantic violations of the lifecycle rules.
	ErrUnprocessable = errors.New("publishing: unprocessable")
)

// ValidationError collects every field error found while validating a payload.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty collector.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Merge folds other into e, prefixing keys with prefix when set.
func (e *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for field, messages := range other.Fields {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		for _, msg := range messages {
			e.Add(key, msg)
		}
	}
}

// Empty reports whether no errors were collected.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns nil when nothing was collected so callers can `return errs.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(e.Fields[key], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NotFoundError reports a missing aggregate.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// UnprocessableError is a semantic rejection of an otherwise well-formed command.
type UnprocessableError struct {
	Reason  error
	Message string
}

func (e *UnprocessableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Reason != nil {
		return e.Reason.Error()
	}
	return ErrUnprocessable.Error()
}

// Is matches both the specific reason and ErrUnprocessable.
func (e *UnprocessableError) Is(target error) bool {
	return target == ErrUnprocessable || (e.Reason != nil && target == e.Reason)
}

func (e *UnprocessableError) Unwrap() error {
	return e.Reason
}
