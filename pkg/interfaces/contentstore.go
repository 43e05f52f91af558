package interfaces

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStoreNotFound is returned by DeleteItem when nothing is stored at the path.
	ErrStoreNotFound = errors.New("content store: item not found")
)

// ContentStore is the boundary to a downstream read replica (draft or live stack).
// Implementations must treat PutItem as an idempotent upsert keyed by base path.
type ContentStore interface {
	PutItem(ctx context.Context, basePath string, body []byte) error
	DeleteItem(ctx context.Context, basePath string) error
}

// MessageBus publishes representations to downstream consumers. Delivery is at-least-once.
type MessageBus interface {
	SendMessage(ctx context.Context, routingKey string, body []byte) error
}

// StoreError classifies a failed downstream call.
type StoreError struct {
	Store     string
	Status    int
	Transient bool
	Err       error
}

func (e *StoreError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Store, kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Store, kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// TransientError builds a retryable store error.
func TransientError(store string, status int, err error) error {
	return &StoreError{Store: store, Status: status, Transient: true, Err: err}
}

// PermanentError builds a store error that must not be retried.
func PermanentError(store string, status int, err error) error {
	return &StoreError{Store: store, Status: status, Err: err}
}

// IsTransient reports whether err is a retryable store error. Unclassified errors
// (network failures, timeouts) count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Transient
	}
	return true
}

// StatusOf returns the HTTP-equivalent status carried by a store error, or zero.
func StatusOf(err error) int {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Status
	}
	return 0
}
