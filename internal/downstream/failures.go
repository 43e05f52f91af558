package downstream

import (
	"context"
	"sync"
	"time"
)

// FailureReason says why a delivery was given up on.
type FailureReason string

const (
	// FailureRejected means the downstream refused the payload outright.
	FailureRejected FailureReason = "rejected"
	// FailureExhausted means every retry attempt failed.
	FailureExhausted FailureReason = "exhausted"
)

// Failure is a downstream delivery that will not be attempted again.
type Failure struct {
	JobID          string        `json:"job_id"`
	Kind           string        `json:"kind"`
	Target         Target        `json:"target,omitempty"`
	BasePath       string        `json:"base_path,omitempty"`
	RoutingKey     string        `json:"routing_key,omitempty"`
	PayloadVersion int64         `json:"payload_version,omitempty"`
	Reason         FailureReason `json:"reason"`
	Attempts       int           `json:"attempts"`
	Status         int           `json:"status,omitempty"`
	Error          string        `json:"error,omitempty"`
	FailedAt       time.Time     `json:"failed_at"`
}

// FailureFilter narrows a failure listing. Zero fields match everything.
type FailureFilter struct {
	Target   Target
	BasePath string
	Limit    int
}

func (f FailureFilter) matches(failure Failure) bool {
	if f.Target != "" && failure.Target != f.Target {
		return false
	}
	return f.BasePath == "" || failure.BasePath == f.BasePath
}

// FailureLog keeps abandoned deliveries for operators to inspect.
type FailureLog interface {
	Record(ctx context.Context, failure Failure) error
	List(ctx context.Context, filter FailureFilter) ([]Failure, error)
}

// DefaultFailureLogSize bounds the in-memory log when no size is given.
const DefaultFailureLogSize = 500

// MemoryFailureLog holds the most recent failures, dropping the oldest once
// it is full.
type MemoryFailureLog struct {
	mu       sync.Mutex
	entries  []Failure
	capacity int
}

// NewMemoryFailureLog keeps at most capacity failures.
func NewMemoryFailureLog(capacity int) *MemoryFailureLog {
	if capacity <= 0 {
		capacity = DefaultFailureLogSize
	}
	return &MemoryFailureLog{capacity: capacity}
}

func (l *MemoryFailureLog) Record(_ context.Context, failure Failure) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, failure)
	return nil
}

// List returns matching failures, newest first.
func (l *MemoryFailureLog) List(_ context.Context, filter FailureFilter) ([]Failure, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Failure, 0)
	for i := len(l.entries) - 1; i >= 0; i-- {
		if !filter.matches(l.entries[i]) {
			continue
		}
		out = append(out, l.entries[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}
