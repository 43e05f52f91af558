package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned when no job matches an id or key.
var ErrJobNotFound = errors.New("scheduler: job not found")

// Scheduler queues downstream work (store pushes, store deletes and bus
// messages) produced by lifecycle commands after they commit.
type Scheduler interface {
	// Enqueue stores spec as a pending job. A pending job with the same key
	// is superseded so only the newest payload for a store path is sent.
	Enqueue(ctx context.Context, spec JobSpec) (*Job, error)
	Get(ctx context.Context, id string) (*Job, error)
	// GetByKey returns the pending job for key.
	GetByKey(ctx context.Context, key string) (*Job, error)
	// ListDue returns pending jobs with RunAt at or before until, oldest first.
	ListDue(ctx context.Context, until time.Time, limit int) ([]*Job, error)
	// Settle records the outcome of one delivery attempt.
	Settle(ctx context.Context, id string, outcome JobOutcome, cause error) error
}

// JobStatus is the state of a queued job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed marks a job that used up its attempts.
	JobStatusFailed JobStatus = "failed"
	// JobStatusAbandoned marks a job the downstream rejected outright.
	JobStatusAbandoned JobStatus = "abandoned"
)

// JobOutcome is what a worker reports after attempting a job.
type JobOutcome string

const (
	// JobDone settles the job. Stale and suppressed pushes are done too.
	JobDone JobOutcome = "done"
	// JobRetry reschedules the job, or fails it when attempts are exhausted.
	JobRetry JobOutcome = "retry"
	// JobAbandon fails the job without further attempts.
	JobAbandon JobOutcome = "abandon"
)

// JobSpec describes one unit of downstream work.
type JobSpec struct {
	// Key coalesces jobs; see scheduler.StoreJobKey and scheduler.MessageJobKey.
	Key string
	// Type selects the worker action, e.g. publishing.downstream.put.
	Type  string
	RunAt time.Time
	// Payload holds string values only: target, base_path, body,
	// payload_version and routing_key.
	Payload map[string]any
	// MaxAttempts of zero takes the scheduler default.
	MaxAttempts int
}

// Job is a queued JobSpec plus its delivery state.
type Job struct {
	JobSpec
	ID        string
	Attempt   int
	LastError string
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
