package scheduler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const defaultMaxAttempts = 3

// ErrRunAtRequired is returned by Enqueue for a spec without RunAt.
var ErrRunAtRequired = errors.New("scheduler: run_at is required")

// NewInMemory returns a process-local queue. Jobs are lost on restart; the
// database stays authoritative and a republish rebuilds any store.
func NewInMemory(opts ...Option) interfaces.Scheduler {
	q := &memoryQueue{
		now:         time.Now,
		newID:       uuid.NewString,
		backoff:     func(int) time.Duration { return 0 },
		maxAttempts: defaultMaxAttempts,
		jobs:        make(map[string]*interfaces.Job),
		pending:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Option configures the in-memory queue.
type Option func(*memoryQueue)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(q *memoryQueue) {
		if clock != nil {
			q.now = clock
		}
	}
}

// WithIDGenerator overrides uuid job ids.
func WithIDGenerator(generator func() string) Option {
	return func(q *memoryQueue) {
		if generator != nil {
			q.newID = generator
		}
	}
}

// WithDefaultMaxAttempts applies to specs that leave MaxAttempts at zero.
func WithDefaultMaxAttempts(limit int) Option {
	return func(q *memoryQueue) {
		if limit > 0 {
			q.maxAttempts = limit
		}
	}
}

// WithBackoff sets the delay before retry n, counting from 1.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(q *memoryQueue) {
		if backoff != nil {
			q.backoff = backoff
		}
	}
}

// ExponentialBackoff returns base, 2*base, 4*base and so on, capped at max
// when max is positive.
func ExponentialBackoff(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if base <= 0 || attempt <= 0 {
			return 0
		}
		delay := base
		for i := 1; i < attempt; i++ {
			if max > 0 && delay >= max {
				break
			}
			delay *= 2
		}
		if max > 0 && delay > max {
			return max
		}
		return delay
	}
}

type memoryQueue struct {
	mu          sync.Mutex
	now         func() time.Time
	newID       func() string
	backoff     func(int) time.Duration
	maxAttempts int
	jobs        map[string]*interfaces.Job
	// pending maps a job key to the id of its pending job.
	pending map[string]string
}

func (q *memoryQueue) Enqueue(_ context.Context, spec interfaces.JobSpec) (*interfaces.Job, error) {
	if spec.RunAt.IsZero() {
		return nil, ErrRunAtRequired
	}
	spec.Payload = maps.Clone(spec.Payload)
	if spec.MaxAttempts == 0 {
		spec.MaxAttempts = q.maxAttempts
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if spec.Key != "" {
		if superseded, ok := q.pending[spec.Key]; ok {
			delete(q.jobs, superseded)
		}
	}
	now := q.now()
	job := &interfaces.Job{
		JobSpec:   spec,
		ID:        q.newID(),
		Status:    interfaces.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.jobs[job.ID] = job
	if job.Key != "" {
		q.pending[job.Key] = job.ID
	}
	return snapshot(job), nil
}

func (q *memoryQueue) Get(_ context.Context, id string) (*interfaces.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return snapshot(job), nil
}

func (q *memoryQueue) GetByKey(_ context.Context, key string) (*interfaces.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id, ok := q.pending[key]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	job, ok := q.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return snapshot(job), nil
}

func (q *memoryQueue) ListDue(_ context.Context, until time.Time, limit int) ([]*interfaces.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*interfaces.Job
	for _, job := range q.jobs {
		if job.Status == interfaces.JobStatusPending && !job.RunAt.After(until) {
			due = append(due, snapshot(job))
		}
	}
	slices.SortStableFunc(due, func(a, b *interfaces.Job) int {
		if c := a.RunAt.Compare(b.RunAt); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (q *memoryQueue) Settle(_ context.Context, id string, outcome interfaces.JobOutcome, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	job.UpdatedAt = q.now()
	if outcome == interfaces.JobDone {
		job.Status = interfaces.JobStatusCompleted
		q.release(job)
		return nil
	}

	job.Attempt++
	job.LastError = ""
	if cause != nil {
		job.LastError = cause.Error()
	}
	switch outcome {
	case interfaces.JobAbandon:
		job.Status = interfaces.JobStatusAbandoned
		q.release(job)
	case interfaces.JobRetry:
		if job.MaxAttempts > 0 && job.Attempt >= job.MaxAttempts {
			job.Status = interfaces.JobStatusFailed
			q.release(job)
			return nil
		}
		job.RunAt = job.UpdatedAt.Add(q.backoff(job.Attempt))
	default:
		return fmt.Errorf("scheduler: unknown outcome %q", outcome)
	}
	return nil
}

// release frees the job key so a later enqueue starts a fresh job.
func (q *memoryQueue) release(job *interfaces.Job) {
	if job.Key != "" && q.pending[job.Key] == job.ID {
		delete(q.pending, job.Key)
	}
}

func snapshot(job *interfaces.Job) *interfaces.Job {
	clone := *job
	clone.Payload = maps.Clone(job.Payload)
	return &clone
}
