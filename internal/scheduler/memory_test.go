package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newQueue(c *clock, opts ...scheduler.Option) interfaces.Scheduler {
	return scheduler.NewInMemory(append([]scheduler.Option{scheduler.WithClock(c.Now)}, opts...)...)
}

func putSpec(basePath, body string, runAt time.Time) interfaces.JobSpec {
	return interfaces.JobSpec{
		Key:     scheduler.StoreJobKey("live", basePath),
		Type:    scheduler.JobTypeDownstreamPut,
		RunAt:   runAt,
		Payload: map[string]any{"target": "live", "base_path": basePath, "body": body},
	}
}

func TestEnqueueSupersedesPendingJobForSamePath(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	q := newQueue(c)

	first, err := q.Enqueue(ctx, putSpec("/vat-rates", `{"v":1}`, c.now))
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, putSpec("/vat-rates", `{"v":2}`, c.now))
	require.NoError(t, err)

	due, err := q.ListDue(ctx, c.now, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, second.ID, due[0].ID)
	assert.Equal(t, `{"v":2}`, due[0].Payload["body"])

	_, err = q.Get(ctx, first.ID)
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestEnqueueRequiresRunAt(t *testing.T) {
	q := newQueue(&clock{now: time.Now()})
	_, err := q.Enqueue(context.Background(), putSpec("/vat-rates", `{}`, time.Time{}))
	assert.ErrorIs(t, err, scheduler.ErrRunAtRequired)
}

func TestListDueOrdersByRunAtAndHonoursLimit(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	q := newQueue(c)

	_, _ = q.Enqueue(ctx, putSpec("/later", `{}`, c.now.Add(2*time.Minute)))
	_, _ = q.Enqueue(ctx, putSpec("/sooner", `{}`, c.now.Add(time.Minute)))
	_, _ = q.Enqueue(ctx, putSpec("/future", `{}`, c.now.Add(time.Hour)))

	due, err := q.ListDue(ctx, c.now.Add(5*time.Minute), 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "/sooner", due[0].Payload["base_path"])
	assert.Equal(t, "/later", due[1].Payload["base_path"])

	due, _ = q.ListDue(ctx, c.now.Add(5*time.Minute), 1)
	assert.Len(t, due, 1)
}

func TestSettleRetryBacksOffThenFails(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	q := newQueue(c,
		scheduler.WithDefaultMaxAttempts(2),
		scheduler.WithBackoff(scheduler.ExponentialBackoff(time.Second, time.Minute)),
	)

	job, err := q.Enqueue(ctx, putSpec("/vat-rates", `{}`, c.now))
	require.NoError(t, err)
	require.NoError(t, q.Settle(ctx, job.ID, interfaces.JobRetry, errors.New("503")))

	retried, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.JobStatusPending, retried.Status)
	assert.Equal(t, 1, retried.Attempt)
	assert.Equal(t, "503", retried.LastError)
	assert.Equal(t, c.now.Add(time.Second), retried.RunAt)

	require.NoError(t, q.Settle(ctx, job.ID, interfaces.JobRetry, errors.New("503")))
	failed, _ := q.Get(ctx, job.ID)
	assert.Equal(t, interfaces.JobStatusFailed, failed.Status)
	_, err = q.GetByKey(ctx, job.Key)
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestSettleAbandonAndDone(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	q := newQueue(c)

	rejected, _ := q.Enqueue(ctx, putSpec("/rejected", `{}`, c.now))
	require.NoError(t, q.Settle(ctx, rejected.ID, interfaces.JobAbandon, errors.New("422")))
	got, _ := q.Get(ctx, rejected.ID)
	assert.Equal(t, interfaces.JobStatusAbandoned, got.Status)

	sent, _ := q.Enqueue(ctx, putSpec("/sent", `{}`, c.now))
	require.NoError(t, q.Settle(ctx, sent.ID, interfaces.JobDone, nil))
	got, _ = q.Get(ctx, sent.ID)
	assert.Equal(t, interfaces.JobStatusCompleted, got.Status)
	assert.Zero(t, got.Attempt)

	due, _ := q.ListDue(ctx, c.now.Add(time.Hour), 0)
	assert.Empty(t, due)
	assert.ErrorIs(t, q.Settle(ctx, "missing", interfaces.JobDone, nil), interfaces.ErrJobNotFound)
}

func TestExponentialBackoffCaps(t *testing.T) {
	backoff := scheduler.ExponentialBackoff(time.Second, 5*time.Second)
	assert.Equal(t, time.Duration(0), backoff(0))
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
	assert.Equal(t, 5*time.Second, backoff(4))
	assert.Equal(t, 5*time.Second, backoff(10))
}

func TestNoOpDropsJobs(t *testing.T) {
	ctx := context.Background()
	q := scheduler.NewNoOp()
	job, err := q.Enqueue(ctx, putSpec("/vat-rates", `{}`, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, interfaces.JobStatusCompleted, job.Status)
	due, _ := q.ListDue(ctx, time.Now().Add(time.Hour), 0)
	assert.Empty(t, due)
}
