package downstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

var (
	ErrSchedulerMissing = errors.New("downstream: scheduler is nil")
	// ErrDownstreamPermanent marks a delivery that will not be retried.
	ErrDownstreamPermanent = errors.New("downstream: permanent failure")
	ErrUnknownTarget       = errors.New("downstream: no store configured for target")
	ErrBusMissing          = errors.New("downstream: message bus is nil")
)

// Worker drains due downstream jobs and applies them to content stores and
// the message bus.
type Worker struct {
	scheduler interfaces.Scheduler
	stores    map[Target]interfaces.ContentStore
	bus       interfaces.MessageBus
	failures  FailureLog
	logger    interfaces.Logger
	now       func() time.Time
	batchSize int
}

// Option customises a Worker.
type Option func(*Worker)

// WithStore registers the store backing target.
func WithStore(target Target, store interfaces.ContentStore) Option {
	return func(w *Worker) {
		if store != nil {
			w.stores[target] = store
		}
	}
}

// WithMessageBus registers the bus used by message jobs.
func WithMessageBus(bus interfaces.MessageBus) Option {
	return func(w *Worker) {
		w.bus = bus
	}
}

// WithFailureLog records deliveries the worker gives up on.
func WithFailureLog(log FailureLog) Option {
	return func(w *Worker) {
		w.failures = log
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func NewWorker(sched interfaces.Scheduler, opts ...Option) *Worker {
	w := &Worker{
		scheduler: sched,
		stores:    make(map[Target]interfaces.ContentStore),
		logger:    logging.NoOp(),
		now:       time.Now,
		batchSize: 50,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process runs every job due now, once.
func (w *Worker) Process(ctx context.Context) error {
	if w.scheduler == nil {
		return ErrSchedulerMissing
	}
	deadline := w.now()
	jobs, err := w.scheduler.ListDue(ctx, deadline, w.batchSize)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		w.settle(ctx, job, w.handleJob(ctx, job))
	}
	return nil
}

// Run calls Process every interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := w.Process(ctx); err != nil {
			w.logger.Error("downstream.process.failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) handleJob(ctx context.Context, job *interfaces.Job) error {
	switch job.Type {
	case scheduler.JobTypeDownstreamPut:
		store, err := w.store(job)
		if err != nil {
			return err
		}
		return store.PutItem(ctx, payloadString(job, "base_path"), []byte(payloadString(job, "body")))
	case scheduler.JobTypeDownstreamDelete:
		store, err := w.store(job)
		if err != nil {
			return err
		}
		err = store.DeleteItem(ctx, payloadString(job, "base_path"))
		if errors.Is(err, interfaces.ErrStoreNotFound) {
			return nil
		}
		return err
	case scheduler.JobTypeDownstreamMessage:
		if w.bus == nil {
			return interfaces.PermanentError("message-bus", 0, ErrBusMissing)
		}
		return w.bus.SendMessage(ctx, payloadString(job, "routing_key"), []byte(payloadString(job, "body")))
	default:
		return nil
	}
}

func (w *Worker) store(job *interfaces.Job) (interfaces.ContentStore, error) {
	target := Target(payloadString(job, "target"))
	store, ok := w.stores[target]
	if !ok {
		return nil, interfaces.PermanentError(string(target), 0, ErrUnknownTarget)
	}
	return store, nil
}

func (w *Worker) settle(ctx context.Context, job *interfaces.Job, err error) {
	logger := logging.WithFields(w.logger, map[string]any{
		"job_id":    job.ID,
		"job_type":  job.Type,
		"target":    payloadString(job, "target"),
		"base_path": payloadString(job, "base_path"),
		"attempt":   job.Attempt + 1,
	})

	switch {
	case err == nil:
		_ = w.scheduler.Settle(ctx, job.ID, interfaces.JobDone, nil)
		logger.Debug("downstream.job.done")
	case suppressed(job, err):
		// The draft stack rejects pushes while it is being rebuilt.
		logger.Warn("downstream.job.suppressed", "error", err)
		_ = w.scheduler.Settle(ctx, job.ID, interfaces.JobDone, err)
	case interfaces.StatusOf(err) == http.StatusConflict:
		// The store already holds a newer payload version.
		logger.Info("downstream.job.stale", "error", err)
		_ = w.scheduler.Settle(ctx, job.ID, interfaces.JobDone, err)
	case !interfaces.IsTransient(err):
		logger.Error("downstream.job.abandoned", "error", err)
		_ = w.scheduler.Settle(ctx, job.ID, interfaces.JobAbandon, err)
		w.recordFailure(ctx, job, FailureRejected, err)
	case job.MaxAttempts > 0 && job.Attempt+1 >= job.MaxAttempts:
		failure := fmt.Errorf("%w: %w", ErrDownstreamPermanent, err)
		logger.Error("downstream.job.exhausted", "error", failure)
		_ = w.scheduler.Settle(ctx, job.ID, interfaces.JobRetry, failure)
		w.recordFailure(ctx, job, FailureExhausted, failure)
	default:
		logger.Warn("downstream.job.retry", "error", err)
		_ = w.scheduler.Settle(ctx, job.ID, interfaces.JobRetry, err)
	}
}

func suppressed(job *interfaces.Job, err error) bool {
	return Target(payloadString(job, "target")) == TargetDraft &&
		interfaces.StatusOf(err) == http.StatusBadGateway
}

func (w *Worker) recordFailure(ctx context.Context, job *interfaces.Job, reason FailureReason, err error) {
	if w.failures == nil {
		return
	}
	failure := Failure{
		JobID:      job.ID,
		Kind:       job.Type,
		Target:     Target(payloadString(job, "target")),
		BasePath:   payloadString(job, "base_path"),
		RoutingKey: payloadString(job, "routing_key"),
		Reason:     reason,
		Attempts:   job.Attempt + 1,
		Status:     interfaces.StatusOf(err),
		FailedAt:   w.now(),
	}
	if err != nil {
		failure.Error = err.Error()
	}
	if version, parseErr := strconv.ParseInt(payloadString(job, "payload_version"), 10, 64); parseErr == nil {
		failure.PayloadVersion = version
	}
	if recordErr := w.failures.Record(ctx, failure); recordErr != nil {
		w.logger.Warn("downstream.failure_log.record_failed", "job_id", job.ID, "error", recordErr)
	}
}

func payloadString(job *interfaces.Job, key string) string {
	if job == nil || job.Payload == nil {
		return ""
	}
	value, _ := job.Payload[key].(string)
	return value
}
