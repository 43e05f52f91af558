package downstream

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// Target names a content store replica.
type Target string

const (
	TargetDraft   Target = "draft"
	TargetLive    Target = "live"
	TargetArchive Target = "archive"
)

// Push describes one representation (or removal) for a set of stores.
type Push struct {
	Targets        []Target
	BasePath       string
	Body           []byte
	Delete         bool
	PayloadVersion int64
}

// Message is a notification for the message bus.
type Message struct {
	RoutingKey string
	EventID    int64
	ContentID  string
	Locale     string
	BasePath   string
	Body       []byte
}

var ErrNoTargets = errors.New("downstream: push has no targets")

// Propagator turns committed changes into scheduler jobs. It never talks to a
// store directly; the Worker drains the queue.
type Propagator struct {
	scheduler   interfaces.Scheduler
	now         func() time.Time
	maxAttempts int
	archive     bool
}

// PropagatorOption customises a Propagator.
type PropagatorOption func(*Propagator)

// WithPropagatorClock overrides the job RunAt source.
func WithPropagatorClock(clock func() time.Time) PropagatorOption {
	return func(p *Propagator) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithMaxAttempts caps retries of each enqueued job.
func WithMaxAttempts(limit int) PropagatorOption {
	return func(p *Propagator) {
		if limit > 0 {
			p.maxAttempts = limit
		}
	}
}

// WithArchive mirrors every live store write into the archive store.
func WithArchive(enabled bool) PropagatorOption {
	return func(p *Propagator) {
		p.archive = enabled
	}
}

// NewPropagator builds a propagator enqueuing onto sched.
func NewPropagator(sched interfaces.Scheduler, opts ...PropagatorOption) *Propagator {
	p := &Propagator{
		scheduler: sched,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push enqueues one job per target. Jobs are keyed by target and path, so a
// pending older push to the same place is replaced.
func (p *Propagator) Push(ctx context.Context, push Push) error {
	if len(push.Targets) == 0 {
		return ErrNoTargets
	}
	targets := push.Targets
	if p.archive && containsTarget(targets, TargetLive) && !containsTarget(targets, TargetArchive) {
		targets = append(append([]Target{}, targets...), TargetArchive)
	}

	jobType := scheduler.JobTypeDownstreamPut
	if push.Delete {
		jobType = scheduler.JobTypeDownstreamDelete
	}

	var errs []error
	for _, target := range targets {
		payload := map[string]any{
			"target":          string(target),
			"base_path":       push.BasePath,
			"payload_version": strconv.FormatInt(push.PayloadVersion, 10),
		}
		if !push.Delete {
			payload["body"] = string(push.Body)
		}
		_, err := p.scheduler.Enqueue(ctx, interfaces.JobSpec{
			Key:         scheduler.StoreJobKey(string(target), push.BasePath),
			Type:        jobType,
			RunAt:       p.now(),
			Payload:     payload,
			MaxAttempts: p.maxAttempts,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Message enqueues a bus notification keyed by its event and edition.
func (p *Propagator) Message(ctx context.Context, msg Message) error {
	_, err := p.scheduler.Enqueue(ctx, interfaces.JobSpec{
		Key:   scheduler.MessageJobKey(msg.EventID, msg.ContentID, msg.Locale, msg.BasePath),
		Type:  scheduler.JobTypeDownstreamMessage,
		RunAt: p.now(),
		Payload: map[string]any{
			"routing_key": msg.RoutingKey,
			"content_id":  msg.ContentID,
			"locale":      msg.Locale,
			"base_path":   msg.BasePath,
			"event_id":    strconv.FormatInt(msg.EventID, 10),
			"body":        string(msg.Body),
		},
		MaxAttempts: p.maxAttempts,
	})
	return err
}

func containsTarget(targets []Target, want Target) bool {
	for _, target := range targets {
		if target == want {
			return true
		}
	}
	return false
}
