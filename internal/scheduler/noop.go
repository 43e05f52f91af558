package scheduler

import (
	"context"
	"time"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// NewNoOp returns a scheduler that accepts jobs and never runs them. It backs
// deployments with downstream propagation disabled.
func NewNoOp() interfaces.Scheduler {
	return discard{}
}

type discard struct{}

func (discard) Enqueue(_ context.Context, spec interfaces.JobSpec) (*interfaces.Job, error) {
	return &interfaces.Job{JobSpec: spec, Status: interfaces.JobStatusCompleted}, nil
}

func (discard) Get(context.Context, string) (*interfaces.Job, error) {
	return nil, interfaces.ErrJobNotFound
}

func (discard) GetByKey(context.Context, string) (*interfaces.Job, error) {
	return nil, interfaces.ErrJobNotFound
}

func (discard) ListDue(context.Context, time.Time, int) ([]*interfaces.Job, error) {
	return nil, nil
}

func (discard) Settle(context.Context, string, interfaces.JobOutcome, error) error {
	return interfaces.ErrJobNotFound
}
