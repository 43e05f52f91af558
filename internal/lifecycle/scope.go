package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/events"
)

// Scope is the unit of work shared by a command and every command it nests.
// Side effects registered with AfterCommit run once, in order, after the
// outermost command commits; a rollback drops them.
type Scope struct {
	db          bun.IDB
	event       *events.Event
	afterCommit []func(context.Context)
}

// DB returns the transaction handle.
func (s *Scope) DB() bun.IDB {
	return s.db
}

// EventID is the payload version of the outermost command.
func (s *Scope) EventID() int64 {
	if s.event == nil {
		return 0
	}
	return s.event.ID
}

// AfterCommit queues fn to run once the outermost transaction commits.
func (s *Scope) AfterCommit(fn func(context.Context)) {
	if fn != nil {
		s.afterCommit = append(s.afterCommit, fn)
	}
}

func (s *Scope) flush(ctx context.Context) {
	callbacks := s.afterCommit
	s.afterCommit = nil
	for _, fn := range callbacks {
		fn(ctx)
	}
}

// run executes fn inside parent when nested, otherwise inside a new transaction
// whose first write is the command's event.
func (s *service) run(ctx context.Context, parent *Scope, action string, contentID uuid.UUID, app string, payload map[string]any, fn func(*Scope) error) error {
	if parent != nil {
		return fn(parent)
	}
	if s.db == nil {
		return ErrServiceNotConfigured
	}

	scope := &Scope{}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		scope.db = tx
		event := &events.Event{
			Action:        action,
			PublishingApp: app,
			Payload:       payload,
		}
		if contentID != uuid.Nil {
			id := contentID
			event.ContentID = &id
		}
		if err := s.events.Append(ctx, tx, event); err != nil {
			return err
		}
		scope.event = event
		return fn(scope)
	})
	if err != nil {
		return err
	}
	scope.flush(context.WithoutCancel(ctx))
	return nil
}
