package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Event is the append-only log of accepted commands. Its id doubles as the
// payload version sent downstream, so replicas can drop out-of-order pushes.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:ev"`

	ID            int64          `bun:",pk,autoincrement" json:"id"`
	Action        string         `bun:"action,notnull" json:"action"`
	ContentID     *uuid.UUID     `bun:"content_id,type:uuid" json:"content_id,omitempty"`
	PublishingApp string         `bun:"publishing_app" json:"publishing_app,omitempty"`
	Payload       map[string]any `bun:"payload,type:jsonb" json:"payload"`
	CreatedAt     time.Time      `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Log appends events inside the caller's transaction.
type Log struct {
	now func() time.Time
}

// NewLog builds a log using clock, or time.Now when nil.
func NewLog(clock func() time.Time) *Log {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Log{now: clock}
}

// Append stores the event and fills its id.
func (l *Log) Append(ctx context.Context, db bun.IDB, event *Event) error {
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	event.CreatedAt = l.now()
	if _, err := db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("events: append %s: %w", event.Action, err)
	}
	return nil
}

// List returns the events of a content identity, oldest first.
func (l *Log) List(ctx context.Context, db bun.IDB, contentID uuid.UUID) ([]Event, error) {
	var out []Event
	err := db.NewSelect().
		Model(&out).
		Where("?TableAlias.content_id = ?", contentID).
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("events: list %s: %w", contentID, err)
	}
	return out, nil
}
