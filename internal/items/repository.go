package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/domain"
)

// Repository reads and writes content item rows. It holds no connection: every
// method runs against the bun.IDB it is given, usually the lifecycle transaction.
type Repository struct {
	now func() time.Time
	id  func() uuid.UUID
}

// RepositoryOption customises a Repository.
type RepositoryOption func(*Repository)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithIDGenerator overrides row id generation.
func WithIDGenerator(generator func() uuid.UUID) RepositoryOption {
	return func(r *Repository) {
		if generator != nil {
			r.id = generator
		}
	}
}

// NewRepository builds a repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		now: func() time.Time { return time.Now().UTC() },
		id:  uuid.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindDraft returns the draft for the content identity and locale, or nil.
func (r *Repository) FindDraft(ctx context.Context, db bun.IDB, contentID uuid.UUID, locale string) (*ContentItem, error) {
	return r.findOne(ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.content_id = ?", contentID).
			Where("?TableAlias.locale = ?", locale).
			Where("?TableAlias.state = ?", domain.StateDraft)
	})
}

// FindPublished returns the published item for the content identity and locale, or nil.
func (r *Repository) FindPublished(ctx context.Context, db bun.IDB, contentID uuid.UUID, locale string) (*ContentItem, error) {
	return r.findOne(ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.content_id = ?", contentID).
			Where("?TableAlias.locale = ?", locale).
			Where("?TableAlias.state = ?", domain.StatePublished)
	})
}

// FindLive returns the published item, falling back to the most recent unpublished one.
func (r *Repository) FindLive(ctx context.Context, db bun.IDB, contentID uuid.UUID, locale string) (*ContentItem, error) {
	published, err := r.FindPublished(ctx, db, contentID, locale)
	if err != nil || published != nil {
		return published, err
	}
	return r.findOne(ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.content_id = ?", contentID).
			Where("?TableAlias.locale = ?", locale).
			Where("?TableAlias.state = ?", domain.StateUnpublished).
			OrderExpr("?TableAlias.updated_at DESC")
	})
}

// FindAtPath returns the item in state at basePath and locale, whatever its content identity.
func (r *Repository) FindAtPath(ctx context.Context, db bun.IDB, basePath, locale string, state domain.State) (*ContentItem, error) {
	return r.findOne(ctx, db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.base_path = ?", basePath).
			Where("?TableAlias.locale = ?", locale).
			Where("?TableAlias.state = ?", state)
	})
}

// ListByContentID returns every row of a content identity, oldest first.
func (r *Repository) ListByContentID(ctx context.Context, db bun.IDB, contentID uuid.UUID) ([]*ContentItem, error) {
	var rows []*ContentItem
	err := db.NewSelect().
		Model(&rows).
		Where("?TableAlias.content_id = ?", contentID).
		OrderExpr("?TableAlias.locale ASC, ?TableAlias.user_facing_version ASC, ?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("items: list %s: %w", contentID, err)
	}
	return rows, nil
}

// Insert stores a new row, assigning id and timestamps when unset.
func (r *Repository) Insert(ctx context.Context, db bun.IDB, item *ContentItem) error {
	now := r.now()
	if item.ID == uuid.Nil {
		item.ID = r.id()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	normalizeCollections(item)
	if _, err := db.NewInsert().Model(item).Exec(ctx); err != nil {
		return fmt.Errorf("items: insert %s/%s: %w", item.ContentID, item.Locale, err)
	}
	return nil
}

// Update rewrites every column of an existing row.
func (r *Repository) Update(ctx context.Context, db bun.IDB, item *ContentItem) error {
	item.UpdatedAt = r.now()
	normalizeCollections(item)
	if _, err := db.NewUpdate().Model(item).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("items: update %s: %w", item.ID, err)
	}
	return nil
}

// SetState moves a row to another lifecycle state.
func (r *Repository) SetState(ctx context.Context, db bun.IDB, item *ContentItem, state domain.State) error {
	item.State = state
	item.UpdatedAt = r.now()
	_, err := db.NewUpdate().
		Model((*ContentItem)(nil)).
		Set("state = ?", state).
		Set("updated_at = ?", item.UpdatedAt).
		Where("id = ?", item.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("items: set state %s: %w", item.ID, err)
	}
	return nil
}

// Delete removes a row.
func (r *Repository) Delete(ctx context.Context, db bun.IDB, item *ContentItem) error {
	if _, err := db.NewDelete().Model((*ContentItem)(nil)).Where("id = ?", item.ID).Exec(ctx); err != nil {
		return fmt.Errorf("items: delete %s: %w", item.ID, err)
	}
	return nil
}

// InsertUnpublishing attaches an unpublishing record to a row.
func (r *Repository) InsertUnpublishing(ctx context.Context, db bun.IDB, record *Unpublishing) error {
	if record.ID == uuid.Nil {
		record.ID = r.id()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now()
	}
	if _, err := db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("items: insert unpublishing for %s: %w", record.ContentItemID, err)
	}
	return nil
}

// LatestUnpublishing returns the newest unpublishing record of a row, or nil.
func (r *Repository) LatestUnpublishing(ctx context.Context, db bun.IDB, itemID uuid.UUID) (*Unpublishing, error) {
	var record Unpublishing
	err := db.NewSelect().
		Model(&record).
		Where("?TableAlias.content_item_id = ?", itemID).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("items: load unpublishing for %s: %w", itemID, err)
	}
	return &record, nil
}

func (r *Repository) findOne(ctx context.Context, db bun.IDB, where func(*bun.SelectQuery) *bun.SelectQuery) (*ContentItem, error) {
	var item ContentItem
	err := where(db.NewSelect().Model(&item)).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("items: lookup: %w", err)
	}
	return &item, nil
}

func normalizeCollections(item *ContentItem) {
	if item.Details == nil {
		item.Details = map[string]any{}
	}
	if item.Routes == nil {
		item.Routes = []Route{}
	}
	if item.Redirects == nil {
		item.Redirects = []Redirect{}
	}
	if item.NeedIDs == nil {
		item.NeedIDs = []string{}
	}
}
