package items

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/domain"
)

// NewItemRepository exposes content item rows through go-repository-bun.
func NewItemRepository(db *bun.DB) repository.Repository[*ContentItem] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*ContentItem]{
		NewRecord: func() *ContentItem { return &ContentItem{} },
		GetID: func(c *ContentItem) uuid.UUID {
			return c.ID
		},
		SetID: func(c *ContentItem, id uuid.UUID) {
			c.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(c *ContentItem) string {
			return c.ID.String()
		},
	})
}

// History is the read model over every lifecycle row of a content identity.
// Retired rows (superseded, unpublished) never change, so single-row reads go
// through the cache; draft and published rows are always re-read.
type History struct {
	base   repository.Repository[*ContentItem]
	cached repository.Repository[*ContentItem]
}

// NewHistory builds the read model. A nil cache service disables caching.
func NewHistory(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *History {
	base := NewItemRepository(db)
	cached := base
	if cacheService != nil && keySerializer != nil {
		cached = repositorycache.New(base, cacheService, keySerializer)
	}
	return &History{base: base, cached: cached}
}

// List returns every row of the content identity for locale, oldest version first.
// An empty locale lists all locales.
func (h *History) List(ctx context.Context, contentID uuid.UUID, locale string) ([]*ContentItem, error) {
	records, _, err := h.base.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("?TableAlias.content_id = ?", contentID)
			if locale != "" {
				q = q.Where("?TableAlias.locale = ?", locale)
			}
			return q.OrderExpr("?TableAlias.user_facing_version ASC, ?TableAlias.created_at ASC")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("items: history %s: %w", contentID, err)
	}
	return records, nil
}

// Get returns one row by id.
func (h *History) Get(ctx context.Context, id uuid.UUID) (*ContentItem, error) {
	record, err := h.cached.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	if record.State == domain.StateDraft || record.State == domain.StatePublished {
		record, err = h.base.GetByID(ctx, id.String())
		if err != nil {
			return nil, mapRepositoryError(err, id.String())
		}
	}
	return record, nil
}

func mapRepositoryError(err error, key string) error {
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &domain.NotFoundError{Resource: "content_item", Key: key}
	}
	return fmt.Errorf("items: history repository error: %w", err)
}
