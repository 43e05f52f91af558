package lifecycle

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/paths"
)

func (s *service) GetContent(ctx context.Context, req GetContentRequest) (*Representation, error) {
	if s.db == nil {
		return nil, ErrServiceNotConfigured
	}
	locale := normalizeLocale(req.Locale)
	if !req.Live {
		draft, err := s.items.FindDraft(ctx, s.db, req.ContentID, locale)
		if err != nil {
			return nil, err
		}
		if draft != nil {
			return s.represent(ctx, s.db, draft)
		}
	}
	live, err := s.items.FindLive(ctx, s.db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	if live == nil {
		return nil, notFound("content item", req.ContentID.String()+"/"+locale)
	}
	return s.represent(ctx, s.db, live)
}

func (s *service) GetLinkSet(ctx context.Context, contentID uuid.UUID) (*LinkSetView, error) {
	if s.db == nil {
		return nil, ErrServiceNotConfigured
	}
	set, version, err := s.links.Get(ctx, s.db, contentID)
	if err != nil {
		return nil, err
	}
	if version == 0 && len(set) == 0 {
		return nil, notFound("link set", contentID.String())
	}
	return &LinkSetView{ContentID: contentID, Links: set.Strings(), Version: version}, nil
}

// History lists every row of the identity, oldest version first. An empty
// locale lists all locales.
func (s *service) History(ctx context.Context, contentID uuid.UUID, locale string) ([]*items.ContentItem, error) {
	if s.history != nil {
		return s.history.List(ctx, contentID, locale)
	}
	if s.db == nil {
		return nil, ErrServiceNotConfigured
	}
	rows, err := s.items.ListByContentID(ctx, s.db, contentID)
	if err != nil {
		return nil, err
	}
	if locale == "" {
		return rows, nil
	}
	out := make([]*items.ContentItem, 0, len(rows))
	for _, row := range rows {
		if row.Locale == locale {
			out = append(out, row)
		}
	}
	return out, nil
}

// HistoryItem returns one row of the identity's history. Retired rows are
// served from the history cache when one is configured.
func (s *service) HistoryItem(ctx context.Context, contentID, itemID uuid.UUID) (*items.ContentItem, error) {
	var (
		row *items.ContentItem
		err error
	)
	if s.history != nil {
		row, err = s.history.Get(ctx, itemID)
	} else {
		row, err = s.findRow(ctx, contentID, itemID)
	}
	if err != nil {
		return nil, err
	}
	if row == nil || row.ContentID != contentID {
		return nil, notFound("content item", contentID.String()+"/"+itemID.String())
	}
	return row, nil
}

func (s *service) findRow(ctx context.Context, contentID, itemID uuid.UUID) (*items.ContentItem, error) {
	if s.db == nil {
		return nil, ErrServiceNotConfigured
	}
	rows, err := s.items.ListByContentID(ctx, s.db, contentID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.ID == itemID {
			return row, nil
		}
	}
	return nil, nil
}

// PathOwner returns the publishing app holding basePath.
func (s *service) PathOwner(ctx context.Context, basePath string) (string, error) {
	if s.db == nil {
		return "", ErrServiceNotConfigured
	}
	basePath = strings.TrimSpace(basePath)
	if !paths.ValidAbsolutePath(basePath) {
		return "", paths.ErrInvalidPath
	}
	owner, err := s.paths.Owner(ctx, s.db, basePath)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", notFound("path reservation", basePath)
	}
	return owner, nil
}
