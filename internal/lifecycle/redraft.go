package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/versions"
)

func (s *service) Redraft(ctx context.Context, req RedraftRequest) (*Representation, error) {
	req.Locale = normalizeLocale(req.Locale)
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), req.ContentID.String(), req.Locale, "redraft")

	var out *Representation
	err := s.run(ctx, nil, "Redraft", req.ContentID, req.PublishingApp, map[string]any{
		"locale": req.Locale,
	}, func(sc *Scope) error {
		rep, err := s.redraft(ctx, sc, req)
		out = rep
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.redraft.rejected", "error", err)
		return nil, err
	}
	logger.Info("lifecycle.redraft.success", "user_facing_version", out.UserFacingVersion)
	return out, nil
}

// redraft opens a draft copy of the published item. An existing draft is
// returned untouched.
func (s *service) redraft(ctx context.Context, sc *Scope, req RedraftRequest) (*Representation, error) {
	locale := normalizeLocale(req.Locale)
	db := sc.DB()

	published, err := s.items.FindPublished(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	if published == nil {
		return nil, notFound("published content item", req.ContentID.String()+"/"+locale)
	}
	draft, err := s.items.FindDraft(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	if draft != nil {
		return s.represent(ctx, db, draft)
	}

	if _, err := s.ledger.CheckAndIncrement(ctx, db, versions.ContentRef(req.ContentID, locale), nil); err != nil {
		return nil, err
	}
	copied := published.Clone()
	copied.ID = uuid.Nil
	copied.State = domain.StateDraft
	copied.UserFacingVersion = published.UserFacingVersion + 1
	copied.UpdateType = ""
	copied.PublicUpdatedAt = nil
	copied.CreatedAt = time.Time{}
	if err := s.items.Insert(ctx, db, copied); err != nil {
		return nil, err
	}

	rep, err := s.represent(ctx, db, copied)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(sc, rep, downstream.TargetDraft)
	return rep, nil
}
