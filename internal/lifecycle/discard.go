package lifecycle

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/versions"
)

func (s *service) DiscardDraft(ctx context.Context, req DiscardDraftRequest) (*Representation, error) {
	req.Locale = normalizeLocale(req.Locale)
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), req.ContentID.String(), req.Locale, "discard_draft")

	var out *Representation
	err := s.run(ctx, nil, "DiscardDraft", req.ContentID, req.PublishingApp, map[string]any{
		"locale":           req.Locale,
		"previous_version": req.PreviousVersion,
	}, func(sc *Scope) error {
		rep, err := s.discardDraft(ctx, sc, req, true)
		out = rep
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.discard_draft.rejected", "error", err)
		return nil, err
	}
	logger.Info("lifecycle.discard_draft.success")
	return out, nil
}

// discardDraft removes the locale's draft. When versioned is false the caller
// owns the version check, as Unpublish does for its nested discard.
func (s *service) discardDraft(ctx context.Context, sc *Scope, req DiscardDraftRequest, versioned bool) (*Representation, error) {
	locale := normalizeLocale(req.Locale)
	db := sc.DB()
	ref := versions.ContentRef(req.ContentID, locale)

	if versioned {
		if err := s.ledger.Check(ctx, db, ref, req.PreviousVersion); err != nil {
			return nil, err
		}
	}
	draft, err := s.items.FindDraft(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	live, err := s.items.FindLive(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		if live != nil {
			return nil, noDraftToDiscard()
		}
		return nil, notFound("draft", req.ContentID.String()+"/"+locale)
	}

	if versioned {
		if _, err := s.ledger.CheckAndIncrement(ctx, db, ref, req.PreviousVersion); err != nil {
			return nil, err
		}
	}
	if err := s.items.Delete(ctx, db, draft); err != nil {
		return nil, err
	}

	restoredLivePath := false
	if live != nil && live.State == domain.StatePublished && live.BasePath != draft.BasePath {
		removed, err := s.discardRedirectDraft(ctx, sc, live.BasePath, draft)
		if err != nil {
			return nil, err
		}
		restoredLivePath = removed
	}

	if live == nil {
		s.deleteAfterCommit(sc, draft.BasePath, downstream.TargetDraft)
		return nil, nil
	}
	rep, err := s.liveRepresentation(ctx, db, live)
	if err != nil {
		return nil, err
	}
	switch {
	case live.BasePath == draft.BasePath:
		s.pushAfterCommit(sc, rep, downstream.TargetDraft)
	default:
		s.deleteAfterCommit(sc, draft.BasePath, downstream.TargetDraft)
		if restoredLivePath {
			s.pushAfterCommit(sc, rep, downstream.TargetDraft)
		}
	}
	return rep, nil
}

// discardRedirectDraft deletes the redirect draft a path move left at livePath
// when it still points at the discarded draft.
func (s *service) discardRedirectDraft(ctx context.Context, sc *Scope, livePath string, draft *items.ContentItem) (bool, error) {
	redirect, err := s.items.FindAtPath(ctx, sc.DB(), livePath, draft.Locale, domain.StateDraft)
	if err != nil || redirect == nil || redirect.Format != domain.FormatRedirect {
		return false, err
	}
	owned := false
	for _, entry := range redirect.Redirects {
		if entry.Destination == draft.BasePath {
			owned = true
			break
		}
	}
	if !owned {
		return false, nil
	}
	if err := s.items.Delete(ctx, sc.DB(), redirect); err != nil {
		return false, err
	}
	return true, nil
}

// liveRepresentation is what the content stores should hold for a live item:
// the item itself while published, or what its latest unpublishing left behind.
func (s *service) liveRepresentation(ctx context.Context, db bun.IDB, item *items.ContentItem) (*Representation, error) {
	if item.State != domain.StateUnpublished {
		return s.represent(ctx, db, item)
	}
	record, err := s.items.LatestUnpublishing(ctx, db, item.ID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return s.represent(ctx, db, item)
	}
	switch record.Type {
	case domain.UnpublishRedirect:
		return presentRedirect(item, record.AlternativePath, record.CreatedAt), nil
	case domain.UnpublishGone:
		return presentGone(item, record.Explanation, record.AlternativePath, record.CreatedAt), nil
	default:
		return s.represent(ctx, db, item)
	}
}
