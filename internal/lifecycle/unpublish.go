package lifecycle

import (
	"context"
	"strings"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/paths"
	"github.com/goliatone/go-publishing/internal/versions"
)

const unpublishRoutingSuffix = "unpublish"

func (s *service) Unpublish(ctx context.Context, req UnpublishRequest) (*Representation, error) {
	req.Locale = normalizeLocale(req.Locale)
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), req.ContentID.String(), req.Locale, "unpublish")

	var out *Representation
	err := s.run(ctx, nil, "Unpublish", req.ContentID, req.PublishingApp, map[string]any{
		"locale":           req.Locale,
		"type":             req.Type,
		"explanation":      req.Explanation,
		"alternative_path": req.AlternativePath,
		"discard_drafts":   req.DiscardDrafts,
		"previous_version": req.PreviousVersion,
	}, func(sc *Scope) error {
		rep, err := s.unpublish(ctx, sc, req)
		out = rep
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.unpublish.rejected", "error", err)
		return nil, err
	}
	logger.Info("lifecycle.unpublish.success", "type", req.Type)
	return out, nil
}

func (s *service) unpublish(ctx context.Context, sc *Scope, req UnpublishRequest) (*Representation, error) {
	locale := normalizeLocale(req.Locale)
	db := sc.DB()
	ref := versions.ContentRef(req.ContentID, locale)

	live, err := s.items.FindLive(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	if live == nil {
		return nil, notFound("content item", req.ContentID.String()+"/"+locale)
	}
	if strings.TrimSpace(live.BasePath) == "" {
		return nil, noLocation()
	}
	if err := s.ledger.Check(ctx, db, ref, req.PreviousVersion); err != nil {
		return nil, err
	}
	draft, err := s.items.FindDraft(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	if draft != nil && !req.DiscardDrafts {
		return nil, draftPresent()
	}

	kind, err := validateUnpublishing(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.CheckAndIncrement(ctx, db, ref, req.PreviousVersion); err != nil {
		return nil, err
	}
	if draft != nil {
		discard := DiscardDraftRequest{ContentID: req.ContentID, Locale: locale, PublishingApp: req.PublishingApp}
		if _, err := s.discardDraft(ctx, sc, discard, false); err != nil {
			return nil, err
		}
	}

	if err := s.retire(ctx, sc, live, kind, strings.TrimSpace(req.Explanation), strings.TrimSpace(req.AlternativePath)); err != nil {
		return nil, err
	}
	if !s.policy.protectedApp(live.PublishingApp) {
		if err := s.links.Delete(ctx, db, live.ContentID); err != nil {
			return nil, err
		}
	}

	// Stores get the gone or redirect document; the caller gets the item
	// with its publication state and unpublishing.
	stored, err := s.liveRepresentation(ctx, db, live)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(sc, stored, downstream.TargetLive, downstream.TargetDraft)
	s.messageAfterCommit(sc, stored, unpublishRoutingSuffix)
	return s.represent(ctx, db, live)
}

func validateUnpublishing(req UnpublishRequest) (domain.UnpublishingType, error) {
	kind, ok := domain.ParseUnpublishingType(req.Type)
	if !ok {
		return "", invalidUnpublishType(req.Type)
	}
	explanation := strings.TrimSpace(req.Explanation)
	alternative := strings.TrimSpace(req.AlternativePath)

	errs := domain.NewValidationError()
	switch kind {
	case domain.UnpublishWithdrawal:
		if explanation == "" {
			errs.Add("explanation", "is required for a withdrawal")
		}
	case domain.UnpublishRedirect:
		if alternative == "" {
			errs.Add("alternative_path", "is required for a redirect")
		} else if !paths.ValidAbsolutePath(alternative) {
			errs.Add("alternative_path", "is not a valid absolute URL path")
		}
	case domain.UnpublishGone:
		if alternative != "" && !paths.ValidAbsolutePath(alternative) {
			errs.Add("alternative_path", "is not a valid absolute URL path")
		}
	}
	return kind, errs.OrNil()
}
