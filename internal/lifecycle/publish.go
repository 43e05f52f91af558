package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/versions"
)

func (s *service) Publish(ctx context.Context, req PublishRequest) (*Representation, error) {
	req.Locale = normalizeLocale(req.Locale)
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), req.ContentID.String(), req.Locale, "publish")

	var out *Representation
	err := s.run(ctx, nil, "Publish", req.ContentID, req.PublishingApp, map[string]any{
		"locale":           req.Locale,
		"update_type":      req.UpdateType,
		"previous_version": req.PreviousVersion,
	}, func(sc *Scope) error {
		rep, err := s.publish(ctx, sc, req)
		out = rep
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.publish.rejected", "error", err)
		return nil, err
	}
	logger.Info("lifecycle.publish.success", "lock_version", out.LockVersion, "user_facing_version", out.UserFacingVersion)
	return out, nil
}

func (s *service) publish(ctx context.Context, sc *Scope, req PublishRequest) (*Representation, error) {
	locale := normalizeLocale(req.Locale)
	db := sc.DB()
	ref := versions.ContentRef(req.ContentID, locale)

	// The version check comes first so a replayed publish conflicts instead of
	// reporting the draft it already consumed as missing.
	if err := s.ledger.Check(ctx, db, ref, req.PreviousVersion); err != nil {
		return nil, err
	}
	draft, err := s.items.FindDraft(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, notFound("draft", req.ContentID.String()+"/"+locale)
	}

	updateType := req.UpdateType
	if updateType == "" {
		updateType = draft.UpdateType
	}
	switch {
	case updateType == "":
		return nil, fieldError("update_type", "is required")
	case !domain.ValidUpdateType(updateType):
		return nil, fieldError("update_type", "must be one of major, minor, republish, links")
	}

	previous, err := s.items.FindPublished(ctx, db, req.ContentID, locale)
	if err != nil {
		return nil, err
	}
	occupant, err := s.publishedOccupant(ctx, sc, draft)
	if err != nil {
		return nil, err
	}
	if _, err := s.paths.Reserve(ctx, db, draft.BasePath, draft.PublishingApp); err != nil {
		return nil, err
	}

	if _, err := s.ledger.CheckAndIncrement(ctx, db, ref, req.PreviousVersion); err != nil {
		return nil, err
	}

	now := s.now()
	movedFrom := ""
	if previous != nil {
		if previous.BasePath == draft.BasePath {
			err = s.items.SetState(ctx, db, previous, domain.StateSuperseded)
		} else {
			movedFrom = previous.BasePath
			err = s.retire(ctx, sc, previous, domain.UnpublishRedirect, "", draft.BasePath)
		}
		if err != nil {
			return nil, err
		}
	}
	if occupant != nil {
		if err := s.substitute(ctx, sc, occupant, draft); err != nil {
			return nil, err
		}
	}

	draft.State = domain.StatePublished
	draft.UpdateType = updateType
	stampPublication(draft, previous, updateType, now)
	if err := s.items.Update(ctx, db, draft); err != nil {
		return nil, err
	}

	rep, err := s.represent(ctx, db, draft)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(sc, rep, downstream.TargetLive, downstream.TargetDraft)
	s.messageAfterCommit(sc, rep, updateType)

	if movedFrom != "" {
		placed, err := s.publishRedirect(ctx, sc, movedFrom, draft, now)
		if err != nil {
			return nil, err
		}
		if !placed {
			s.pushAfterCommit(sc, presentRedirect(previous, draft.BasePath, now), downstream.TargetLive)
		}
	}
	return rep, nil
}

// publishedOccupant returns the published item of another identity at the
// draft's base path. Replacing it is only allowed when either side is not rendered.
func (s *service) publishedOccupant(ctx context.Context, sc *Scope, draft *items.ContentItem) (*items.ContentItem, error) {
	occupant, err := s.items.FindAtPath(ctx, sc.DB(), draft.BasePath, draft.Locale, domain.StatePublished)
	if err != nil || occupant == nil || occupant.ContentID == draft.ContentID {
		return nil, err
	}
	if occupant.Renderable() && draft.Renderable() {
		return nil, fieldError("base_path", fmt.Sprintf(
			"conflicts with content_id=%s and locale=%s", occupant.ContentID, occupant.Locale))
	}
	return occupant, nil
}

// substitute takes occupant off the live stack in favour of replacement.
func (s *service) substitute(ctx context.Context, sc *Scope, occupant, replacement *items.ContentItem) error {
	switch replacement.Format {
	case domain.FormatRedirect:
		destination := ""
		if len(replacement.Redirects) > 0 {
			destination = replacement.Redirects[0].Destination
		}
		return s.retire(ctx, sc, occupant, domain.UnpublishRedirect, "", destination)
	case domain.FormatGone:
		return s.retire(ctx, sc, occupant, domain.UnpublishGone, "", "")
	default:
		return s.items.SetState(ctx, sc.DB(), occupant, domain.StateSuperseded)
	}
}

// retire moves item to unpublished and records why.
func (s *service) retire(ctx context.Context, sc *Scope, item *items.ContentItem, kind domain.UnpublishingType, explanation, alternativePath string) error {
	if item.State != domain.StateUnpublished {
		if err := s.items.SetState(ctx, sc.DB(), item, domain.StateUnpublished); err != nil {
			return err
		}
	}
	return s.items.InsertUnpublishing(ctx, sc.DB(), &items.Unpublishing{
		ContentItemID:   item.ID,
		Type:            kind,
		Explanation:     explanation,
		AlternativePath: alternativePath,
	})
}

// publishRedirect publishes the redirect left at oldPath by a path move. It
// reports false when another identity's draft holds oldPath.
func (s *service) publishRedirect(ctx context.Context, sc *Scope, oldPath string, target *items.ContentItem, now time.Time) (bool, error) {
	db := sc.DB()
	redirect, err := s.ensureRedirectDraft(ctx, sc, oldPath, target)
	if err != nil || redirect == nil {
		return false, err
	}
	// ensureRedirectDraft already counted this write against the redirect.
	previous, err := s.items.FindPublished(ctx, db, redirect.ContentID, redirect.Locale)
	if err != nil {
		return false, err
	}
	if previous != nil {
		if err := s.items.SetState(ctx, db, previous, domain.StateSuperseded); err != nil {
			return false, err
		}
	}

	redirect.State = domain.StatePublished
	redirect.UpdateType = string(domain.UpdateMajor)
	stampPublication(redirect, previous, redirect.UpdateType, now)
	if err := s.items.Update(ctx, db, redirect); err != nil {
		return false, err
	}

	rep, err := s.represent(ctx, db, redirect)
	if err != nil {
		return false, err
	}
	s.pushAfterCommit(sc, rep, downstream.TargetLive, downstream.TargetDraft)
	s.messageAfterCommit(sc, rep, redirect.UpdateType)
	return true, nil
}

func stampPublication(item, previous *items.ContentItem, updateType string, now time.Time) {
	if item.FirstPublishedAt == nil {
		ts := now
		item.FirstPublishedAt = &ts
	}
	if item.PublicUpdatedAt != nil {
		return
	}
	if updateType != string(domain.UpdateMajor) && previous != nil && previous.PublicUpdatedAt != nil {
		ts := *previous.PublicUpdatedAt
		item.PublicUpdatedAt = &ts
		return
	}
	ts := now
	item.PublicUpdatedAt = &ts
}
