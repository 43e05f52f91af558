package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/versions"
)

func (s *service) PutContent(ctx context.Context, req PutContentRequest) (*Representation, error) {
	req.Attributes = withPublishingApp(req.Attributes, req.PublishingApp)
	attrs := req.Attributes
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), attrs.ContentID.String(), attrs.Locale, "put_content")

	var out *Representation
	err := s.run(ctx, nil, "PutContent", attrs.ContentID, attrs.PublishingApp, map[string]any{
		"base_path":        attrs.BasePath,
		"locale":           attrs.Locale,
		"format":           attrs.Format,
		"previous_version": req.PreviousVersion,
	}, func(sc *Scope) error {
		rep, err := s.putContent(ctx, sc, req)
		out = rep
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.put_content.rejected", "error", err)
		return nil, err
	}
	logger.Info("lifecycle.put_content.success", "lock_version", out.LockVersion, "base_path", out.BasePath)
	return out, nil
}

func (s *service) putContent(ctx context.Context, sc *Scope, req PutContentRequest) (*Representation, error) {
	attrs := withPublishingApp(req.Attributes, req.PublishingApp)
	if err := items.Validate(attrs, s.policy.SupportedLocale); err != nil {
		return nil, err
	}

	db := sc.DB()
	ref := versions.ContentRef(attrs.ContentID, attrs.Locale)
	if err := s.ledger.Check(ctx, db, ref, req.PreviousVersion); err != nil {
		return nil, err
	}

	draft, err := s.items.FindDraft(ctx, db, attrs.ContentID, attrs.Locale)
	if err != nil {
		return nil, err
	}
	live, err := s.items.FindLive(ctx, db, attrs.ContentID, attrs.Locale)
	if err != nil {
		return nil, err
	}
	var published *items.ContentItem
	if live != nil && live.State == domain.StatePublished {
		published = live
	}

	incoming := attrs.Item()
	moved := published != nil && published.BasePath != incoming.BasePath
	if moved {
		err = s.paths.Move(ctx, db, attrs.ContentID, published.BasePath, incoming.BasePath, attrs.PublishingApp)
	} else {
		_, err = s.paths.Reserve(ctx, db, incoming.BasePath, attrs.PublishingApp)
	}
	if err != nil {
		return nil, err
	}

	occupant, err := s.draftOccupant(ctx, sc, incoming)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.CheckAndIncrement(ctx, db, ref, req.PreviousVersion); err != nil {
		return nil, err
	}

	if occupant != nil {
		if err := s.items.Delete(ctx, db, occupant); err != nil {
			return nil, err
		}
	}

	var next *items.ContentItem
	if draft != nil {
		next = items.ReplaceFields(draft, incoming)
		if err := s.items.Update(ctx, db, next); err != nil {
			return nil, err
		}
	} else {
		next = incoming
		next.State = domain.StateDraft
		next.UserFacingVersion, err = s.nextUserFacingVersion(ctx, sc, attrs.ContentID, attrs.Locale)
		if err != nil {
			return nil, err
		}
		if live != nil {
			next.FirstPublishedAt = live.FirstPublishedAt
		}
		if err := s.items.Insert(ctx, db, next); err != nil {
			return nil, err
		}
	}

	if moved {
		if _, err := s.ensureRedirectDraft(ctx, sc, published.BasePath, next); err != nil {
			return nil, err
		}
	}

	if req.Links != nil {
		if _, err := s.putLinkSet(ctx, sc, PutLinkSetRequest{ContentID: next.ContentID, Links: req.Links}); err != nil {
			return nil, err
		}
	}

	if draft != nil && draft.BasePath != next.BasePath && (published == nil || published.BasePath != draft.BasePath) {
		s.deleteAfterCommit(sc, draft.BasePath, downstream.TargetDraft)
	}

	rep, err := s.represent(ctx, db, next)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(sc, rep, downstream.TargetDraft)
	return rep, nil
}

// draftOccupant returns the draft of another content identity holding the
// item's base path, when it may be replaced. Two renderable drafts cannot share
// a path.
func (s *service) draftOccupant(ctx context.Context, sc *Scope, item *items.ContentItem) (*items.ContentItem, error) {
	occupant, err := s.items.FindAtPath(ctx, sc.DB(), item.BasePath, item.Locale, domain.StateDraft)
	if err != nil || occupant == nil || occupant.ContentID == item.ContentID {
		return nil, err
	}
	if occupant.Renderable() && item.Renderable() {
		return nil, fieldError("base_path", fmt.Sprintf(
			"conflicts with content_id=%s and locale=%s", occupant.ContentID, occupant.Locale))
	}
	return occupant, nil
}

// ensureRedirectDraft points a draft redirect at oldPath to target's base path,
// creating it under a fresh content identity when missing. It returns nil when
// oldPath is held by a renderable draft of another identity.
func (s *service) ensureRedirectDraft(ctx context.Context, sc *Scope, oldPath string, target *items.ContentItem) (*items.ContentItem, error) {
	db := sc.DB()
	existing, err := s.items.FindAtPath(ctx, db, oldPath, target.Locale, domain.StateDraft)
	if err != nil {
		return nil, err
	}
	redirects := []items.Redirect{{Path: oldPath, Type: items.RouteExact, Destination: target.BasePath}}

	redirect := existing
	switch {
	case existing != nil && existing.Format != domain.FormatRedirect:
		return nil, nil
	case existing != nil:
		existing.Redirects = redirects
		if err := s.items.Update(ctx, db, existing); err != nil {
			return nil, err
		}
	default:
		redirect = &items.ContentItem{
			ContentID:         s.id(),
			Locale:            target.Locale,
			State:             domain.StateDraft,
			BasePath:          oldPath,
			Format:            domain.FormatRedirect,
			PublishingApp:     target.PublishingApp,
			Phase:             string(domain.PhaseLive),
			Redirects:         redirects,
			UserFacingVersion: 1,
		}
		if err := s.items.Insert(ctx, db, redirect); err != nil {
			return nil, err
		}
	}

	if _, err := s.ledger.CheckAndIncrement(ctx, db, versions.ContentRef(redirect.ContentID, redirect.Locale), nil); err != nil {
		return nil, err
	}
	rep, err := s.represent(ctx, db, redirect)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(sc, rep, downstream.TargetDraft)
	return redirect, nil
}

// nextUserFacingVersion is one above the highest version recorded for the locale.
func (s *service) nextUserFacingVersion(ctx context.Context, sc *Scope, contentID uuid.UUID, locale string) (int, error) {
	rows, err := s.items.ListByContentID(ctx, sc.DB(), contentID)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, row := range rows {
		if row.Locale == locale && row.UserFacingVersion > highest {
			highest = row.UserFacingVersion
		}
	}
	return highest + 1, nil
}

func withPublishingApp(attrs items.Attributes, app string) items.Attributes {
	attrs = attrs.Normalize()
	if strings.TrimSpace(attrs.PublishingApp) == "" {
		attrs.PublishingApp = strings.TrimSpace(app)
	}
	return attrs
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return domain.DefaultLocale
	}
	return locale
}
