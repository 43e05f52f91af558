package lifecycle

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/links"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/paths"
)

func (s *service) PutLinkSet(ctx context.Context, req PutLinkSetRequest) (*LinkSetView, error) {
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), req.ContentID.String(), "", "put_link_set")

	var out *LinkSetView
	err := s.run(ctx, nil, "PutLinkSet", req.ContentID, req.PublishingApp, map[string]any{
		"links":            req.Links,
		"previous_version": req.PreviousVersion,
	}, func(sc *Scope) error {
		view, err := s.putLinkSet(ctx, sc, req)
		out = view
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.put_link_set.rejected", "error", err)
		return nil, err
	}
	logger.Info("lifecycle.put_link_set.success", "version", out.Version)
	return out, nil
}

func (s *service) putLinkSet(ctx context.Context, sc *Scope, req PutLinkSetRequest) (*LinkSetView, error) {
	if req.ContentID == uuid.Nil {
		return nil, fieldError("content_id", "is required")
	}
	parsed, err := links.ParseLinks(req.Links)
	if err != nil {
		return nil, err
	}
	db := sc.DB()
	version, err := s.links.Put(ctx, db, req.ContentID, parsed, req.PreviousVersion)
	if err != nil {
		return nil, err
	}
	if err := s.repushWithLinks(ctx, sc, req.ContentID); err != nil {
		return nil, err
	}
	stored, _, err := s.links.Get(ctx, db, req.ContentID)
	if err != nil {
		return nil, err
	}
	return &LinkSetView{ContentID: req.ContentID, Links: stored.Strings(), Version: version}, nil
}

// repushWithLinks refreshes every representation that embeds the link set.
func (s *service) repushWithLinks(ctx context.Context, sc *Scope, contentID uuid.UUID) error {
	rows, err := s.items.ListByContentID(ctx, sc.DB(), contentID)
	if err != nil {
		return err
	}
	drafted := map[string]bool{}
	for _, row := range rows {
		if row.State == domain.StateDraft {
			drafted[row.Locale] = true
		}
	}
	for _, row := range rows {
		switch row.State {
		case domain.StateDraft:
			rep, err := s.represent(ctx, sc.DB(), row)
			if err != nil {
				return err
			}
			s.pushAfterCommit(sc, rep, downstream.TargetDraft)
		case domain.StatePublished:
			rep, err := s.represent(ctx, sc.DB(), row)
			if err != nil {
				return err
			}
			targets := []downstream.Target{downstream.TargetLive}
			if !drafted[row.Locale] {
				targets = append(targets, downstream.TargetDraft)
			}
			s.pushAfterCommit(sc, rep, targets...)
			s.messageAfterCommit(sc, rep, string(domain.UpdateLinks))
		}
	}
	return nil
}

func (s *service) PutContentWithLinks(ctx context.Context, req PutContentWithLinksRequest) (*Representation, error) {
	req.Attributes = withPublishingApp(req.Attributes, req.PublishingApp)
	if req.Attributes.ContentID == uuid.Nil {
		return s.putPathOnly(ctx, req)
	}
	attrs := req.Attributes
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), attrs.ContentID.String(), attrs.Locale, "put_content_with_links")

	var out *Representation
	err := s.run(ctx, nil, "PutContentWithLinks", attrs.ContentID, attrs.PublishingApp, map[string]any{
		"base_path":   attrs.BasePath,
		"locale":      attrs.Locale,
		"update_type": req.UpdateType,
	}, func(sc *Scope) error {
		rep, err := s.putContentWithLinks(ctx, sc, req)
		out = rep
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.put_content_with_links.rejected", "error", err)
		return nil, err
	}
	logger.Info("lifecycle.put_content_with_links.success", "lock_version", out.LockVersion)
	return out, nil
}

func (s *service) putContentWithLinks(ctx context.Context, sc *Scope, req PutContentWithLinksRequest) (*Representation, error) {
	attrs := req.Attributes
	if !s.policy.protectedApp(attrs.PublishingApp) {
		if err := s.links.DeleteExceptTypes(ctx, sc.DB(), attrs.ContentID, s.policy.ProtectedLinkTypes); err != nil {
			return nil, err
		}
	}
	if _, err := s.putContent(ctx, sc, PutContentRequest{Attributes: attrs, PublishingApp: attrs.PublishingApp}); err != nil {
		return nil, err
	}
	if req.Links != nil {
		merged, err := s.mergeLinks(ctx, sc, attrs.ContentID, req.Links)
		if err != nil {
			return nil, err
		}
		if _, err := s.putLinkSet(ctx, sc, PutLinkSetRequest{ContentID: attrs.ContentID, Links: merged}); err != nil {
			return nil, err
		}
	}
	updateType := req.UpdateType
	if updateType == "" {
		updateType = attrs.UpdateType
	}
	if updateType == "" {
		updateType = string(domain.UpdateMajor)
	}
	return s.publish(ctx, sc, PublishRequest{
		ContentID:     attrs.ContentID,
		Locale:        attrs.Locale,
		UpdateType:    updateType,
		PublishingApp: attrs.PublishingApp,
	})
}

// mergeLinks overlays incoming link types on the links that survived the reset.
func (s *service) mergeLinks(ctx context.Context, sc *Scope, contentID uuid.UUID, incoming map[string]any) (map[string]any, error) {
	current, _, err := s.links.Get(ctx, sc.DB(), contentID)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(current)+len(incoming))
	for linkType, targets := range current {
		merged[linkType] = targets
	}
	for linkType, targets := range incoming {
		merged[linkType] = targets
	}
	return merged, nil
}

// putPathOnly serves writes that carry no content identity: the path is
// reserved and the body forwarded verbatim to both stores and the bus.
func (s *service) putPathOnly(ctx context.Context, req PutContentWithLinksRequest) (*Representation, error) {
	attrs := req.Attributes
	basePath := strings.TrimSpace(req.BasePath)
	if basePath == "" {
		basePath = attrs.BasePath
	}
	if !paths.ValidAbsolutePath(basePath) {
		return nil, fieldError("base_path", "is not a valid absolute URL path")
	}
	if attrs.PublishingApp == "" {
		return nil, fieldError("publishing_app", "is required")
	}
	attrs.BasePath = basePath
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), "", attrs.Locale, "put_path_only")

	rep := presentItem(attrs.Item(), links.Links{}, 0)
	rep.ContentID = uuid.Nil
	body := req.Body
	err := s.run(ctx, nil, "PutContentWithLinks", uuid.Nil, attrs.PublishingApp, map[string]any{
		"base_path": basePath,
	}, func(sc *Scope) error {
		if _, err := s.paths.Reserve(ctx, sc.DB(), basePath, attrs.PublishingApp); err != nil {
			return err
		}
		sc.AfterCommit(func(ctx context.Context) {
			s.forwardRaw(ctx, sc, basePath, body, rep)
		})
		return nil
	})
	if err != nil {
		logger.Warn("lifecycle.put_path_only.rejected", "base_path", basePath, "error", err)
		return nil, err
	}
	logger.Info("lifecycle.put_path_only.success", "base_path", basePath)
	return rep, nil
}

func (s *service) forwardRaw(ctx context.Context, sc *Scope, basePath string, body map[string]any, fallback *Representation) {
	fallback.PayloadVersion = sc.EventID()
	var (
		encoded []byte
		err     error
	)
	if body != nil {
		doc := make(map[string]any, len(body)+2)
		for k, v := range body {
			doc[k] = v
		}
		doc["base_path"] = basePath
		doc["payload_version"] = sc.EventID()
		encoded, err = json.Marshal(doc)
	} else {
		encoded, err = json.Marshal(fallback)
	}
	if err != nil {
		s.logger.Error("lifecycle.downstream.encode_failed", "base_path", basePath, "error", err)
		return
	}
	push := downstream.Push{
		Targets:        []downstream.Target{downstream.TargetDraft, downstream.TargetLive},
		BasePath:       basePath,
		Body:           encoded,
		PayloadVersion: sc.EventID(),
	}
	if err := s.propagator.Push(ctx, push); err != nil {
		s.logger.Error("lifecycle.downstream.enqueue_failed", "base_path", basePath, "error", err)
	}
	msg := downstream.Message{
		RoutingKey: routingKey(fallback.Format, fallback.UpdateType),
		EventID:    sc.EventID(),
		ContentID:  basePath,
		BasePath:   basePath,
		Body:       encoded,
	}
	if err := s.propagator.Message(ctx, msg); err != nil {
		s.logger.Error("lifecycle.downstream.enqueue_failed", "routing_key", msg.RoutingKey, "error", err)
	}
}

func (s *service) ReservePath(ctx context.Context, req ReservePathRequest) error {
	logger := logging.WithContentContext(logging.FromContext(ctx, s.logger), "", "", "reserve_path")
	err := s.run(ctx, nil, "ReservePath", uuid.Nil, req.PublishingApp, map[string]any{
		"base_path": req.BasePath,
	}, func(sc *Scope) error {
		_, err := s.paths.Reserve(ctx, sc.DB(), strings.TrimSpace(req.BasePath), strings.TrimSpace(req.PublishingApp))
		return err
	})
	if err != nil {
		logger.Warn("lifecycle.reserve_path.rejected", "base_path", req.BasePath, "error", err)
		return err
	}
	logger.Info("lifecycle.reserve_path.success", "base_path", req.BasePath)
	return nil
}
