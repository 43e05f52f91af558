package lifecycle

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/versions"
)

// represent builds the full representation of item as seen inside db.
func (s *service) represent(ctx context.Context, db bun.IDB, item *items.ContentItem) (*Representation, error) {
	set, _, err := s.links.Get(ctx, db, item.ContentID)
	if err != nil {
		return nil, err
	}
	version, err := s.ledger.Current(ctx, db, versions.ContentRef(item.ContentID, item.Locale))
	if err != nil {
		return nil, err
	}
	rep := presentItem(item, set, version)
	if item.State == domain.StateUnpublished {
		record, err := s.items.LatestUnpublishing(ctx, db, item.ID)
		if err != nil {
			return nil, err
		}
		withUnpublishing(rep, record)
	}
	return rep, nil
}

// pushAfterCommit schedules rep for targets once the scope commits. The payload
// version is the id of the outermost command's event.
func (s *service) pushAfterCommit(sc *Scope, rep *Representation, targets ...downstream.Target) {
	sc.AfterCommit(func(ctx context.Context) {
		rep.PayloadVersion = sc.EventID()
		body, err := json.Marshal(rep)
		if err != nil {
			s.logger.Error("lifecycle.downstream.encode_failed", "base_path", rep.BasePath, "error", err)
			return
		}
		push := downstream.Push{
			Targets:        targets,
			BasePath:       rep.BasePath,
			Body:           body,
			PayloadVersion: rep.PayloadVersion,
		}
		if err := s.propagator.Push(ctx, push); err != nil {
			s.logger.Error("lifecycle.downstream.enqueue_failed", "base_path", rep.BasePath, "error", err)
		}
	})
}

func (s *service) deleteAfterCommit(sc *Scope, basePath string, targets ...downstream.Target) {
	if basePath == "" {
		return
	}
	sc.AfterCommit(func(ctx context.Context) {
		push := downstream.Push{
			Targets:        targets,
			BasePath:       basePath,
			Delete:         true,
			PayloadVersion: sc.EventID(),
		}
		if err := s.propagator.Push(ctx, push); err != nil {
			s.logger.Error("lifecycle.downstream.enqueue_failed", "base_path", basePath, "error", err)
		}
	})
}

// messageAfterCommit notifies the bus with routing key "<format>.<update_type>".
func (s *service) messageAfterCommit(sc *Scope, rep *Representation, updateType string) {
	sc.AfterCommit(func(ctx context.Context) {
		rep.PayloadVersion = sc.EventID()
		body, err := json.Marshal(rep)
		if err != nil {
			s.logger.Error("lifecycle.downstream.encode_failed", "base_path", rep.BasePath, "error", err)
			return
		}
		msg := downstream.Message{
			RoutingKey: routingKey(rep.Format, updateType),
			EventID:    sc.EventID(),
			ContentID:  rep.ContentID.String(),
			Locale:     rep.Locale,
			BasePath:   rep.BasePath,
			Body:       body,
		}
		if err := s.propagator.Message(ctx, msg); err != nil {
			s.logger.Error("lifecycle.downstream.enqueue_failed", "routing_key", msg.RoutingKey, "error", err)
		}
	})
}

func routingKey(format, updateType string) string {
	if format == "" {
		format = "placeholder"
	}
	if updateType == "" {
		updateType = string(domain.UpdateMajor)
	}
	return format + "." + updateType
}
