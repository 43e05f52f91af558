package lifecycle_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/goliatone/go-publishing/pkg/testsupport"
)

type recordingPropagator struct {
	mu       sync.Mutex
	pushes   []downstream.Push
	messages []downstream.Message
}

func (r *recordingPropagator) Push(_ context.Context, push downstream.Push) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, push)
	return nil
}

func (r *recordingPropagator) Message(_ context.Context, msg downstream.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingPropagator) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = nil
	r.messages = nil
}

// pushesTo returns the pushes that include target, in order.
func (r *recordingPropagator) pushesTo(target downstream.Target) []downstream.Push {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []downstream.Push
	for _, push := range r.pushes {
		for _, candidate := range push.Targets {
			if candidate == target {
				out = append(out, push)
				break
			}
		}
	}
	return out
}

type harness struct {
	db      *bun.DB
	service lifecycle.Service
	sink    *recordingPropagator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sink := &recordingPropagator{}
	h := newHarnessWith(t, sink)
	h.sink = sink
	return h
}

// newHarnessWith builds the service over propagator instead of a recorder.
func newHarnessWith(t *testing.T, propagator lifecycle.Propagator) *harness {
	t.Helper()
	ctx := context.Background()
	db := testsupport.NewBunDB(t)
	if err := storage.CreateSchema(ctx, db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * time.Millisecond)
	}
	svc := lifecycle.NewService(db,
		lifecycle.WithPropagator(propagator),
		lifecycle.WithClock(clock),
		lifecycle.WithPolicy(lifecycle.Policy{
			ProtectedApps:      []string{"whitehall"},
			ProtectedLinkTypes: []string{"alpha_taxons"},
			SupportedLocale: func(locale string) bool {
				return locale == "en" || locale == "fr"
			},
		}),
	)
	return &harness{db: db, service: svc}
}

func guide(id uuid.UUID, basePath string) items.Attributes {
	return items.Attributes{
		ContentID:     id,
		BasePath:      basePath,
		Format:        "guide",
		PublishingApp: "publisher",
		RenderingApp:  "frontend",
		Title:         "VAT rates",
		Details:       map[string]any{"body": "<p>rates</p>"},
		Routes:        []map[string]any{{"path": basePath, "type": "exact"}},
	}
}

func redirectAttrs(id uuid.UUID, basePath, destination string) items.Attributes {
	return items.Attributes{
		ContentID:     id,
		BasePath:      basePath,
		Format:        domain.FormatRedirect,
		PublishingApp: "publisher",
		Redirects: []map[string]any{{
			"path":        basePath,
			"type":        "exact",
			"destination": destination,
		}},
	}
}

func intPtr(v int) *int {
	return &v
}

func (h *harness) put(t *testing.T, attrs items.Attributes) *lifecycle.Representation {
	t.Helper()
	rep, err := h.service.PutContent(context.Background(), lifecycle.PutContentRequest{Attributes: attrs})
	if err != nil {
		t.Fatalf("put content %s: %v", attrs.BasePath, err)
	}
	return rep
}

func (h *harness) publish(t *testing.T, id uuid.UUID, locale string) *lifecycle.Representation {
	t.Helper()
	rep, err := h.service.Publish(context.Background(), lifecycle.PublishRequest{
		ContentID:  id,
		Locale:     locale,
		UpdateType: "major",
	})
	if err != nil {
		t.Fatalf("publish %s: %v", id, err)
	}
	return rep
}

// rows returns every content item row ordered by base path then version.
func (h *harness) rows(t *testing.T) []*items.ContentItem {
	t.Helper()
	var out []*items.ContentItem
	err := h.db.NewSelect().
		Model(&out).
		OrderExpr("?TableAlias.base_path ASC, ?TableAlias.user_facing_version ASC, ?TableAlias.format ASC").
		Scan(context.Background())
	if err != nil {
		t.Fatalf("list rows: %v", err)
	}
	return out
}

func (h *harness) unpublishings(t *testing.T) []items.Unpublishing {
	t.Helper()
	var out []items.Unpublishing
	if err := h.db.NewSelect().Model(&out).OrderExpr("?TableAlias.created_at ASC").Scan(context.Background()); err != nil {
		t.Fatalf("list unpublishings: %v", err)
	}
	return out
}
