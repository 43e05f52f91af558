package di_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lifecyclecmd "github.com/goliatone/go-publishing/internal/commands/lifecycle"
	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/domain"
	ditesting "github.com/goliatone/go-publishing/internal/di/testing"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
	"github.com/goliatone/go-publishing/pkg/testsupport"
)

func putGuide(t *testing.T, h *ditesting.Harness, id uuid.UUID, basePath string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"base_path":     basePath,
		"format":        "guide",
		"title":         "Apply for a licence",
		"rendering_app": "frontend",
		"routes":        []map[string]any{{"path": basePath, "type": "exact"}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/v2/content/"+id.String(), bytes.NewReader(body))
	req.Header.Set("X-Publishing-App", "publisher")
	rec := httptest.NewRecorder()
	h.Container.API().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestContainerPropagatesDraftsAndPublishes(t *testing.T) {
	h := ditesting.NewHarness(t)
	id := uuid.New()

	putGuide(t, h, id, "/apply-licence")
	h.Drain(t)

	_, ok := h.Draft.Get("/apply-licence")
	assert.True(t, ok, "draft store should hold the draft")
	_, ok = h.Live.Get("/apply-licence")
	assert.False(t, ok, "live store should not see drafts")

	require.NoError(t, dispatcher.Dispatch(context.Background(), lifecyclecmd.PublishCommand{
		ContentID:     id,
		UpdateType:    "major",
		PublishingApp: "publisher",
	}))
	h.Drain(t)

	body, ok := h.Live.Get("/apply-licence")
	require.True(t, ok)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, id.String(), doc["content_id"])
	assert.Equal(t, "published", doc["publication_state"])

	deliveries := h.Bus.Deliveries()
	require.NotEmpty(t, deliveries)
	assert.Equal(t, "guide.major", deliveries[len(deliveries)-1].RoutingKey)

	results := h.Results()
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ContentID)
}

func TestContainerMirrorsLiveWritesToArchive(t *testing.T) {
	h := ditesting.NewHarness(t, ditesting.WithArchive())
	id := uuid.New()

	putGuide(t, h, id, "/archived")
	_, err := h.Container.LifecycleService().Publish(context.Background(), lifecycle.PublishRequest{
		ContentID:     id,
		UpdateType:    "minor",
		PublishingApp: "publisher",
	})
	require.NoError(t, err)
	h.Drain(t)

	_, ok := h.Archive.Get("/archived")
	assert.True(t, ok)
	assert.Same(t, h.Archive, h.Container.ContentStore(downstream.TargetArchive))
}

func TestContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Database.Driver = "oracle"

	_, err := di.NewContainer(context.Background(), cfg)
	assert.ErrorIs(t, err, runtimeconfig.ErrDatabaseDriverInvalid)
}

func TestContainerFallsBackToMemoryStores(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "noop"
	cfg.Downstream.DraftContentStoreURL = ""
	cfg.Downstream.LiveContentStoreURL = ""

	container, err := di.NewContainer(context.Background(), cfg, di.WithBunDB(testsupport.NewBunDB(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.ContentStore(downstream.TargetDraft))
	assert.NotNil(t, container.ContentStore(downstream.TargetLive))
	assert.Nil(t, container.ContentStore(downstream.TargetArchive))
}

func TestContainerUsesGoLoggerByDefault(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	container, err := di.NewContainer(context.Background(), cfg, di.WithBunDB(testsupport.NewBunDB(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	require.NotNil(t, container.LoggerProvider())
	assert.NotNil(t, container.LoggerProvider().GetLogger("publishing.test"))
}

func TestContainerDisabledDownstreamDropsJobs(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "noop"
	cfg.Downstream.Enabled = false

	ctx := context.Background()
	container, err := di.NewContainer(ctx, cfg, di.WithBunDB(testsupport.NewBunDB(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })
	require.NoError(t, container.Migrate(ctx))

	_, err = container.LifecycleService().PutContent(ctx, lifecycle.PutContentRequest{
		Attributes: items.Attributes{
			ContentID:    uuid.New(),
			BasePath:     "/quiet",
			Format:       "guide",
			Title:        "Quiet",
			RenderingApp: "frontend",
			Routes:       []map[string]any{{"path": "/quiet", "type": "exact"}},
		},
		PublishingApp: "publisher",
	})
	require.NoError(t, err)

	due, err := container.Scheduler().ListDue(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestContainerServesRetiredHistoryRows(t *testing.T) {
	h := ditesting.NewHarness(t)
	ctx := context.Background()
	svc := h.Container.LifecycleService()
	id := uuid.New()

	putGuide(t, h, id, "/apply-licence")
	_, err := svc.Publish(ctx, lifecycle.PublishRequest{ContentID: id, UpdateType: "major", PublishingApp: "publisher"})
	require.NoError(t, err)
	putGuide(t, h, id, "/apply-licence")
	_, err = svc.Publish(ctx, lifecycle.PublishRequest{ContentID: id, UpdateType: "minor", PublishingApp: "publisher"})
	require.NoError(t, err)

	rows, err := svc.History(ctx, id, "en")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	first := rows[0]

	for range 2 {
		row, err := svc.HistoryItem(ctx, id, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, row.ID)
		assert.Equal(t, "superseded", string(row.State))
	}

	current, err := svc.HistoryItem(ctx, id, rows[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "published", string(current.State))

	_, err = svc.HistoryItem(ctx, uuid.New(), first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
