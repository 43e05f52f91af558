package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-publishing/internal/downstream"
	publishinghttp "github.com/goliatone/go-publishing/internal/http"
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

func (r *recordingPropagator) pushCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func newServer(t *testing.T) (*httptest.Server, *recordingPropagator) {
	t.Helper()
	db := testsupport.NewBunDB(t)
	require.NoError(t, storage.CreateSchema(context.Background(), db))

	sink := &recordingPropagator{}
	service := lifecycle.NewService(db, lifecycle.WithPropagator(sink))
	server := httptest.NewServer(publishinghttp.NewAPI(service).Routes())
	t.Cleanup(server.Close)
	return server, sink
}

func call(t *testing.T, server *httptest.Server, method, path, app string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		encoded, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if app != "" {
		req.Header.Set(publishinghttp.PublishingAppHeader, app)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func guidePayload(basePath string) map[string]any {
	return map[string]any{
		"base_path":     basePath,
		"format":        "guide",
		"title":         "VAT rates",
		"rendering_app": "frontend",
		"details":       map[string]any{"body": "<p>rates</p>"},
		"routes":        []map[string]any{{"path": basePath, "type": "exact"}},
	}
}

func errorCode(t *testing.T, body map[string]any) float64 {
	t.Helper()
	inner, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := inner["code"].(float64)
	return code
}

func TestHealthcheck(t *testing.T) {
	server, _ := newServer(t)
	status, body := call(t, server, http.MethodGet, "/healthcheck", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestV2RequiresPublishingAppHeader(t *testing.T) {
	server, _ := newServer(t)
	status, body := call(t, server, http.MethodGet, "/v2/content/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, float64(http.StatusUnauthorized), errorCode(t, body))
}

func TestPutPublishAndReadContent(t *testing.T) {
	server, sink := newServer(t)
	id := uuid.NewString()

	status, body := call(t, server, http.MethodPut, "/v2/content/"+id, "publisher", guidePayload("/vat-rates"))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, id, body["content_id"])
	assert.Equal(t, "publisher", body["publishing_app"])
	assert.Equal(t, "draft", body["publication_state"])
	assert.Equal(t, float64(1), body["lock_version"])

	status, body = call(t, server, http.MethodPost, "/v2/content/"+id+"/publish", "publisher", map[string]any{
		"update_type":      "major",
		"previous_version": "1",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "published", body["publication_state"])

	status, body = call(t, server, http.MethodGet, "/v2/content/"+id+"?live=true", "publisher", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "/vat-rates", body["base_path"])

	status, body = call(t, server, http.MethodGet, "/v2/content/"+id+"/history", "publisher", nil)
	require.Equal(t, http.StatusOK, status, body)
	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, results)

	row := results[0].(map[string]any)
	status, body = call(t, server, http.MethodGet, "/v2/content/"+id+"/history/"+row["id"].(string), "publisher", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, row["id"], body["id"])
	assert.Equal(t, "published", body["state"])

	status, _ = call(t, server, http.MethodGet, "/v2/content/"+uuid.NewString()+"/history/"+row["id"].(string), "publisher", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, server, http.MethodGet, "/v2/content/"+id+"/history/not-a-uuid", "publisher", nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Positive(t, sink.pushCount())
}

func TestPutContentRejections(t *testing.T) {
	server, _ := newServer(t)
	id := uuid.NewString()

	cases := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "malformed json", path: "/v2/content/" + id, body: "{", status: http.StatusBadRequest},
		{name: "wrong json type", path: "/v2/content/" + id, body: map[string]any{"base_path": 12}, status: http.StatusBadRequest},
		{name: "missing attributes", path: "/v2/content/" + id, body: map[string]any{"format": "guide"}, status: http.StatusUnprocessableEntity},
		{name: "bad timestamp", path: "/v2/content/" + id, body: map[string]any{"base_path": "/a", "format": "guide", "public_updated_at": "yesterday"}, status: http.StatusUnprocessableEntity},
		{name: "bad previous version", path: "/v2/content/" + id, body: map[string]any{"base_path": "/a", "format": "guide", "previous_version": "one"}, status: http.StatusUnprocessableEntity},
		{name: "unknown id", path: "/v2/content/not-a-uuid", body: guidePayload("/a"), status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, server, http.MethodPut, tc.path, "publisher", tc.body)
			assert.Equal(t, tc.status, status, body)
			assert.Equal(t, float64(tc.status), errorCode(t, body))
		})
	}
}

func TestSchemaErrorsCarryIssues(t *testing.T) {
	server, _ := newServer(t)
	status, body := call(t, server, http.MethodPost, "/v2/content/"+uuid.NewString()+"/unpublish", "publisher", map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)
	inner := body["error"].(map[string]any)
	issues, ok := inner["issues"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, issues)
}

func TestVersionConflictReturns409(t *testing.T) {
	server, _ := newServer(t)
	id := uuid.NewString()

	status, _ := call(t, server, http.MethodPut, "/v2/content/"+id, "publisher", guidePayload("/conflict"))
	require.Equal(t, http.StatusOK, status)

	payload := guidePayload("/conflict")
	payload["previous_version"] = 7
	status, body := call(t, server, http.MethodPut, "/v2/content/"+id, "publisher", payload)
	assert.Equal(t, http.StatusConflict, status, body)
}

func TestPathOwnedByAnotherAppReturns409(t *testing.T) {
	server, _ := newServer(t)

	status, _ := call(t, server, http.MethodPut, "/v2/content/"+uuid.NewString(), "publisher", guidePayload("/owned"))
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, server, http.MethodPut, "/v2/content/"+uuid.NewString(), "other-app", guidePayload("/owned"))
	assert.Equal(t, http.StatusConflict, status, body)
}

func TestDiscardWithoutDraftIsUnprocessable(t *testing.T) {
	server, _ := newServer(t)
	status, body := call(t, server, http.MethodPost, "/v2/content/"+uuid.NewString()+"/discard-draft", "publisher", nil)
	assert.Contains(t, []int{http.StatusNotFound, http.StatusUnprocessableEntity}, status, body)
}

func TestDiscardNeverPublishedDraftReturnsEmptyObject(t *testing.T) {
	server, sink := newServer(t)
	id := uuid.NewString()

	status, body := call(t, server, http.MethodPut, "/v2/content/"+id, "publisher", guidePayload("/never-live"))
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, server, http.MethodPost, "/v2/content/"+id+"/discard-draft", "publisher", map[string]any{"previous_version": 1})
	require.Equal(t, http.StatusOK, status, body)
	require.NotNil(t, body, "expected a JSON object, not null")
	assert.Empty(t, body)
	assert.Positive(t, sink.pushCount())
}

func TestUnpublishAsGone(t *testing.T) {
	server, _ := newServer(t)
	id := uuid.NewString()

	status, _ := call(t, server, http.MethodPut, "/v2/content/"+id, "publisher", guidePayload("/retired"))
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, server, http.MethodPost, "/v2/content/"+id+"/publish", "publisher", map[string]any{"update_type": "major"})
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, server, http.MethodPost, "/v2/content/"+id+"/unpublish", "publisher", map[string]any{
		"type":        "gone",
		"explanation": "no longer applies",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "unpublished", body["publication_state"])
	assert.Equal(t, "guide", body["format"])
	unpublishing, ok := body["unpublishing"].(map[string]any)
	require.True(t, ok, body)
	assert.Equal(t, "gone", unpublishing["type"])
}

func TestPatchAndGetLinks(t *testing.T) {
	server, _ := newServer(t)
	id := uuid.NewString()
	target := uuid.NewString()

	status, body := call(t, server, http.MethodPatch, "/v2/links/"+id, "publisher", map[string]any{
		"links": map[string]any{"organisations": []string{target}},
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(1), body["version"])

	status, body = call(t, server, http.MethodGet, "/v2/links/"+id, "publisher", nil)
	require.Equal(t, http.StatusOK, status, body)
	links := body["links"].(map[string]any)
	assert.Equal(t, []any{target}, links["organisations"])

	status, body = call(t, server, http.MethodPatch, "/v2/links/"+id, "publisher", map[string]any{"previous_version": 1})
	assert.Equal(t, http.StatusBadRequest, status, body)
}

func TestLegacyPutContentPublishesInOneCall(t *testing.T) {
	server, _ := newServer(t)
	id := uuid.NewString()

	payload := guidePayload("/legacy/guide")
	payload["content_id"] = id
	payload["publishing_app"] = "legacy-app"
	status, body := call(t, server, http.MethodPut, "/content/legacy/guide", "", payload)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "published", body["publication_state"])
	assert.Equal(t, "legacy-app", body["publishing_app"])
	assert.Equal(t, "/legacy/guide", body["base_path"])
}

func TestLegacyPutWithoutContentIDReservesPath(t *testing.T) {
	server, sink := newServer(t)

	status, body := call(t, server, http.MethodPut, "/content/placeholder", "legacy-app", map[string]any{
		"format": "placeholder",
		"title":  "Coming soon",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, 1, sink.pushCount())

	status, _ = call(t, server, http.MethodPut, "/paths/placeholder", "", map[string]any{"publishing_app": "another-app"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestReservePath(t *testing.T) {
	server, _ := newServer(t)

	status, body := call(t, server, http.MethodPut, "/paths/reserved/path", "publisher", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "/reserved/path", body["base_path"])
	assert.Equal(t, "publisher", body["publishing_app"])

	status, _ = call(t, server, http.MethodPut, "/paths/reserved/path", "", map[string]any{"publishing_app": "publisher"})
	assert.Equal(t, http.StatusOK, status)

	status, body = call(t, server, http.MethodPut, "/paths/unowned", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status, body)

	status, body = call(t, server, http.MethodGet, "/paths/reserved/path", "", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "publisher", body["publishing_app"])

	status, _ = call(t, server, http.MethodGet, "/paths/unowned", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPutContentFromFixture(t *testing.T) {
	server, _ := newServer(t)
	id := uuid.NewString()

	payload := testsupport.LoadPayload(t, "put_content_guide.json")

	status, body := call(t, server, http.MethodPut, "/v2/content/"+id, "publisher", payload)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "beta", body["phase"])
	assert.Equal(t, "2024-02-10T09:30:00Z", body["public_updated_at"])
	links := body["links"].(map[string]any)
	assert.Equal(t, []any{"2f8c5cbe-0d1c-4c9c-9d2a-9a0e8b0f2b11"}, links["organisations"])
}
