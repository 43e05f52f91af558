package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
)

func useTestConfig(t *testing.T) runtimeconfig.Config {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "noop"
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "publishing.db") + "?_fk=1"
	cfg.Downstream.DraftContentStoreURL = ""
	cfg.Downstream.LiveContentStoreURL = ""

	previous := loadConfig
	loadConfig = func() (runtimeconfig.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfig = previous })
	return cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandListsSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "publish", "unpublish", "discard-draft", "redraft"} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestMigrateCreatesSchema(t *testing.T) {
	useTestConfig(t)
	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
}

func TestPublishDispatchesCommand(t *testing.T) {
	useTestConfig(t)
	_, err := execute(t, "migrate")
	require.NoError(t, err)

	id := uuid.New()
	ctx := context.Background()
	container, err := buildContainer(ctx)
	require.NoError(t, err)
	_, err = container.LifecycleService().PutContent(ctx, lifecycle.PutContentRequest{
		Attributes: items.Attributes{
			ContentID:    id,
			BasePath:     "/cli-guide",
			Format:       "guide",
			Title:        "CLI guide",
			RenderingApp: "frontend",
			Routes:       []map[string]any{{"path": "/cli-guide", "type": "exact"}},
		},
		PublishingApp: "publisher",
	})
	require.NoError(t, err)
	require.NoError(t, container.Close())

	out, err := execute(t, "publish", id.String(), "--app", "publisher", "--update-type", "minor")
	require.NoError(t, err)

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, id.String(), rep["content_id"])
	assert.Equal(t, "published", rep["publication_state"])
	assert.Equal(t, "minor", rep["update_type"])
}

func TestPublishRejectsInvalidInput(t *testing.T) {
	useTestConfig(t)
	_, err := execute(t, "migrate")
	require.NoError(t, err)

	_, err = execute(t, "publish", "not-a-uuid", "--app", "publisher")
	assert.Error(t, err)

	_, err = execute(t, "publish", uuid.NewString(), "--app", "publisher")
	assert.Error(t, err)

	_, err = execute(t, "unpublish", uuid.NewString(), "--app", "publisher")
	assert.Error(t, err, "type flag is required")
}
