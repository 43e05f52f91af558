package ditesting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-publishing/internal/adapters/contentstore"
	"github.com/goliatone/go-publishing/internal/adapters/messagebus"
	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/downstream"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
	"github.com/goliatone/go-publishing/pkg/testsupport"
)

// Harness is a container backed by an in-memory database, in-memory content
// stores and an in-memory message bus.
type Harness struct {
	Container *di.Container
	Draft     *contentstore.MemoryStore
	Live      *contentstore.MemoryStore
	Archive   *contentstore.MemoryStore
	Bus       *messagebus.MemoryBus

	mu      sync.Mutex
	results []*lifecycle.Representation
	now     time.Time
}

// Option adjusts the configuration before the container is built.
type Option func(*runtimeconfig.Config)

// WithArchive enables the archive mirror backed by Harness.Archive.
func WithArchive() Option {
	return func(cfg *runtimeconfig.Config) {
		cfg.Downstream.Archive.Enabled = true
		cfg.Downstream.Archive.Bucket = "test-archive"
	}
}

// NewHarness builds and migrates a container. Commands are registered and
// released when the test ends.
func NewHarness(t testing.TB, opts ...Option) *Harness {
	t.Helper()

	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "noop"
	cfg.Downstream.MaxAttempts = 3
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{
		Draft:   contentstore.NewMemoryStore(),
		Live:    contentstore.NewMemoryStore(),
		Archive: contentstore.NewMemoryStore(),
		Bus:     messagebus.NewMemoryBus(),
		now:     time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}

	containerOpts := []di.Option{
		di.WithBunDB(testsupport.NewBunDB(t)),
		di.WithClock(h.Now),
		di.WithContentStore(downstream.TargetDraft, h.Draft),
		di.WithContentStore(downstream.TargetLive, h.Live),
		di.WithMessageBus(h.Bus),
		di.WithCommandResults(h.record),
	}
	if cfg.Downstream.Archive.Enabled {
		containerOpts = append(containerOpts, di.WithContentStore(downstream.TargetArchive, h.Archive))
	}

	ctx := context.Background()
	container, err := di.NewContainer(ctx, cfg, containerOpts...)
	if err != nil {
		t.Fatalf("new container: %v", err)
	}
	if err := container.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	container.RegisterCommands()
	t.Cleanup(func() {
		_ = container.Close()
	})

	h.Container = container
	return h
}

// Now is the harness clock; each call moves it forward by a millisecond.
func (h *Harness) Now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(time.Millisecond)
	return h.now
}

// Advance moves the clock forward so delayed retries become due.
func (h *Harness) Advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

// Drain processes due downstream jobs.
func (h *Harness) Drain(t testing.TB) {
	t.Helper()
	if err := h.Container.Worker().Process(context.Background()); err != nil {
		t.Fatalf("process downstream jobs: %v", err)
	}
}

// Results returns representations delivered by dispatched commands.
func (h *Harness) Results() []*lifecycle.Representation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*lifecycle.Representation(nil), h.results...)
}

func (h *Harness) record(_ context.Context, rep *lifecycle.Representation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, rep)
}
