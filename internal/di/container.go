package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-publishing/internal/adapters/contentstore"
	"github.com/goliatone/go-publishing/internal/adapters/messagebus"
	"github.com/goliatone/go-publishing/internal/adapters/noop"
	"github.com/goliatone/go-publishing/internal/commands"
	lifecyclecmd "github.com/goliatone/go-publishing/internal/commands/lifecycle"
	"github.com/goliatone/go-publishing/internal/downstream"
	publishinghttp "github.com/goliatone/go-publishing/internal/http"
	"github.com/goliatone/go-publishing/internal/items"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/logging/gologger"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
	"github.com/goliatone/go-publishing/internal/scheduler"
	"github.com/goliatone/go-publishing/internal/storage"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const (
	draftStoreName = "draft-content-store"
	liveStoreName  = "content-store"
)

// Container wires the publishing runtime from a Config.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	logger         interfaces.Logger

	bunDB   *bun.DB
	ownsDB  bool
	clock   func() time.Time
	sinkFn  lifecyclecmd.ResultFunc
	subs    []lifecyclecmd.Subscription

	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer
	history       *items.History

	scheduler  interfaces.Scheduler
	propagator *downstream.Propagator
	stores     map[downstream.Target]interfaces.ContentStore
	bus        interfaces.MessageBus
	failures   downstream.FailureLog
	worker     *downstream.Worker

	lifecycleSvc lifecycle.Service
	api          *publishinghttp.API
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB uses db instead of opening the configured database. The caller
// keeps ownership and Close leaves it open.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithLoggerProvider overrides the provider selected by Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithCache overrides the history cache.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithScheduler replaces the in-memory job queue.
func WithScheduler(sched interfaces.Scheduler) Option {
	return func(c *Container) {
		c.scheduler = sched
	}
}

// WithContentStore overrides the store backing target.
func WithContentStore(target downstream.Target, store interfaces.ContentStore) Option {
	return func(c *Container) {
		if store != nil {
			c.stores[target] = store
		}
	}
}

// WithMessageBus overrides the configured bus.
func WithMessageBus(bus interfaces.MessageBus) Option {
	return func(c *Container) {
		c.bus = bus
	}
}

// WithFailureLog overrides where abandoned deliveries are recorded.
func WithFailureLog(log downstream.FailureLog) Option {
	return func(c *Container) {
		c.failures = log
	}
}

// WithClock overrides the clock shared by the lifecycle, the queue and the worker.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithCommandResults receives the representation produced by dispatched commands.
func WithCommandResults(sink lifecyclecmd.ResultFunc) Option {
	return func(c *Container) {
		c.sinkFn = sink
	}
}

// NewContainer validates cfg and builds every component. Adapters that need
// network setup (the archive bucket) are resolved with ctx.
func NewContainer(ctx context.Context, cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		clock:  time.Now,
		stores: make(map[downstream.Target]interfaces.ContentStore),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}
	if err := c.configureDatabase(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	c.history = items.NewHistory(c.bunDB, c.cacheService, c.keySerializer)

	if err := c.configureDownstream(ctx); err != nil {
		_ = c.closeOwnedDB()
		return nil, err
	}

	c.lifecycleSvc = lifecycle.NewService(c.bunDB,
		lifecycle.WithPropagator(c.propagator),
		lifecycle.WithHistory(c.history),
		lifecycle.WithClock(c.clock),
		lifecycle.WithLogger(logging.LifecycleLogger(c.loggerProvider)),
		lifecycle.WithPolicy(lifecycle.Policy{
			ProtectedApps:      cfg.Lifecycle.ProtectedApps,
			ProtectedLinkTypes: cfg.Lifecycle.ProtectedLinkTypes,
			SupportedLocale:    cfg.SupportsLocale,
		}),
	)
	c.api = publishinghttp.NewAPI(c.lifecycleSvc,
		publishinghttp.WithLogger(logging.HTTPLogger(c.loggerProvider)),
		publishinghttp.WithFailureLog(c.failures),
	)

	c.logger.Info("container.configured",
		"db_driver", cfg.Database.Driver,
		"cache_enabled", c.cacheService != nil,
		"archive_enabled", cfg.Downstream.Archive.Enabled,
	)
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider == nil {
		switch strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) {
		case "noop":
		default:
			provider, err := gologger.FromConfig(c.Config.Logging)
			if err != nil {
				return err
			}
			c.loggerProvider = provider
		}
	}
	c.logger = logging.ModuleLogger(c.loggerProvider, "publishing.container")
	return nil
}

func (c *Container) configureDatabase() error {
	if c.bunDB != nil {
		return nil
	}
	db, err := storage.Open(c.Config.Database.Driver, c.Config.Database.DSN)
	if err != nil {
		return err
	}
	c.bunDB = db
	c.ownsDB = true
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.Config.Cache.TTL > 0 {
			cfg.TTL = c.Config.Cache.TTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err != nil {
			c.logger.Warn("container.cache.disabled", "error", err)
			return
		}
		c.cacheService = service
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureDownstream(ctx context.Context) error {
	d := c.Config.Downstream

	if c.scheduler == nil && !d.Enabled {
		c.logger.Warn("container.downstream.disabled")
		c.scheduler = scheduler.NewNoOp()
	}
	if c.scheduler == nil {
		c.scheduler = scheduler.NewInMemory(
			scheduler.WithClock(c.clock),
			scheduler.WithDefaultMaxAttempts(d.MaxAttempts),
			scheduler.WithBackoff(scheduler.ExponentialBackoff(d.BaseBackoff, d.MaxBackoff)),
		)
	}
	c.propagator = downstream.NewPropagator(c.scheduler,
		downstream.WithPropagatorClock(c.clock),
		downstream.WithMaxAttempts(d.MaxAttempts),
		downstream.WithArchive(d.Archive.Enabled),
	)

	if err := c.configureStore(downstream.TargetDraft, draftStoreName, d.DraftContentStoreURL); err != nil {
		return err
	}
	if err := c.configureStore(downstream.TargetLive, liveStoreName, d.LiveContentStoreURL); err != nil {
		return err
	}
	if d.Archive.Enabled && c.stores[downstream.TargetArchive] == nil {
		archive, err := contentstore.NewS3Store(ctx, contentstore.S3Config{
			Bucket:    d.Archive.Bucket,
			Prefix:    d.Archive.Prefix,
			Region:    d.Archive.Region,
			Endpoint:  d.Archive.Endpoint,
			AccessKey: d.Archive.AccessKey,
			SecretKey: d.Archive.SecretKey,
		})
		if err != nil {
			return err
		}
		c.stores[downstream.TargetArchive] = archive
	}

	if c.bus == nil {
		if url := strings.TrimSpace(d.MessageBusURL); url != "" {
			bus, err := messagebus.NewCloudEventsBus(url, d.MessageSource, messagebus.WithClock(c.clock))
			if err != nil {
				return err
			}
			c.bus = bus
		} else {
			c.logger.Warn("container.message_bus.disabled")
			c.bus = noop.MessageBus()
		}
	}
	if c.failures == nil {
		c.failures = downstream.NewMemoryFailureLog(d.FailureLogSize)
	}

	workerOpts := []downstream.Option{
		downstream.WithMessageBus(c.bus),
		downstream.WithFailureLog(c.failures),
		downstream.WithLogger(logging.DownstreamLogger(c.loggerProvider)),
		downstream.WithClock(c.clock),
		downstream.WithBatchSize(d.BatchSize),
	}
	for target, store := range c.stores {
		workerOpts = append(workerOpts, downstream.WithStore(target, store))
	}
	c.worker = downstream.NewWorker(c.scheduler, workerOpts...)
	return nil
}

// configureStore uses the HTTP store at rawURL, or an in-memory store when no
// URL is configured.
func (c *Container) configureStore(target downstream.Target, name, rawURL string) error {
	if c.stores[target] != nil {
		return nil
	}
	if strings.TrimSpace(rawURL) == "" {
		c.logger.Warn("container.content_store.memory", "target", string(target))
		c.stores[target] = contentstore.NewMemoryStore()
		return nil
	}
	store, err := contentstore.NewHTTPStore(name, rawURL, contentstore.WithTimeout(c.Config.Downstream.Timeout))
	if err != nil {
		return fmt.Errorf("container: %s store: %w", target, err)
	}
	c.stores[target] = store
	return nil
}

// Migrate creates the tables and indexes the service owns.
func (c *Container) Migrate(ctx context.Context) error {
	return storage.CreateSchema(ctx, c.bunDB)
}

// RegisterCommands subscribes the lifecycle command handlers with the
// go-command dispatcher. Close releases them.
func (c *Container) RegisterCommands() {
	logger := commands.CommandLogger(c.loggerProvider, "lifecycle")
	c.subs = append(c.subs, lifecyclecmd.Register(c.lifecycleSvc, logger, c.sinkFn)...)
}

// Close releases command subscriptions and the database opened by the container.
func (c *Container) Close() error {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	return c.closeOwnedDB()
}

func (c *Container) closeOwnedDB() error {
	if !c.ownsDB || c.bunDB == nil {
		return nil
	}
	c.ownsDB = false
	return c.bunDB.Close()
}

func (c *Container) LifecycleService() lifecycle.Service { return c.lifecycleSvc }

func (c *Container) API() *publishinghttp.API { return c.api }

func (c *Container) Worker() *downstream.Worker { return c.worker }

func (c *Container) Scheduler() interfaces.Scheduler { return c.scheduler }

func (c *Container) FailureLog() downstream.FailureLog { return c.failures }

func (c *Container) DB() *bun.DB { return c.bunDB }

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }

// ContentStore returns the store wired for target, or nil.
func (c *Container) ContentStore(target downstream.Target) interfaces.ContentStore {
	return c.stores[target]
}
