package runtimeconfig

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrDefaultLocaleRequired    = errors.New("publishing config: default locale is required")
	ErrDefaultLocaleUnsupported = errors.New("publishing config: default locale must be listed in locales")
	ErrDatabaseDriverInvalid    = errors.New("publishing config: database driver must be sqlite or postgres")
	ErrDatabaseDSNRequired      = errors.New("publishing config: database dsn is required")
	ErrRetryPolicyInvalid       = errors.New("publishing config: downstream retry policy is invalid")
	ErrArchiveBucketRequired    = errors.New("publishing config: archive bucket is required when archiving is enabled")
	ErrLoggingProviderUnknown   = errors.New("publishing config: logging provider is invalid")
	ErrLoggingLevelInvalid      = errors.New("publishing config: logging level is invalid")
	ErrLoggingFormatInvalid     = errors.New("publishing config: logging format is invalid")
	ErrCacheTTLInvalid          = errors.New("publishing config: cache ttl must be positive when cache is enabled")
)

// Config aggregates everything the publishing runtime needs. Values are read from
// the environment by Load; DefaultConfig returns the same defaults for tests.
type Config struct {
	DefaultLocale string   `env:"PUBLISHING_DEFAULT_LOCALE" env-default:"en"`
	Locales       []string `env:"PUBLISHING_LOCALES" env-default:"en,fr,de,es,cy,es-419"`
	Database      DatabaseConfig
	Lifecycle     LifecycleConfig
	Downstream    DownstreamConfig
	Cache         CacheConfig
	Logging       LoggingConfig
	HTTP          HTTPConfig
}

// DatabaseConfig selects the bun dialect and connection.
type DatabaseConfig struct {
	Driver string `env:"PUBLISHING_DB_DRIVER" env-default:"sqlite"`
	DSN    string `env:"PUBLISHING_DB_DSN" env-default:"file:publishing.db?cache=shared&_fk=1"`
}

// LifecycleConfig carries the policy tables consulted by lifecycle transitions.
type LifecycleConfig struct {
	// ProtectedApps keep their link sets when content is unpublished or re-put with links.
	ProtectedApps []string `env:"PUBLISHING_PROTECTED_APPS" env-default:"specialist-publisher"`
	// ProtectedLinkTypes survive the link reset performed by put-content-with-links.
	ProtectedLinkTypes []string `env:"PUBLISHING_PROTECTED_LINK_TYPES" env-default:"alpha_taxons"`
}

// DownstreamConfig locates the read replicas and tunes the retry policy.
type DownstreamConfig struct {
	// Enabled=false swaps the job queue for one that drops every job.
	Enabled              bool          `env:"PUBLISHING_DOWNSTREAM_ENABLED" env-default:"true"`
	DraftContentStoreURL string        `env:"PUBLISHING_DRAFT_CONTENT_STORE_URL" env-default:"http://draft-content-store.dev"`
	LiveContentStoreURL  string        `env:"PUBLISHING_LIVE_CONTENT_STORE_URL" env-default:"http://content-store.dev"`
	MessageBusURL        string        `env:"PUBLISHING_MESSAGE_BUS_URL"`
	MessageSource        string        `env:"PUBLISHING_MESSAGE_SOURCE" env-default:"publishing-api"`
	Archive              ArchiveConfig
	MaxAttempts          int           `env:"PUBLISHING_DOWNSTREAM_MAX_ATTEMPTS" env-default:"5"`
	BaseBackoff          time.Duration `env:"PUBLISHING_DOWNSTREAM_BASE_BACKOFF" env-default:"2s"`
	MaxBackoff           time.Duration `env:"PUBLISHING_DOWNSTREAM_MAX_BACKOFF" env-default:"2m"`
	BatchSize            int           `env:"PUBLISHING_DOWNSTREAM_BATCH_SIZE" env-default:"50"`
	PollInterval         time.Duration `env:"PUBLISHING_DOWNSTREAM_POLL_INTERVAL" env-default:"1s"`
	Timeout              time.Duration `env:"PUBLISHING_DOWNSTREAM_TIMEOUT" env-default:"10s"`
	FailureLogSize       int           `env:"PUBLISHING_DOWNSTREAM_FAILURE_LOG_SIZE" env-default:"500"`
}

// ArchiveConfig mirrors live representations into an S3 bucket.
type ArchiveConfig struct {
	Enabled   bool   `env:"PUBLISHING_ARCHIVE_ENABLED" env-default:"false"`
	Bucket    string `env:"PUBLISHING_ARCHIVE_BUCKET"`
	Prefix    string `env:"PUBLISHING_ARCHIVE_PREFIX" env-default:"live"`
	Region    string `env:"PUBLISHING_ARCHIVE_REGION" env-default:"us-east-1"`
	Endpoint  string `env:"PUBLISHING_ARCHIVE_ENDPOINT"`
	AccessKey string `env:"PUBLISHING_ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"PUBLISHING_ARCHIVE_SECRET_KEY"`
}

// CacheConfig toggles the cached history repository.
type CacheConfig struct {
	Enabled bool          `env:"PUBLISHING_CACHE_ENABLED" env-default:"true"`
	TTL     time.Duration `env:"PUBLISHING_CACHE_TTL" env-default:"1m"`
}

// LoggingConfig selects the logger provider.
type LoggingConfig struct {
	Provider  string   `env:"PUBLISHING_LOG_PROVIDER" env-default:"gologger"`
	Level     string   `env:"PUBLISHING_LOG_LEVEL" env-default:"info"`
	Format    string   `env:"PUBLISHING_LOG_FORMAT" env-default:"json"`
	AddSource bool     `env:"PUBLISHING_LOG_ADD_SOURCE" env-default:"false"`
	Focus     []string `env:"PUBLISHING_LOG_FOCUS"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `env:"PUBLISHING_HTTP_ADDR" env-default:":3093"`
}

// DefaultConfig returns the defaults used when no environment is set.
func DefaultConfig() Config {
	return Config{
		DefaultLocale: "en",
		Locales:       []string{"en", "fr", "de", "es", "cy", "es-419"},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:publishing.db?cache=shared&_fk=1",
		},
		Lifecycle: LifecycleConfig{
			ProtectedApps:      []string{"specialist-publisher"},
			ProtectedLinkTypes: []string{"alpha_taxons"},
		},
		Downstream: DownstreamConfig{
			Enabled:              true,
			DraftContentStoreURL: "http://draft-content-store.dev",
			LiveContentStoreURL:  "http://content-store.dev",
			MessageSource:        "publishing-api",
			Archive: ArchiveConfig{
				Prefix: "live",
				Region: "us-east-1",
			},
			MaxAttempts:    5,
			BaseBackoff:    2 * time.Second,
			MaxBackoff:     2 * time.Minute,
			BatchSize:      50,
			PollInterval:   time.Second,
			Timeout:        10 * time.Second,
			FailureLogSize: 500,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Minute,
		},
		Logging: LoggingConfig{
			Provider: "gologger",
			Level:    "info",
			Format:   "json",
		},
		HTTP: HTTPConfig{
			Addr: ":3093",
		},
	}
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("publishing config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	locale := strings.TrimSpace(c.DefaultLocale)
	if locale == "" {
		return ErrDefaultLocaleRequired
	}
	if len(c.Locales) > 0 && !slices.Contains(c.Locales, locale) {
		return ErrDefaultLocaleUnsupported
	}

	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "sqlite", "sqlite3", "postgres", "pg":
	default:
		return ErrDatabaseDriverInvalid
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return ErrDatabaseDSNRequired
	}

	d := c.Downstream
	if d.MaxAttempts < 1 || d.BaseBackoff < 0 || (d.MaxBackoff > 0 && d.MaxBackoff < d.BaseBackoff) {
		return ErrRetryPolicyInvalid
	}
	if d.Archive.Enabled && strings.TrimSpace(d.Archive.Bucket) == "" {
		return ErrArchiveBucketRequired
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return ErrCacheTTLInvalid
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Provider)) {
	case "", "gologger", "noop":
	default:
		return ErrLoggingProviderUnknown
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return ErrLoggingLevelInvalid
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "json", "console", "text", "pretty":
	default:
		return ErrLoggingFormatInvalid
	}
	return nil
}

// SupportsLocale reports whether locale is configured. An empty list accepts any locale.
func (c Config) SupportsLocale(locale string) bool {
	if len(c.Locales) == 0 {
		return true
	}
	return slices.Contains(c.Locales, locale)
}

// IsProtectedApp reports whether the publishing app is exempt from link cascades.
func (l LifecycleConfig) IsProtectedApp(app string) bool {
	return slices.Contains(l.ProtectedApps, app)
}
