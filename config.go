package publishing

import "github.com/goliatone/go-publishing/internal/runtimeconfig"

var (
	ErrDefaultLocaleRequired    = runtimeconfig.ErrDefaultLocaleRequired
	ErrDefaultLocaleUnsupported = runtimeconfig.ErrDefaultLocaleUnsupported
	ErrDatabaseDriverInvalid    = runtimeconfig.ErrDatabaseDriverInvalid
	ErrDatabaseDSNRequired      = runtimeconfig.ErrDatabaseDSNRequired
	ErrRetryPolicyInvalid       = runtimeconfig.ErrRetryPolicyInvalid
	ErrArchiveBucketRequired    = runtimeconfig.ErrArchiveBucketRequired
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
	ErrCacheTTLInvalid          = runtimeconfig.ErrCacheTTLInvalid
)

type (
	Config           = runtimeconfig.Config
	DatabaseConfig   = runtimeconfig.DatabaseConfig
	LifecycleConfig  = runtimeconfig.LifecycleConfig
	DownstreamConfig = runtimeconfig.DownstreamConfig
	ArchiveConfig    = runtimeconfig.ArchiveConfig
	CacheConfig      = runtimeconfig.CacheConfig
	LoggingConfig    = runtimeconfig.LoggingConfig
	HTTPConfig       = runtimeconfig.HTTPConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads PUBLISHING_* environment variables.
func LoadConfig() (Config, error) {
	return runtimeconfig.Load()
}
