package featurekit

import (
	"time"

	"github.com/dmitrymomot/featurekit/pkg/batch"
	"github.com/dmitrymomot/featurekit/pkg/config"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

// EnvPrefix is prepended to every variable read by LoadConfig.
const EnvPrefix = "FEATUREKIT_"

// Config holds the client settings. Start from DefaultConfig or LoadConfig; a
// zero numeric field falls back to its default in New.
type Config struct {
	ProjectAPIKey  string `env:"PROJECT_API_KEY"`
	PersonalAPIKey string `env:"PERSONAL_API_KEY"` // empty disables local evaluation
	Host           string `env:"HOST" envDefault:"https://us.i.posthog.com"`

	batch.Config

	FeatureFlagPollInterval                  time.Duration `env:"FEATURE_FLAG_POLL_INTERVAL" envDefault:"30s"`
	FeatureFlagSentCacheSizeLimit            int           `env:"FEATURE_FLAG_SENT_CACHE_SIZE_LIMIT" envDefault:"50000"`
	FeatureFlagSentCacheCompactionPercentage float64       `env:"FEATURE_FLAG_SENT_CACHE_COMPACTION_PERCENTAGE" envDefault:"0.2"`
	FeatureFlagSentCacheSlidingExpiration    time.Duration `env:"FEATURE_FLAG_SENT_CACHE_SLIDING_EXPIRATION" envDefault:"10m"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	DecideRateLimit float64       `env:"DECIDE_RATE_LIMIT" envDefault:"50"` // requests per second, 0 disables

	OnlyEvaluateLocally   bool `env:"ONLY_EVALUATE_LOCALLY" envDefault:"false"`
	SendFeatureFlagEvents bool `env:"SEND_FEATURE_FLAG_EVENTS" envDefault:"true"`
}

// DefaultConfig returns the documented defaults with no API keys.
func DefaultConfig() Config {
	return Config{
		Host: transport.DefaultHost,
		Config: batch.Config{
			FlushAt:         20,
			MaxBatchSize:    100,
			MaxQueueSize:    1000,
			FlushInterval:   30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		FeatureFlagPollInterval:                  30 * time.Second,
		FeatureFlagSentCacheSizeLimit:            50_000,
		FeatureFlagSentCacheCompactionPercentage: 0.2,
		FeatureFlagSentCacheSlidingExpiration:    10 * time.Minute,
		RequestTimeout:                           10 * time.Second,
		DecideRateLimit:                          50,
		SendFeatureFlagEvents:                    true,
	}
}

// LoadConfig reads FEATUREKIT_* environment variables, after loading any .env
// files given.
func LoadConfig(envFiles ...string) (Config, error) {
	var cfg Config
	opts := []config.Option{config.WithPrefix(EnvPrefix), config.WithoutCache()}
	if len(envFiles) > 0 {
		opts = append(opts, config.WithEnvFiles(envFiles...))
	}
	if err := config.Load(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.FlushAt <= 0 {
		c.FlushAt = def.FlushAt
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = def.MaxQueueSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.FeatureFlagPollInterval <= 0 {
		c.FeatureFlagPollInterval = def.FeatureFlagPollInterval
	}
	if c.FeatureFlagSentCacheSizeLimit <= 0 {
		c.FeatureFlagSentCacheSizeLimit = def.FeatureFlagSentCacheSizeLimit
	}
	if c.FeatureFlagSentCacheCompactionPercentage <= 0 || c.FeatureFlagSentCacheCompactionPercentage > 1 {
		c.FeatureFlagSentCacheCompactionPercentage = def.FeatureFlagSentCacheCompactionPercentage
	}
	if c.FeatureFlagSentCacheSlidingExpiration <= 0 {
		c.FeatureFlagSentCacheSlidingExpiration = def.FeatureFlagSentCacheSlidingExpiration
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	return c
}
