package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option tunes a single Load call.
type Option func(*loadOptions)

type loadOptions struct {
	prefix   string
	envFiles []string
	noCache  bool
}

// WithPrefix prepends prefix to every env key of the struct, so a field tagged
// `env:"HOST"` reads PREFIX_HOST when prefix is "PREFIX_".
func WithPrefix(prefix string) Option {
	return func(o *loadOptions) { o.prefix = prefix }
}

// WithEnvFiles loads the given dotenv files before parsing. Variables already set
// in the process environment win over the files; earlier files win over later ones.
func WithEnvFiles(files ...string) Option {
	return func(o *loadOptions) { o.envFiles = append(o.envFiles, files...) }
}

// WithoutCache parses the environment again and replaces the cached value.
func WithoutCache() Option {
	return func(o *loadOptions) { o.noCache = true }
}

type cache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	loaded = &cache{values: make(map[string]any)}

	defaultEnvOnce sync.Once
)

// Load parses environment variables into v using caarlos0/env tags. The result is
// cached per type and prefix; later calls copy the cached value.
//
//	type Config struct {
//		Host    string `env:"HOST" envDefault:"https://us.i.posthog.com"`
//		FlushAt int    `env:"FLUSH_AT" envDefault:"20"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.WithPrefix("FEATUREKIT_"))
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	defaultEnvOnce.Do(func() {
		// .env is optional.
		_ = godotenv.Load()
	})
	if len(o.envFiles) > 0 {
		if err := godotenv.Load(o.envFiles...); err != nil {
			return errors.Join(ErrLoadingEnvFile, err)
		}
	}

	key := cacheKey[T](o.prefix)

	loaded.mu.Lock()
	defer loaded.mu.Unlock()

	if cached, ok := loaded.values[key]; ok && !o.noCache {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.ParseWithOptions(&parsed, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	loaded.values[key] = parsed
	*v = parsed
	return nil
}

// MustLoad is Load that panics on error.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ResetCache drops every cached configuration.
func ResetCache() {
	loaded.mu.Lock()
	defer loaded.mu.Unlock()
	clear(loaded.values)
}

func cacheKey[T any](prefix string) string {
	return reflect.TypeFor[T]().String() + "|" + prefix
}
