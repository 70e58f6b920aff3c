// Package config provides type-safe environment variable loading using
// struct tags. A .env file, if present, is loaded once before the first
// parse; each configuration type is parsed once and cached for subsequent
// calls so components observe identical values.
package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> parsed config value
)

// Load parses environment variables into cfg, which must be a non-nil
// pointer to a struct annotated with `env` tags. Results are cached per
// concrete type.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return fmt.Errorf("config: nil target")
	}

	// Missing .env is the normal production case, not an error.
	dotenvOnce.Do(func() { _ = godotenv.Load() })

	t := reflect.TypeOf(*cfg)
	if cached, ok := cache.Load(t); ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", t.Name(), err)
	}

	cache.Store(t, *cfg)
	return nil
}

// MustLoad is Load that panics on failure, for use during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
