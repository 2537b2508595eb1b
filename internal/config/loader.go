package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix = "MATCHTRACK_"
	envConfig = "MATCHTRACK_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MATCHTRACK_CONFIG is set
//  3. env (prefix MATCHTRACK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// MATCHTRACK_DEBOUNCE_MS -> debounce_ms (flat keys, underscores kept).
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BroadcastDriver != DriverMemory && c.BroadcastDriver != DriverRedis:
		return fmt.Errorf("%w: %w: broadcast_driver %q", ErrInvalidConfig, ErrUnknownDriver, c.BroadcastDriver)
	case c.StoreDriver != DriverMemory && c.StoreDriver != DriverPostgres:
		return fmt.Errorf("%w: %w: store_driver %q", ErrInvalidConfig, ErrUnknownDriver, c.StoreDriver)
	case c.BroadcastDriver == DriverRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: %w: redis_addr is required for the redis broadcast driver", ErrInvalidConfig, ErrMissingBackend)
	case c.StoreDriver == DriverPostgres && c.PostgresDSN == "":
		return fmt.Errorf("%w: %w: postgres_dsn is required for the postgres store driver", ErrInvalidConfig, ErrMissingBackend)
	case c.ExpiryMS <= 0:
		return fmt.Errorf("%w: expiry_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
