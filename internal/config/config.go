// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers a YAML file and env vars on top.
// - Durations are expressed in milliseconds to keep env overrides flat.
package config

import "time"

// Broadcast and store driver names.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BroadcastDriver selects the possession channel transport: memory or redis.
	BroadcastDriver string `koanf:"broadcast_driver"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// StoreDriver selects the match data store: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// PostgresDSN is required when StoreDriver is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// DribbleThresholdMS is the minimum hold for a same-player dribble.
	DribbleThresholdMS int `koanf:"dribble_threshold_ms"`

	// DebounceMS absorbs rapid inserts into one tracker's pending queue.
	DebounceMS int `koanf:"debounce_ms"`

	// RefreshIntervalMS and SweepIntervalMS drive pending queue aging.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`
	SweepIntervalMS   int `koanf:"sweep_interval_ms"`

	// ExpiryMS is the age at which an unclassified obligation is dropped.
	ExpiryMS int `koanf:"expiry_ms"`

	// ResolvedMemory bounds how many resolved pending ids a queue remembers.
	ResolvedMemory int `koanf:"resolved_memory"`

	// SubscriberBuffer bounds each subscription's delivery buffer.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// ProbeIntervalMS sets how often the broadcast transport is pinged.
	ProbeIntervalMS int `koanf:"probe_interval_ms"`

	// NoticeLimit caps the notices retained per tracker session.
	NoticeLimit int `koanf:"notice_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		BroadcastDriver:    DriverMemory,
		RedisAddr:          "localhost:6379",
		StoreDriver:        DriverMemory,
		DribbleThresholdMS: 2000,
		DebounceMS:         500,
		RefreshIntervalMS:  1000,
		SweepIntervalMS:    5000,
		ExpiryMS:           30_000,
		ResolvedMemory:     4096,
		SubscriberBuffer:   256,
		ProbeIntervalMS:    3000,
		NoticeLimit:        50,
	}
}

// Millis converts a millisecond config value to a time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
