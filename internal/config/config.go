// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New(ctx) to build a Config with defaults.
//   - Load layers a .env file, an optional YAML file and PAIRWISE_* env vars.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// KFactor is the Elo K-factor for new sessions.
	KFactor float64 `koanf:"k_factor" validate:"gt=0,finite"`

	// InitialRating is the rating every item starts at.
	InitialRating float64 `koanf:"initial_rating" validate:"finite"`

	// ShuffleSeed seeds pair shuffling. Zero seeds from the clock.
	ShuffleSeed int64 `koanf:"shuffle_seed"`

	// CatalogFile optionally replaces the built-in yakuman catalog.
	CatalogFile string `koanf:"catalog_file"`

	// SessionBackend selects the session store: memory, redis or badger.
	SessionBackend string `koanf:"session_backend" validate:"oneof=memory redis badger"`

	// SessionTTLSeconds bounds how long an idle session is kept.
	SessionTTLSeconds int `koanf:"session_ttl" validate:"gte=0"`

	// SessionSweepIntervalSeconds is how often the memory store evicts expired sessions.
	SessionSweepIntervalSeconds int `koanf:"session_sweep_interval" validate:"gt=0"`

	// CookieName names the session cookie.
	CookieName string `koanf:"cookie_name" validate:"required"`

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool `koanf:"cookie_secure"`

	// RedisAddr, RedisPassword and RedisDB configure the redis backend.
	RedisAddr     string `koanf:"redis_addr" validate:"required_if=SessionBackend redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`

	// BadgerDir is the badger data directory. Empty runs badger in memory.
	BadgerDir string `koanf:"badger_dir"`

	// BreakerFailures and BreakerTimeoutSeconds tune the circuit breaker
	// around external session stores.
	BreakerFailures       int `koanf:"breaker_failures" validate:"gt=0"`
	BreakerTimeoutSeconds int `koanf:"breaker_timeout" validate:"gt=0"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// TopListSize is the size of the in-progress top list.
	TopListSize int `koanf:"top_list_size" validate:"gt=0"`

	// MaxStandingsLimit caps GET /api/ranking/standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit" validate:"gt=0"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                    "info",
		LogFormat:                   "text",
		Addr:                        ":9080",
		KFactor:                     24,
		InitialRating:               1500,
		SessionBackend:              "memory",
		SessionTTLSeconds:           86_400,
		SessionSweepIntervalSeconds: 60,
		CookieName:                  "pairwise_session",
		RedisAddr:                   "localhost:6379",
		BreakerFailures:             5,
		BreakerTimeoutSeconds:       30,
		CORSAllowedOrigins:          []string{"*"},
		TopListSize:                 12,
		MaxStandingsLimit:           100,
	}
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// SweepInterval returns the memory store sweep interval.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SessionSweepIntervalSeconds) * time.Second
}

// BreakerTimeout returns how long an open circuit waits before probing.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSeconds) * time.Second
}
