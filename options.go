package swrcache

import (
	"log/slog"
	"time"
)

// Option mutates Config when constructing a Cache.
type Option func(Config) Config

// WithDefaultTTL overrides the fallback TTL used when ttl <= 0.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(cfg Config) Config {
		cfg.DefaultTTL = ttl
		return cfg
	}
}

// WithClock overrides the time source for staleness and expiry.
func WithClock(clock Clock) Option {
	return func(cfg Config) Config {
		cfg.Clock = clock
		return cfg
	}
}

// WithLogger sets the logger used for swallowed refresh failures.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg Config) Config {
		cfg.Logger = logger
		return cfg
	}
}

// WithObserver attaches an observer to receive cache events.
func WithObserver(o Observer) Option {
	return func(cfg Config) Config {
		cfg.Observer = o
		return cfg
	}
}

// WithColdMissSingleflight collapses concurrent cold misses for one key into a single
// producer call.
func WithColdMissSingleflight(enabled bool) Option {
	return func(cfg Config) Config {
		cfg.ColdMissSingleflight = enabled
		return cfg
	}
}
