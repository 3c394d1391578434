package swrcache

import (
	"log/slog"
	"time"
)

const (
	defaultCacheTTL = 5 * time.Minute
)

// Config controls how a Cache is constructed.
type Config struct {
	// DefaultTTL is used when a call provides ttl <= 0.
	DefaultTTL time.Duration

	// Clock drives staleness and hard expiry. Defaults to SystemClock.
	Clock Clock

	// Logger receives refresh failures. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer receives cache events. Nil disables observation.
	Observer Observer

	// ColdMissSingleflight makes concurrent cold misses for one key share a single
	// producer call. Off by default: each cold miss calls its own producer.
	ColdMissSingleflight bool
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = defaultCacheTTL
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}
	return c
}
