package swrcache

import (
	"context"
	"time"
)

// Op identifies a cache event reported to an Observer.
type Op string

const (
	OpHit            Op = "hit"
	OpStaleHit       Op = "stale_hit"
	OpMiss           Op = "miss"
	OpRefreshStart   Op = "refresh_start"
	OpRefresh        Op = "refresh"
	OpRefreshError   Op = "refresh_error"
	OpRefreshSkipped Op = "refresh_skipped"
	OpEvict          Op = "evict"
	OpSweep          Op = "sweep"
	OpWarmup         Op = "warmup"
	OpWarmupError    Op = "warmup_error"
)

// Observer receives events for cache operations.
// It is called synchronously, including from detached refresh goroutines, so it must be
// safe for concurrent use and must not block.
type Observer interface {
	OnCacheOp(ctx context.Context, op Op, key string, err error, dur time.Duration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op Op, key string, err error, dur time.Duration)

// OnCacheOp implements Observer.
func (f ObserverFunc) OnCacheOp(ctx context.Context, op Op, key string, err error, dur time.Duration) {
	if f == nil {
		return
	}
	f(ctx, op, key, err, dur)
}

type nopObserver struct{}

func (nopObserver) OnCacheOp(context.Context, Op, string, error, time.Duration) {}
