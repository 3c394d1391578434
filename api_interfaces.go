package swrcache

import (
	"context"
	"time"
)

// ReadAPI exposes reads that never call a producer.
type ReadAPI[T any] interface {
	Get(key string) (T, bool)
	IsStale(key string) bool
	Peek(key string) (Entry[T], bool)
	Len() int
}

// WriteAPI exposes writes and invalidation.
type WriteAPI[T any] interface {
	Set(key string, value T, ttl time.Duration) error
	Forget(key string)
	Flush()
}

// CachedAPI exposes the get-or-refresh operation.
type CachedAPI[T any] interface {
	Cached(key string, ttl time.Duration, fn func() (T, error)) (T, error)
	CachedCtx(ctx context.Context, key string, ttl time.Duration, fn Producer[T]) (T, error)
}

// RefreshAPI exposes background refresh state.
type RefreshAPI interface {
	Refreshing(key string) bool
	Wait()
}

// CacheAPI is the composed application-facing interface for Cache.
type CacheAPI[T any] interface {
	ReadAPI[T]
	WriteAPI[T]
	CachedAPI[T]
	RefreshAPI
	Sweepable
}

var _ CacheAPI[any] = (*Cache[any])(nil)
