package swrcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Producer computes the value for a cache key.
// The cache never times it out or cancels it; producers bound their own latency.
type Producer[T any] func(ctx context.Context) (T, error)

// Cache serves cached values immediately, even when stale, and refreshes stale values in
// the background. It only waits on a producer when a key has no servable value.
type Cache[T any] struct {
	store     *EntryStore[T]
	refreshes *RefreshCoordinator
	flight    singleflight.Group
	cfg       Config
	logger    *slog.Logger
	observer  Observer
	wg        sync.WaitGroup
}

// New creates a cache with its own entry store and refresh coordinator.
//
// Example: string cache with a default TTL
//
//	c := swrcache.New[string](swrcache.WithDefaultTTL(30 * time.Second))
//	v, err := c.Cached("greeting", 0, func() (string, error) { return "hello", nil })
//	fmt.Println(v, err) // hello <nil>
func New[T any](opts ...Option) *Cache[T] {
	cfg := Config{}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	cfg = cfg.withDefaults()

	c := &Cache[T]{
		store:     NewEntryStore[T](cfg.Clock),
		refreshes: NewRefreshCoordinator(),
		cfg:       cfg,
		logger:    cfg.Logger.With(slog.String("component", "swrcache")),
		observer:  cfg.Observer,
	}
	c.store.setObserver(c.observer)
	return c
}

// WithObserver attaches an observer to receive cache events.
// Call it before the cache is shared between goroutines.
func (c *Cache[T]) WithObserver(o Observer) *Cache[T] {
	if o == nil {
		o = nopObserver{}
	}
	c.observer = o
	c.store.setObserver(o)
	return c
}

// Store returns the underlying entry store.
func (c *Cache[T]) Store() *EntryStore[T] {
	return c.store
}

// Cached returns the value for key, calling fn as needed.
//
// A fresh value is returned as is. A stale value is returned immediately and, unless a
// refresh for key is already running, fn is started in the background to replace it.
// When key has no servable value, fn is called synchronously and its failure is returned
// as a *ProducerError.
//
// Example: get or compute
//
//	c := swrcache.New[int]()
//	n, err := c.Cached("answer", time.Minute, func() (int, error) { return 42, nil })
//	fmt.Println(n, err) // 42 <nil>
func (c *Cache[T]) Cached(key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var producer Producer[T]
	if fn != nil {
		producer = func(context.Context) (T, error) { return fn() }
	}
	return c.CachedCtx(context.Background(), key, ttl, producer)
}

// CachedCtx is the context-aware variant of Cached.
// Background refreshes run on a context detached from ctx's cancellation.
func (c *Cache[T]) CachedCtx(ctx context.Context, key string, ttl time.Duration, fn Producer[T]) (T, error) {
	start := time.Now()
	ttl = c.resolveTTL(ttl)

	if entry, ok := c.store.lookup(key); ok {
		if !entry.Stale(c.cfg.Clock.Now()) {
			c.observe(ctx, OpHit, key, nil, start)
			return entry.Value, nil
		}
		c.observe(ctx, OpStaleHit, key, nil, start)
		if fn != nil {
			c.scheduleRefresh(ctx, key, ttl, fn)
		}
		return entry.Value, nil
	}

	return c.fetch(ctx, key, ttl, fn, start)
}

func (c *Cache[T]) fetch(ctx context.Context, key string, ttl time.Duration, fn Producer[T], start time.Time) (T, error) {
	var zero T
	if fn == nil {
		c.observe(ctx, OpMiss, key, ErrNilProducer, start)
		return zero, ErrNilProducer
	}

	var (
		value T
		err   error
	)
	if c.cfg.ColdMissSingleflight {
		value, err = c.fetchShared(ctx, key, ttl, fn)
	} else {
		value, err = c.fetchOnce(ctx, key, ttl, fn)
	}
	if err != nil {
		err = &ProducerError{Key: key, Err: err}
		c.observe(ctx, OpMiss, key, err, start)
		return zero, err
	}
	c.observe(ctx, OpMiss, key, nil, start)
	return value, nil
}

func (c *Cache[T]) fetchOnce(ctx context.Context, key string, ttl time.Duration, fn Producer[T]) (T, error) {
	value, err := fn(ctx)
	if err != nil {
		return value, err
	}
	if err := c.store.Set(key, value, ttl); err != nil {
		return value, err
	}
	return value, nil
}

// fetchShared runs the leader's producer with the leader's ctx; followers get its result.
func (c *Cache[T]) fetchShared(ctx context.Context, key string, ttl time.Duration, fn Producer[T]) (T, error) {
	shared, err, _ := c.flight.Do(key, func() (any, error) {
		value, err := c.fetchOnce(ctx, key, ttl, fn)
		return value, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ := shared.(T)
	return value, nil
}

func (c *Cache[T]) scheduleRefresh(ctx context.Context, key string, ttl time.Duration, fn Producer[T]) {
	if !c.refreshes.TryAcquire(key) {
		c.observe(ctx, OpRefreshSkipped, key, nil, time.Now())
		return
	}

	refreshCtx := context.WithoutCancel(ctx)
	log := c.logger.With(slog.String("key", key), slog.String("refresh_id", uuid.NewString()))

	c.observe(refreshCtx, OpRefreshStart, key, nil, time.Now())
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.refreshes.Release(key)

		start := time.Now()
		value, err := c.produce(refreshCtx, fn)
		if err == nil {
			err = c.store.Set(key, value, ttl)
		}
		if err != nil {
			log.WarnContext(refreshCtx, "background refresh failed", slog.Any("error", err))
			c.observe(refreshCtx, OpRefreshError, key, err, start)
			return
		}
		log.DebugContext(refreshCtx, "background refresh completed", slog.Duration("took", time.Since(start)))
		c.observe(refreshCtx, OpRefresh, key, nil, start)
	}()
}

// produce runs fn, turning a panic into ErrProducerPanic so a detached goroutine cannot
// take the process down.
func (c *Cache[T]) produce(ctx context.Context, fn Producer[T]) (value T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = recoveredError(recovered)
		}
	}()
	return fn(ctx)
}

// Get returns the value for key when present and not hard-expired.
// It never calls a producer or schedules a refresh.
func (c *Cache[T]) Get(key string) (T, bool) {
	return c.store.Get(key)
}

// Set writes value to key. ttl <= 0 uses the default TTL.
func (c *Cache[T]) Set(key string, value T, ttl time.Duration) error {
	return c.store.Set(key, value, c.resolveTTL(ttl))
}

// IsStale reports whether key is absent or past its stale instant.
func (c *Cache[T]) IsStale(key string) bool {
	return c.store.IsStale(key)
}

// Peek returns the entry for key with its timestamps, without enforcing expiry.
func (c *Cache[T]) Peek(key string) (Entry[T], bool) {
	return c.store.Peek(key)
}

// Forget removes key. A refresh already running for key may write it back.
func (c *Cache[T]) Forget(key string) {
	c.store.Delete(key)
}

// Flush removes every entry.
func (c *Cache[T]) Flush() {
	c.store.Flush()
}

// Len reports the number of stored entries.
func (c *Cache[T]) Len() int {
	return c.store.Len()
}

// Sweep evicts all hard-expired entries and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	start := time.Now()
	removed := c.store.Sweep()
	c.observe(context.Background(), OpSweep, "", nil, start)
	return removed
}

// Refreshing reports whether a background refresh for key is in flight.
func (c *Cache[T]) Refreshing(key string) bool {
	return c.refreshes.InFlight(key)
}

// Wait blocks until every background refresh started so far has settled.
func (c *Cache[T]) Wait() {
	c.wg.Wait()
}

func (c *Cache[T]) resolveTTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return c.cfg.DefaultTTL
}

func (c *Cache[T]) observe(ctx context.Context, op Op, key string, err error, start time.Time) {
	c.observer.OnCacheOp(ctx, op, key, err, time.Since(start))
}
