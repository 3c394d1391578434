// Package swrcache is an in-process stale-while-revalidate cache.
//
// A value written with ttl is fresh until ttl has passed, stale until five times ttl, and
// gone after that. Cached returns fresh and stale values without waiting; a stale read
// starts at most one background refresh per key and keeps serving the old value until the
// refresh lands. Only a key with no servable value makes the caller wait on its producer.
//
// Background refreshes are detached from the caller's context and never surface errors to
// callers: failures are logged through log/slog and reported to the configured Observer.
//
// Warmup runs startup tasks concurrently and collects their failures without stopping
// the others. Sweeper evicts hard-expired keys on a cron schedule so memory is reclaimed
// for keys nobody reads.
//
// Example:
//
//	c := swrcache.New[string](swrcache.WithDefaultTTL(30 * time.Second))
//	v, err := c.CachedCtx(ctx, "dashboard", 0, func(ctx context.Context) (string, error) {
//		return loadDashboard(ctx)
//	})
package swrcache
