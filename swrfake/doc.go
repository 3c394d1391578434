// Package swrfake provides deterministic test doubles for swrcache.
//
// Clock lets a test walk an entry through fresh, stale and hard-expired without sleeping.
// Producer is a scripted, countable producer that can be held open to simulate a slow
// refresh. Recorder is an Observer with assertion helpers.
//
// Example:
//
//	clock := swrfake.NewClock(time.Unix(0, 0))
//	c := swrcache.New[string](swrcache.WithClock(clock))
//	p := swrfake.NewProducer("A")
//
//	_, _ = c.CachedCtx(ctx, "k", 30*time.Second, p.Func())
//	clock.Advance(35 * time.Second)
//	_, _ = c.CachedCtx(ctx, "k", 30*time.Second, p.Func()) // stale, refresh scheduled
//	c.Wait()
//	p.AssertCalls(t, 2)
package swrfake
