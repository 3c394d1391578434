package swrcache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/goforj/swrcache"
	"github.com/goforj/swrcache/swrfake"
)

func ExampleCache_Cached() {
	c := swrcache.New[int]()
	n, err := c.Cached("answer", time.Minute, func() (int, error) { return 42, nil })
	fmt.Println(n, err)
	// Output: 42 <nil>
}

func ExampleCache_CachedCtx_stale() {
	ctx := context.Background()
	clock := swrfake.NewClock(time.Unix(0, 0))
	c := swrcache.New[string](swrcache.WithClock(clock))

	first, _ := c.CachedCtx(ctx, "k", 30*time.Second, func(context.Context) (string, error) { return "A", nil })
	clock.Advance(35 * time.Second)

	stale, _ := c.CachedCtx(ctx, "k", 30*time.Second, func(context.Context) (string, error) { return "B", nil })
	c.Wait()
	refreshed, _ := c.Get("k")

	fmt.Println(first, stale, refreshed)
	// Output: A A B
}

func ExampleNewRefreshCoordinator() {
	rc := swrcache.NewRefreshCoordinator()
	fmt.Println(rc.TryAcquire("k"), rc.TryAcquire("k"))
	rc.Release("k")
	fmt.Println(rc.TryAcquire("k"))
	// Output:
	// true false
	// true
}

func ExampleNewWarmup() {
	c := swrcache.New[string]()
	w := swrcache.NewWarmup(swrcache.WithWarmupLogger(discardLogger()))
	_ = w.Register("greeting", swrcache.WarmKey(c, "greeting", time.Minute, func(context.Context) (string, error) {
		return "hello", nil
	}))
	report := w.Run(context.Background())
	v, _ := c.Get("greeting")
	fmt.Println(report.OK(), v)
	// Output: true hello
}

func ExampleNewEntryStore() {
	s := swrcache.NewEntryStore[string](swrcache.SystemClock{})
	_ = s.Set("k", "A", 30*time.Second)
	v, ok := s.Get("k")
	fmt.Println(v, ok, s.IsStale("k"))
	// Output: A true false
}
