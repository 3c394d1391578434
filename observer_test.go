package swrcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goforj/swrcache"
	"github.com/goforj/swrcache/swrfake"
)

func TestObserverReportsLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := swrfake.NewClock(time.Unix(0, 0))
	rec := swrfake.NewRecorder()
	c := swrcache.New[string](swrcache.WithClock(clock), swrcache.WithObserver(rec))
	p := swrfake.NewProducer("A")

	_, _ = c.CachedCtx(ctx, "k", 30*time.Second, p.Func())
	rec.AssertCalled(t, swrcache.OpMiss, "k", 1)

	_, _ = c.CachedCtx(ctx, "k", 30*time.Second, p.Func())
	rec.AssertCalled(t, swrcache.OpHit, "k", 1)

	clock.Advance(35 * time.Second)
	p.Hold()
	_, _ = c.CachedCtx(ctx, "k", 30*time.Second, p.Func())
	<-p.Entered()
	<-p.Entered()
	_, _ = c.CachedCtx(ctx, "k", 30*time.Second, p.Func())
	p.Release()
	c.Wait()

	rec.AssertCalled(t, swrcache.OpStaleHit, "k", 2)
	rec.AssertCalled(t, swrcache.OpRefreshStart, "k", 1)
	rec.AssertCalled(t, swrcache.OpRefreshSkipped, "k", 1)
	rec.AssertCalled(t, swrcache.OpRefresh, "k", 1)
	rec.AssertNotCalled(t, swrcache.OpRefreshError, "k")
	p.AssertCalls(t, 2)
}

func TestObserverReportsRefreshError(t *testing.T) {
	ctx := context.Background()
	clock := swrfake.NewClock(time.Unix(0, 0))
	rec := swrfake.NewRecorder()
	c := swrcache.New[string](swrcache.WithClock(clock)).WithObserver(rec)
	boom := errors.New("boom")

	if err := c.Set("k", "A", time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	clock.Advance(2 * time.Second)

	p := swrfake.NewProducer("").Always("", boom)
	got, err := c.CachedCtx(ctx, "k", time.Second, p.Func())
	if err != nil || got != "A" {
		t.Fatalf("expected stale A, got %q err=%v", got, err)
	}
	c.Wait()

	rec.AssertCalled(t, swrcache.OpRefreshError, "k", 1)
	errs := rec.Errors()
	if len(errs) != 1 || !errors.Is(errs[0], boom) {
		t.Fatalf("expected refresh error recorded, got %v", errs)
	}
}

func TestObserverReportsEvictionAndSweep(t *testing.T) {
	clock := swrfake.NewClock(time.Unix(0, 0))
	rec := swrfake.NewRecorder()
	c := swrcache.New[int](swrcache.WithClock(clock), swrcache.WithObserver(rec))

	_ = c.Set("read", 1, time.Second)
	_ = c.Set("swept", 2, time.Second)
	clock.Advance(time.Minute)

	if _, ok := c.Get("read"); ok {
		t.Fatalf("expected hard-expired key to miss")
	}
	rec.AssertCalled(t, swrcache.OpEvict, "read", 1)

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("expected one swept entry, got %d", removed)
	}
	rec.AssertCalled(t, swrcache.OpEvict, "swept", 1)
	rec.AssertTotal(t, swrcache.OpSweep, 1)
}

func TestObserverFuncAdapter(t *testing.T) {
	var seen []swrcache.Op
	obs := swrcache.ObserverFunc(func(_ context.Context, op swrcache.Op, _ string, _ error, _ time.Duration) {
		seen = append(seen, op)
	})
	c := swrcache.New[int](swrcache.WithObserver(obs))

	_, _ = c.Cached("k", time.Minute, func() (int, error) { return 1, nil })
	_, _ = c.Cached("k", time.Minute, func() (int, error) { return 2, nil })

	if len(seen) != 2 || seen[0] != swrcache.OpMiss || seen[1] != swrcache.OpHit {
		t.Fatalf("unexpected ops: %v", seen)
	}
}

func TestObserverNilResetsToNoop(t *testing.T) {
	c := swrcache.New[int]().WithObserver(nil)
	if _, err := c.Cached("k", time.Minute, func() (int, error) { return 1, nil }); err != nil {
		t.Fatalf("cached failed: %v", err)
	}
}
