package swrfake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goforj/swrcache"
)

// Clock is a manually driven swrcache.Clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now implements swrcache.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Result is one scripted producer outcome.
type Result[T any] struct {
	Value T
	Err   error
}

// Producer is a scripted producer that records how often it was called.
//
// Each call consumes the next queued Result; once the queue is empty the fallback
// result is returned. While held, calls block until Release.
type Producer[T any] struct {
	mu       sync.Mutex
	queue    []Result[T]
	fallback Result[T]
	calls    int
	gate     chan struct{}
	entered  chan struct{}
}

// NewProducer creates a producer that returns value once its queue is exhausted.
func NewProducer[T any](value T) *Producer[T] {
	return &Producer[T]{
		fallback: Result[T]{Value: value},
		entered:  make(chan struct{}, 64),
	}
}

// Then queues a result for the next unanswered call.
func (p *Producer[T]) Then(value T, err error) *Producer[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, Result[T]{Value: value, Err: err})
	return p
}

// Always replaces the fallback result.
func (p *Producer[T]) Always(value T, err error) *Producer[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = Result[T]{Value: value, Err: err}
	return p
}

// Hold makes subsequent calls block until Release.
func (p *Producer[T]) Hold() *Producer[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate == nil {
		p.gate = make(chan struct{})
	}
	return p
}

// Release unblocks held calls.
func (p *Producer[T]) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate != nil {
		close(p.gate)
		p.gate = nil
	}
}

// Entered returns a channel that receives once per call, as soon as the call starts.
func (p *Producer[T]) Entered() <-chan struct{} {
	return p.entered
}

// Func returns the producer in the form Cache.CachedCtx accepts.
func (p *Producer[T]) Func() swrcache.Producer[T] {
	return p.call
}

// Plain returns the producer in the form Cache.Cached accepts.
func (p *Producer[T]) Plain() func() (T, error) {
	return func() (T, error) { return p.call(context.Background()) }
}

func (p *Producer[T]) call(ctx context.Context) (T, error) {
	p.mu.Lock()
	p.calls++
	gate := p.gate
	result := p.fallback
	if len(p.queue) > 0 {
		result = p.queue[0]
		p.queue = p.queue[1:]
	}
	p.mu.Unlock()

	select {
	case p.entered <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	return result.Value, result.Err
}

// Calls returns how many times the producer was invoked.
func (p *Producer[T]) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// AssertCalls verifies the producer was invoked exactly times.
func (p *Producer[T]) AssertCalls(t *testing.T, times int) {
	t.Helper()
	if got := p.Calls(); got != times {
		t.Fatalf("expected producer called %d times, got %d", times, got)
	}
}

// AssertNotCalled verifies the producer was never invoked.
func (p *Producer[T]) AssertNotCalled(t *testing.T) {
	t.Helper()
	if got := p.Calls(); got != 0 {
		t.Fatalf("expected producer not called, got %d", got)
	}
}

// Recorder is a swrcache.Observer that counts events per op and key.
type Recorder struct {
	counts map[swrcache.Op]map[string]int
	errs   []error
	mu     sync.Mutex
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{counts: make(map[swrcache.Op]map[string]int)}
}

// OnCacheOp implements swrcache.Observer.
func (r *Recorder) OnCacheOp(_ context.Context, op swrcache.Op, key string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[op] == nil {
		r.counts[op] = make(map[string]int)
	}
	r.counts[op][key]++
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// Reset clears recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[swrcache.Op]map[string]int)
	r.errs = nil
}

// Count returns events for op+key.
func (r *Recorder) Count(op swrcache.Op, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[op] == nil {
		return 0
	}
	return r.counts[op][key]
}

// Total returns events for op across keys.
func (r *Recorder) Total(op swrcache.Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int
	for _, v := range r.counts[op] {
		sum += v
	}
	return sum
}

// Errors returns every error seen so far.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}

// AssertCalled verifies op was reported for key the expected number of times.
func (r *Recorder) AssertCalled(t *testing.T, op swrcache.Op, key string, times int) {
	t.Helper()
	if got := r.Count(op, key); got != times {
		t.Fatalf("expected %s %q reported %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures op was never reported for key.
func (r *Recorder) AssertNotCalled(t *testing.T, op swrcache.Op, key string) {
	t.Helper()
	if got := r.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not reported, got %d", op, key, got)
	}
}

// AssertTotal ensures the total count for op matches times.
func (r *Recorder) AssertTotal(t *testing.T, op swrcache.Op, times int) {
	t.Helper()
	if got := r.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

var (
	_ swrcache.Clock    = (*Clock)(nil)
	_ swrcache.Observer = (*Recorder)(nil)
)
