package swrcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// WarmupTask pre-populates cache entries before the first request.
type WarmupTask func(ctx context.Context) error

type warmupTask struct {
	name string
	run  WarmupTask
}

// WarmupOption configures a Warmup.
type WarmupOption func(*warmupOptions)

type warmupOptions struct {
	logger      *slog.Logger
	observer    Observer
	concurrency int
}

// WithWarmupLogger sets the logger that records task failures.
func WithWarmupLogger(logger *slog.Logger) WarmupOption {
	return func(o *warmupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWarmupObserver reports each finished task as OpWarmup or OpWarmupError,
// keyed by task name.
func WithWarmupObserver(observer Observer) WarmupOption {
	return func(o *warmupOptions) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithWarmupConcurrency caps how many tasks run at once. Zero or less means no cap.
func WithWarmupConcurrency(n int) WarmupOption {
	return func(o *warmupOptions) {
		o.concurrency = n
	}
}

// Warmup is an ordered list of startup tasks.
// Tasks are registered during initialization; the list is sealed once Run starts.
type Warmup struct {
	opts   warmupOptions
	tasks  []warmupTask
	sealed bool
	mu     sync.Mutex
}

// NewWarmup creates an empty warmup registry.
//
// Example: warm a key before serving
//
//	c := swrcache.New[string]()
//	w := swrcache.NewWarmup()
//	_ = w.Register("greeting", swrcache.WarmKey(c, "greeting", time.Minute, func(context.Context) (string, error) {
//		return "hello", nil
//	}))
//	report := w.Run(context.Background())
//	fmt.Println(report.OK()) // true
func NewWarmup(opts ...WarmupOption) *Warmup {
	o := warmupOptions{
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(slog.String("component", "swrcache.warmup"))
	return &Warmup{opts: o}
}

// Register appends task under name. It fails with ErrWarmupSealed once Run has started.
func (w *Warmup) Register(name string, task WarmupTask) error {
	if task == nil {
		return ErrNilTask
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return fmt.Errorf("register %q: %w", name, ErrWarmupSealed)
	}
	w.tasks = append(w.tasks, warmupTask{name: name, run: task})
	return nil
}

// Len reports how many tasks are registered.
func (w *Warmup) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tasks)
}

// Run seals the registry, runs every task concurrently and waits for all of them.
//
// A failing or panicking task is logged and recorded in the report; it never stops the
// other tasks and Run itself never fails. Running again re-runs the same task list.
func (w *Warmup) Run(ctx context.Context) WarmupReport {
	w.mu.Lock()
	w.sealed = true
	tasks := w.tasks
	w.mu.Unlock()

	start := time.Now()
	var (
		g      errgroup.Group
		mu     sync.Mutex
		report = WarmupReport{Total: len(tasks)}
	)
	if w.opts.concurrency > 0 {
		g.SetLimit(w.opts.concurrency)
	}

	for _, task := range tasks {
		g.Go(func() error {
			taskStart := time.Now()
			err := runWarmupTask(ctx, task.run)
			if err != nil {
				err = fmt.Errorf("warmup %q: %w", task.name, err)
				w.opts.logger.WarnContext(ctx, "warmup task failed",
					slog.String("task", task.name),
					slog.Any("error", err),
				)
				w.opts.observer.OnCacheOp(ctx, OpWarmupError, task.name, err, time.Since(taskStart))

				mu.Lock()
				report.Failed++
				report.Errors = append(report.Errors, err)
				mu.Unlock()
				return nil
			}
			w.opts.observer.OnCacheOp(ctx, OpWarmup, task.name, nil, time.Since(taskStart))
			return nil
		})
	}
	_ = g.Wait()

	report.Took = time.Since(start)
	w.opts.logger.InfoContext(ctx, "warmup finished",
		slog.Int("total", report.Total),
		slog.Int("failed", report.Failed),
		slog.Duration("took", report.Took),
	)
	return report
}

func runWarmupTask(ctx context.Context, task WarmupTask) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = recoveredError(recovered)
		}
	}()
	return task(ctx)
}

// WarmupReport summarizes a Run.
type WarmupReport struct {
	Total  int
	Failed int
	Errors []error
	Took   time.Duration
}

// OK reports whether every task succeeded.
func (r WarmupReport) OK() bool { return r.Failed == 0 }

// Err joins the task errors, or returns nil when every task succeeded.
func (r WarmupReport) Err() error { return errors.Join(r.Errors...) }

// WarmKey returns a task that populates key through c.CachedCtx.
func WarmKey[T any](c *Cache[T], key string, ttl time.Duration, fn Producer[T]) WarmupTask {
	return func(ctx context.Context) error {
		_, err := c.CachedCtx(ctx, key, ttl, fn)
		return err
	}
}
