// Command swrcache serves the output of configured commands through a
// stale-while-revalidate cache.
//
// Usage:
//
//	swrcache -config swrcache.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/goforj/swrcache"
	"github.com/goforj/swrcache/internal/config"
	"github.com/goforj/swrcache/internal/execproducer"
	"github.com/goforj/swrcache/internal/logger"
	"github.com/goforj/swrcache/internal/server"
	"github.com/goforj/swrcache/swrprom"
)

func main() {
	configPath := flag.String("config", "swrcache.yaml", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "swrcache:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level: level,
		Sentry: logger.SentryConfig{
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			MinLevel:    slog.LevelWarn,
		},
	}, server.RequestID)
	defer sentry.Flush(2 * time.Second)
	slog.SetDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	obs := swrprom.NewObserver(reg)
	cache := swrcache.New[[]byte](
		swrcache.WithDefaultTTL(cfg.DefaultTTL),
		swrcache.WithLogger(log),
		swrcache.WithObserver(obs),
		swrcache.WithColdMissSingleflight(cfg.ColdMissSingleflight),
	)

	warmup := swrcache.NewWarmup(
		swrcache.WithWarmupLogger(log),
		swrcache.WithWarmupObserver(obs),
		swrcache.WithWarmupConcurrency(cfg.WarmupConcurrency),
	)
	sources := make(map[string]server.Source, len(cfg.Sources))
	for _, src := range cfg.Sources {
		produce := execproducer.New(execproducer.Command{
			Args:     src.Command,
			Timeout:  src.Timeout,
			MaxBytes: src.MaxOutputBytes,
		})
		sources[src.Key] = server.Source{TTL: src.TTL, Produce: produce}
		if src.Warm {
			if err := warmup.Register(src.Key, swrcache.WarmKey(cache, src.Key, src.TTL, produce)); err != nil {
				return err
			}
		}
	}

	if report := warmup.Run(ctx); !report.OK() {
		log.Warn("starting with cold keys", slog.Int("failed", report.Failed))
	}

	sweeper, err := swrcache.NewSweeper(cfg.SweepSchedule, log)
	if err != nil {
		return err
	}
	if err := sweeper.Add("values", cache); err != nil {
		return err
	}
	sweeper.Start()

	return server.Run(ctx, server.RunConfig{
		Address:         cfg.Listen,
		Handler:         server.New(cache, sources, reg, log),
		Logger:          log,
		ShutdownTimeout: cfg.ShutdownTimeout,
		ShutdownHooks: []func(context.Context) error{
			sweeper.Stop,
			func(ctx context.Context) error {
				return waitRefreshes(ctx, cache)
			},
		},
	})
}

// waitRefreshes waits for background refreshes to settle or ctx to end.
func waitRefreshes(ctx context.Context, cache *swrcache.Cache[[]byte]) error {
	done := make(chan struct{})
	go func() {
		cache.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for refreshes: %w", ctx.Err())
	}
}
