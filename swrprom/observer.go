// Package swrprom exports swrcache events as Prometheus metrics.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	obs := swrprom.NewObserver(reg)
//	c := swrcache.New[string](swrcache.WithObserver(obs))
package swrprom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goforj/swrcache"
)

const defaultNamespace = "swrcache"

var defaultBuckets = []float64{
	.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// Option configures NewObserver.
type Option func(*options)

type options struct {
	namespace   string
	constLabels prometheus.Labels
	buckets     []float64
}

// WithNamespace prefixes every metric name. Defaults to "swrcache".
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithConstLabels attaches labels to every metric, e.g. {"cache": "users"}.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) { o.constLabels = labels }
}

// WithBuckets overrides the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// Observer implements swrcache.Observer using Prometheus.
type Observer struct {
	opsTotal   *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	inFlight   prometheus.Gauge
}

// NewObserver creates the metrics and registers them with reg.
// It panics if registration fails, like prometheus.MustRegister.
func NewObserver(reg prometheus.Registerer, opts ...Option) *Observer {
	o := options{namespace: defaultNamespace, buckets: defaultBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Observer{
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Name:        "ops_total",
			Help:        "Total number of cache operations by op and outcome",
			ConstLabels: o.constLabels,
		}, []string{"op", "outcome"}),

		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   o.namespace,
			Name:        "op_duration_seconds",
			Help:        "Cache operation latency in seconds",
			ConstLabels: o.constLabels,
			Buckets:     o.buckets,
		}, []string{"op"}),

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Name:        "refreshes_in_flight",
			Help:        "Number of background refreshes currently running",
			ConstLabels: o.constLabels,
		}),
	}

	reg.MustRegister(m.opsTotal, m.opDuration, m.inFlight)
	return m
}

// OnCacheOp implements swrcache.Observer.
func (m *Observer) OnCacheOp(_ context.Context, op swrcache.Op, _ string, err error, dur time.Duration) {
	switch op {
	case swrcache.OpRefreshStart:
		m.inFlight.Inc()
	case swrcache.OpRefresh, swrcache.OpRefreshError:
		m.inFlight.Dec()
	}

	m.opsTotal.WithLabelValues(string(op), outcome(err)).Inc()
	// keys are unbounded, so they never become label values
	if op != swrcache.OpRefreshStart {
		m.opDuration.WithLabelValues(string(op)).Observe(dur.Seconds())
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ swrcache.Observer = (*Observer)(nil)
