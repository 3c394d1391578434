// Package server exposes cached command output over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goforj/swrcache"
)

// Source is one servable key.
type Source struct {
	TTL     time.Duration
	Produce swrcache.Producer[[]byte]
}

// Server routes requests to a byte cache.
type Server struct {
	router  chi.Router
	cache   *swrcache.Cache[[]byte]
	sources map[string]Source
	logger  *slog.Logger
}

// New builds the router. gatherer backs /metrics and may be nil to disable it.
func New(cache *swrcache.Cache[[]byte], sources map[string]Source, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		router:  chi.NewRouter(),
		cache:   cache,
		sources: sources,
		logger:  logger.With(slog.String("component", "http")),
	}

	s.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle,
		s.logRequests,
	)

	s.router.Get("/healthz", s.healthz)
	s.router.Route("/values", func(r chi.Router) {
		r.Get("/", s.listKeys)
		r.Get("/{key}", s.getValue)
		r.Delete("/{key}", s.forgetValue)
	})
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RequestID returns the chi request id of ctx as a log attribute.
func RequestID(ctx context.Context) (slog.Attr, bool) {
	id := middleware.GetReqID(ctx)
	if id == "" {
		return slog.Attr{}, false
	}
	return slog.String("request_id", id), true
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": s.cache.Len(),
	})
}

func (s *Server) listKeys(w http.ResponseWriter, _ *http.Request) {
	type keyState struct {
		Key        string `json:"key"`
		Cached     bool   `json:"cached"`
		Stale      bool   `json:"stale"`
		Refreshing bool   `json:"refreshing"`
	}
	out := make([]keyState, 0, len(s.sources))
	for key := range s.sources {
		_, cached := s.cache.Get(key)
		out = append(out, keyState{
			Key:        key,
			Cached:     cached,
			Stale:      cached && s.cache.IsStale(key),
			Refreshing: s.cache.Refreshing(key),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	src, ok := s.sources[key]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown key")
		return
	}

	state := "miss"
	if _, cached := s.cache.Get(key); cached {
		state = "hit"
		if s.cache.IsStale(key) {
			state = "stale"
		}
	}

	value, err := s.cache.CachedCtx(r.Context(), key, src.TTL, src.Produce)
	if err != nil {
		var perr *swrcache.ProducerError
		if errors.As(err, &perr) {
			s.logger.WarnContext(r.Context(), "producer failed", slog.String("key", key), slog.Any("error", perr.Err))
			writeError(w, http.StatusBadGateway, "producer failed")
			return
		}
		s.logger.ErrorContext(r.Context(), "cache lookup failed", slog.String("key", key), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Cache", state)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

func (s *Server) forgetValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := s.sources[key]; !ok {
		writeError(w, http.StatusNotFound, "unknown key")
		return
	}
	s.cache.Forget(key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
