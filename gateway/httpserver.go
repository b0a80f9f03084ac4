// Package gateway's httpserver.go wires the Engine and its handlers into a
// net/http.ServeMux, grounded on cmd/agentflow/server.go's startHTTPServer /
// startMetricsServer split: the chat-completion surface and the Prometheus
// surface are registered on separate muxes so /metrics can be bound to a
// different port without exposing it through the same middleware chain.
// The JWT/rate-limit/OTel middleware cmd/agentflow/middleware.go builds for
// the broader agent-framework API is not carried here — multi-tenant auth
// is out of scope for this gateway — but Recovery and RequestLogger are,
// in the same shape.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BaSui01/agentflow/api/handlers"
	"github.com/BaSui01/agentflow/internal/obs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Middleware wraps an http.Handler, matching cmd/agentflow/middleware.go's
// Middleware/Chain shape.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares outermost-first, so the first middleware in the
// list sees the request before the last.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery converts a handler panic into a 500 instead of crashing the
// process, logging the panic value and request path.
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
					http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers keep flushing through the wrapper.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLogger logs method, path, status, and duration for every request.
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Version is the gateway's build version, stamped at link time the same
// way cmd/costgated/main.go's own Version var is; it is surfaced verbatim
// in the GET /health body.
var Version = "dev"

// healthResponse is the literal body GET /health returns: a fixed-shape
// liveness probe distinct from handlers.HealthHandler's pluggable
// /healthz and /readyz, which carry per-check detail for operators.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   Version,
	})
}

func handleListModels(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(engine.ListModels())
	}
}

// providerConfigCheck is a handlers.HealthCheck backed by a ConfigSource:
// the gateway is only ready to route once at least one provider has been
// loaded from it.
type providerConfigCheck struct {
	engine *Engine
}

func (c *providerConfigCheck) Name() string { return "provider_config" }

func (c *providerConfigCheck) Check(ctx context.Context) error {
	if n := len(c.engine.config.Providers()); n == 0 {
		return fmt.Errorf("no providers loaded")
	}
	return nil
}

// NewChatMux builds the mux serving the chat-completion surface: the core
// spec's three external routes (POST /v1/chat/completions, GET /v1/models,
// GET /health) plus the teacher's richer /healthz and /readyz, reusing
// handlers.HealthHandler rather than duplicating its liveness/readiness
// JSON shape, with a single check registered against the Engine's
// ConfigSource.
func NewChatMux(engine *Engine, logger *zap.Logger) http.Handler {
	chat := handlers.NewGatewayChatHandler(engine, logger)

	health := handlers.NewHealthHandler(logger)
	health.RegisterCheck(&providerConfigCheck{engine: engine})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.HandleHealthz)
	mux.HandleFunc("/readyz", health.HandleReady)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/v1/models", handleListModels(engine))
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if isStreamingRequest(r) {
			chat.HandleStream(w, r)
			return
		}
		chat.HandleCompletion(w, r)
	})

	return Chain(mux, Recovery(logger), RequestLogger(logger))
}

// isStreamingRequest reads the body to check its "stream" field, then
// restores r.Body so the handler's own decode still sees the full payload.
// The whole body is buffered here without a size cap; GatewayChatHandler's
// 1MB limit applies only afterwards, to the restored body.
func isStreamingRequest(r *http.Request) bool {
	if r.Body == nil {
		return false
	}
	data, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return false
	}
	var probe struct {
		Stream bool `json:"stream"`
	}
	_ = json.Unmarshal(data, &probe)
	return probe.Stream
}

// NewMetricsMux builds the standalone Prometheus scrape endpoint, served on
// its own listener so it never passes through request-logging middleware.
func NewMetricsMux(_ *obs.Collector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
