// Package obs provides the gateway's observability surface: Prometheus
// metrics and zap logger construction. Grounded on the teacher's
// internal/metrics.Collector (promauto vector construction pattern) and
// cmd/agentflow/main.go's initLogger, narrowed to gateway dimensions
// (provider/model/status, not the broader agent/cache/db surface the
// teacher's collector also carries). The vectors are registered, but no
// code path in this module increments or observes them.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every Prometheus metric vector the gateway registers.
type Collector struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	TokensTotal        *prometheus.CounterVec
	CostUSDTotal       *prometheus.CounterVec
	LimiterRejections  *prometheus.CounterVec
	PricingUnknown     *prometheus.CounterVec
}

// NewCollector registers the gateway's metric vectors under namespace (e.g.
// "costgate") against the default Prometheus registry.
func NewCollector(namespace string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total chat completion requests by provider, model, and outcome.",
		}, []string{"provider", "model", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Chat completion request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),

		TokensTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total tokens consumed by provider, model, and token kind (prompt/completion).",
		}, []string{"provider", "model", "kind"}),

		CostUSDTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Total cost in USD attributed to completed calls, by provider and model.",
		}, []string{"provider", "model"}),

		LimiterRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limiter_rejections_total",
			Help:      "Admission-time rejections by provider and limit dimension.",
		}, []string{"provider", "dimension"}),

		PricingUnknown: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_unknown_total",
			Help:      "Calls completed with no resolvable pricing entry, by provider and model.",
		}, []string{"provider", "model"}),
	}
}
