package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	// Proxy metrics
	ProxyRequestsTotal  *prometheus.CounterVec
	ProxyDurationSecs   *prometheus.HistogramVec
	RouteReloadsTotal   *prometheus.CounterVec
	LiveRoutesGauge     prometheus.Gauge

	// Session metrics
	SessionsCreatedTotal prometheus.Counter
	SessionsRevokedTotal prometheus.Counter
	SessionsSweptTotal   prometheus.Counter
	LoginsTotal          *prometheus.CounterVec

	// Upstream token broker metrics
	TokenMintsTotal     *prometheus.CounterVec
	TokenCacheHitsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// Default is the global metrics instance.
var Default *Metrics

func init() {
	Default = NewMetrics()
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ProxyRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of proxied requests",
			},
			[]string{"route", "status"},
		),
		ProxyDurationSecs: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Subsystem: "proxy",
				Name:      "duration_seconds",
				Help:      "Proxied request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RouteReloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "config",
				Name:      "reloads_total",
				Help:      "Total number of routing snapshot reloads",
			},
			[]string{"result"},
		),
		LiveRoutesGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gateway",
				Subsystem: "config",
				Name:      "live_routes",
				Help:      "Number of routes in the live snapshot",
			},
		),

		SessionsCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "session",
				Name:      "created_total",
				Help:      "Total number of sessions created",
			},
		),
		SessionsRevokedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "session",
				Name:      "revoked_total",
				Help:      "Total number of sessions revoked",
			},
		),
		SessionsSweptTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "session",
				Name:      "swept_total",
				Help:      "Total number of sessions removed by the sweep",
			},
		),
		LoginsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "oauth",
				Name:      "logins_total",
				Help:      "Total number of login attempts",
			},
			[]string{"result"},
		),

		TokenMintsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "broker",
				Name:      "token_mints_total",
				Help:      "Total number of upstream tokens minted",
			},
			[]string{"strategy", "result"},
		),
		TokenCacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "broker",
				Name:      "token_cache_hits_total",
				Help:      "Upstream token lookups by the layer that satisfied them",
			},
			[]string{"layer"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordTokenMint records an upstream token mint attempt.
func (m *Metrics) RecordTokenMint(strategy string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.TokenMintsTotal.WithLabelValues(strategy, result).Inc()
}

// RecordTokenLookup records which layer satisfied a broker lookup:
// cache, store, or mint.
func (m *Metrics) RecordTokenLookup(layer string) {
	m.TokenCacheHitsTotal.WithLabelValues(layer).Inc()
}

// RecordReload records a routing snapshot reload attempt.
func (m *Metrics) RecordReload(success bool, liveRoutes int) {
	result := "failure"
	if success {
		result = "success"
		m.LiveRoutesGauge.Set(float64(liveRoutes))
	}
	m.RouteReloadsTotal.WithLabelValues(result).Inc()
}

// RecordLogin records a completed or failed login flow.
func (m *Metrics) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}
