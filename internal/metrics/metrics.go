// Package metrics provides Prometheus instrumentation for the market engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts simulation ticks, partitioned by phase.
	TicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stonks_ticks_total",
		Help: "Total number of simulation ticks",
	}, []string{"phase"})

	// ActionsTotal counts resolved agent actions by kind and result.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stonks_actions_total",
		Help: "Total number of agent actions resolved",
	}, []string{"kind", "result"})

	// PreconditionRejections counts actions rejected because their
	// preconditions no longer held at resolution time.
	PreconditionRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonks_precondition_rejections_total",
		Help: "Actions rejected by a failed precondition",
	})

	// MarketCapCents tracks the current total market capitalization.
	MarketCapCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stonks_market_cap_cents",
		Help: "Total market capitalization in cents",
	})

	// RegisteredAgents tracks the number of registered agents.
	RegisteredAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stonks_registered_agents",
		Help: "Number of registered agents",
	})

	// NightEventsOffered counts night events offered to agents, by kind.
	NightEventsOffered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stonks_night_events_offered_total",
		Help: "Night events offered to agents",
	}, []string{"kind"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stonks_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stonks_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stonks_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Label by route pattern, not raw path: URL parameters such as
		// usernames must not fan out into per-value series. The pattern
		// is available once chi has routed the request.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
