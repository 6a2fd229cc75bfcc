package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nsridhar76/go-ordermgmt/internal/metrics"
)

// Metrics holds the HTTP server collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// NewMetrics registers the HTTP collectors in registerer. Collectors that
// are already registered are reused.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	requests, err := metrics.RegisterCounterVec(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ordermgmt",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	))
	if err != nil {
		return nil, err
	}

	latency, err := metrics.RegisterHistogramVec(registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ordermgmt",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	))
	if err != nil {
		return nil, err
	}

	return &Metrics{Requests: requests, Latency: latency}, nil
}

// Middleware records one observation per request, labelled with the
// matched route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.Latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
