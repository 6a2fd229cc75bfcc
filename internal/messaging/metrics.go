package messaging

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nsridhar76/go-ordermgmt/internal/metrics"
)

// handlerExecutionTimeBuckets are one order of magnitude smaller than the
// default buckets, handlers mostly do a single cache or database round trip.
var handlerExecutionTimeBuckets = []float64{
	0.0005,
	0.001,
	0.0025,
	0.005,
	0.01,
	0.025,
	0.05,
	0.1,
	0.25,
	0.5,
	1,
	5,
}

// Metrics records bus activity in Prometheus.
type Metrics struct {
	eventsPublished      *prometheus.CounterVec
	handlerExecutionTime *prometheus.HistogramVec
}

// NewMetrics registers the bus metrics in registerer. Collectors that are
// already registered are reused.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	published, err := metrics.RegisterCounterVec(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ordermgmt",
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Number of events published to the bus.",
		},
		[]string{"event_type"},
	))
	if err != nil {
		return nil, err
	}

	executionTime, err := metrics.RegisterHistogramVec(registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ordermgmt",
			Subsystem: "bus",
			Name:      "handler_execution_time_seconds",
			Help:      "The total time elapsed while executing an event handler in seconds.",
			Buckets:   handlerExecutionTimeBuckets,
		},
		[]string{"handler", "success"},
	))
	if err != nil {
		return nil, err
	}

	return &Metrics{eventsPublished: published, handlerExecutionTime: executionTime}, nil
}

func (m *Metrics) eventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) handlerExecuted(handler string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.handlerExecutionTime.
		WithLabelValues(handler, strconv.FormatBool(err == nil)).
		Observe(elapsed.Seconds())
}
