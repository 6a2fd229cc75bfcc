package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-ordermgmt/internal/metrics"
)

func TestRegisterCounterVec_reuses_existing(t *testing.T) {
	registry := prometheus.NewRegistry()
	opts := prometheus.CounterOpts{Name: "requests_total", Help: "Requests."}

	first, err := metrics.RegisterCounterVec(registry, prometheus.NewCounterVec(opts, []string{"route"}))
	require.NoError(t, err)
	second, err := metrics.RegisterCounterVec(registry, prometheus.NewCounterVec(opts, []string{"route"}))
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestRegisterHistogramVec_reuses_existing(t *testing.T) {
	registry := prometheus.NewRegistry()
	opts := prometheus.HistogramOpts{Name: "latency_seconds", Help: "Latency."}

	first, err := metrics.RegisterHistogramVec(registry, prometheus.NewHistogramVec(opts, []string{"route"}))
	require.NoError(t, err)
	second, err := metrics.RegisterHistogramVec(registry, prometheus.NewHistogramVec(opts, []string{"route"}))
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestRegisterCounterVec_conflict(t *testing.T) {
	registry := prometheus.NewRegistry()

	_, err := metrics.RegisterCounterVec(registry, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_total", Help: "Events."}, []string{"type"}))
	require.NoError(t, err)

	_, err = metrics.RegisterCounterVec(registry, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_total", Help: "Events."}, []string{"kind"}))
	assert.Error(t, err)
}
