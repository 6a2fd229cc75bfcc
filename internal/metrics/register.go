// Package metrics holds the Prometheus helpers shared by the bus and the
// HTTP server.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterCounterVec registers c, or returns the collector already
// registered under the same descriptor.
func RegisterCounterVec(r prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := r.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector.(*prometheus.CounterVec), nil
	}
	return c, errors.Wrap(err, "cannot register counter")
}

// RegisterHistogramVec registers h, or returns the collector already
// registered under the same descriptor.
func RegisterHistogramVec(r prometheus.Registerer, h *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	err := r.Register(h)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector.(*prometheus.HistogramVec), nil
	}
	return h, errors.Wrap(err, "cannot register histogram")
}
