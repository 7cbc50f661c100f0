package transform

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for transform operations.
type Metrics struct {
	transformTotal    *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton transform metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			transformTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimorph",
					Subsystem: "transform",
					Name:      "transform_total",
					Help:      "Total number of record transformations",
				},
				[]string{"resource", "result"},
			),
			transformDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "apimorph",
					Subsystem: "transform",
					Name:      "transform_duration_seconds",
					Help:      "Duration of record transformations in seconds",
					Buckets: []float64{
						.00001, .00005, .0001, .0005,
						.001, .005, .01, .05,
					},
				},
				[]string{"resource"},
			),
		}
	})
	return metricsInstance
}

// RecordTransform records one record transformation.
func (m *Metrics) RecordTransform(resource, result string, d time.Duration) {
	m.transformTotal.WithLabelValues(resource, result).Inc()
	m.transformDuration.WithLabelValues(resource).Observe(d.Seconds())
}
