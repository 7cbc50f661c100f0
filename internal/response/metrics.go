package response

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the morph pipeline.
type Metrics struct {
	morphTotal    *prometheus.CounterVec
	morphDuration *prometheus.HistogramVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton morph metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			morphTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimorph",
					Subsystem: "response",
					Name:      "morph_total",
					Help:      "Total number of morphed responses",
				},
				[]string{"format", "shape", "result"},
			),
			morphDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "apimorph",
					Subsystem: "response",
					Name:      "morph_duration_seconds",
					Help:      "Duration of response morphing in seconds",
					Buckets: []float64{
						.0001, .0005, .001, .005,
						.01, .025, .05, .1,
					},
				},
				[]string{"format"},
			),
		}
	})
	return metricsInstance
}

// Init pre-initializes the series of the given formats so they are exported
// before the first request.
func (m *Metrics) Init(formats ...string) {
	for _, f := range formats {
		for _, shape := range []string{"record", "collection", "structured", "string", "opaque"} {
			m.morphTotal.WithLabelValues(f, shape, "success")
		}
		m.morphDuration.WithLabelValues(f)
	}
}

// RecordMorph records one morph call.
func (m *Metrics) RecordMorph(format, shape, result string, d time.Duration) {
	m.morphTotal.WithLabelValues(format, shape, result).Inc()
	m.morphDuration.WithLabelValues(format).Observe(d.Seconds())
}
