package format

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for format selection.
type Metrics struct {
	negotiationsTotal *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton format metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			negotiationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apimorph",
					Subsystem: "format",
					Name:      "negotiations_total",
					Help:      "Total number of Accept header negotiations",
				},
				[]string{"format", "result"},
			),
		}
	})
	return metricsInstance
}

// RecordNegotiation records a negotiation outcome ("matched" or "default").
func (m *Metrics) RecordNegotiation(format, result string) {
	m.negotiationsTotal.WithLabelValues(format, result).Inc()
}
