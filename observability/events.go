package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type anomalyMetrics struct {
	detected *prometheus.GaugeVec
	scans    prometheus.Counter
}

var (
	anomalyMetricsOnce sync.Once
	anomalyRegistry    *anomalyMetrics
)

// Anomalies returns the registry tracking audit log anomaly scans.
func Anomalies() *anomalyMetrics {
	anomalyMetricsOnce.Do(func() {
		anomalyRegistry = &anomalyMetrics{
			detected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "smartswap",
				Subsystem: "audit",
				Name:      "anomalies",
				Help:      "Anomalies found by the most recent scan segmented by type and severity.",
			}, []string{"type", "severity"}),
			scans: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "smartswap",
				Subsystem: "audit",
				Name:      "anomaly_scans_total",
				Help:      "Count of anomaly scans over the audit log.",
			}),
		}
		prometheus.MustRegister(anomalyRegistry.detected, anomalyRegistry.scans)
	})
	return anomalyRegistry
}

// RecordScan replaces the per-type gauges with counts from the latest scan.
// Keys of counts are "type/severity" pairs.
func (m *anomalyMetrics) RecordScan(counts map[[2]string]int) {
	if m == nil {
		return
	}
	m.scans.Inc()
	m.detected.Reset()
	for key, count := range counts {
		m.detected.WithLabelValues(normalizeLabel(key[0]), normalizeLabel(key[1])).Set(float64(count))
	}
}
