package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scan module.
type Metrics struct {
	// Scan outcomes by result and denial reason
	ScanOutcome *prometheus.CounterVec

	// Occupancy increments that failed after an accepted scan
	OccupancyDriftWarnings prometheus.Counter

	// End-to-end scan pipeline latency
	SubmitLatency prometheus.Histogram
}

// New creates a new Metrics instance with all scan module metrics registered.
func New() *Metrics {
	return &Metrics{
		ScanOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "headcount_scan_outcomes_total",
			Help: "Total scan outcomes by result and denial reason",
		}, []string{"outcome", "reason"}),

		OccupancyDriftWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "headcount_scan_occupancy_drift_total",
			Help: "Accepted scans whose occupancy increment failed and was logged as drift",
		}),

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "headcount_scan_submit_duration_seconds",
			Help:    "Duration of a full scan submission including ban lookup and ledger write",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementOutcome records one scan outcome.
func (m *Metrics) IncrementOutcome(outcome, reason string) {
	if m != nil {
		m.ScanOutcome.WithLabelValues(outcome, reason).Inc()
	}
}

// IncrementDrift records an occupancy increment that failed after acceptance.
func (m *Metrics) IncrementDrift() {
	if m != nil {
		m.OccupancyDriftWarnings.Inc()
	}
}

// ObserveSubmitLatency records the total submission duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
