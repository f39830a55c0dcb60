package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the occupancy module.
type Metrics struct {
	// Delta applications by event type
	DeltaApplied *prometheus.CounterVec

	// Events whose raw sum would have driven occupancy negative
	ClampHits prometheus.Counter

	// Reset outcomes by scope and per-area result
	ResetAreas *prometheus.CounterVec

	// End-to-end delta application latency
	ApplyLatency prometheus.Histogram
}

// New creates a new Metrics instance with all occupancy module metrics registered.
func New() *Metrics {
	return &Metrics{
		DeltaApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "headcount_occupancy_deltas_total",
			Help: "Total occupancy delta applications by event type",
		}, []string{"event_type"}),

		ClampHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "headcount_occupancy_clamp_hits_total",
			Help: "Delta applications where the floor-at-zero clamp engaged",
		}),

		ResetAreas: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "headcount_occupancy_reset_areas_total",
			Help: "Per-area reset outcomes by requested scope and result",
		}, []string{"scope", "result"}),

		ApplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "headcount_occupancy_apply_duration_seconds",
			Help:    "Duration of a full delta application including snapshot update",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementDelta records one applied delta.
func (m *Metrics) IncrementDelta(eventType string) {
	if m != nil {
		m.DeltaApplied.WithLabelValues(eventType).Inc()
	}
}

// IncrementClamp records an application where the clamp raised the result to zero.
func (m *Metrics) IncrementClamp() {
	if m != nil {
		m.ClampHits.Inc()
	}
}

// IncrementResetArea records one area's reset outcome.
func (m *Metrics) IncrementResetArea(scope, result string) {
	if m != nil {
		m.ResetAreas.WithLabelValues(scope, result).Inc()
	}
}

// ObserveApplyLatency records the total delta application duration.
func (m *Metrics) ObserveApplyLatency(d time.Duration) {
	if m != nil {
		m.ApplyLatency.Observe(d.Seconds())
	}
}
