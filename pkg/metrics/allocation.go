package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AllocationMetrics counts allocation engine outcomes.
type AllocationMetrics struct {
	outcomes  *prometheus.CounterVec
	shortages *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	retries   prometheus.Counter
}

// NewAllocationMetrics registers the allocation metrics on the provided registerer.
func NewAllocationMetrics(reg prometheus.Registerer) *AllocationMetrics {
	if reg == nil {
		return &AllocationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_operations_total",
		Help: "Allocation engine operations by outcome.",
	}, []string{"operation", "outcome"})
	shortages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_shortage_lines_total",
		Help: "Shortage lines reported by rejected allocations.",
	}, []string{"operation"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_duration_seconds",
		Help:    "Duration of allocation engine operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_tx_retries_total",
		Help: "Transactions re-run after a serialization failure or deadlock.",
	})
	reg.MustRegister(outcomes, shortages, duration, retries)
	return &AllocationMetrics{
		outcomes:  outcomes,
		shortages: shortages,
		duration:  duration,
		retries:   retries,
	}
}

// Observe records the outcome and duration of one operation.
func (m *AllocationMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	operation = normalizeLabel(operation)
	m.outcomes.WithLabelValues(operation, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// AddShortages counts shortage lines reported by a rejected operation.
func (m *AllocationMetrics) AddShortages(operation string, lines int) {
	if m == nil || m.shortages == nil || lines <= 0 {
		return
	}
	m.shortages.WithLabelValues(normalizeLabel(operation)).Add(float64(lines))
}

// IncRetry counts one transaction retry.
func (m *AllocationMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}
