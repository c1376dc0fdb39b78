package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the deletion engine: audit rows written,
// cascade outcomes and durations, privacy sweep erasures.
// All methods are safe on a nil receiver.
type Metrics struct {
	LogsCreated      *prometheus.CounterVec
	Cascades         *prometheus.CounterVec
	CascadeDuration  *prometheus.HistogramVec
	SweepErasures    *prometheus.CounterVec
	IndexEvictErrors prometheus.Counter
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LogsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_deletion_logs_created_total",
			Help: "Total number of deletion log rows written",
		}, []string{"model", "type"}),
		Cascades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_deletion_operations_total",
			Help: "Deletion operations by outcome (ok or error code)",
		}, []string{"operation", "outcome"}),
		CascadeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rental_deletion_operation_duration_seconds",
			Help:    "Duration of deletion operations including commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		SweepErasures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rental_privacy_sweep_profiles_total",
			Help: "User profiles handled by the privacy sweep by result",
		}, []string{"result"}),
		IndexEvictErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "rental_search_evictions_failed_total",
			Help: "Search index evictions that failed after a committed delete",
		}),
	}
}

// IncrementLogCreated records one deletion log row.
func (m *Metrics) IncrementLogCreated(model, deletionType string) {
	if m == nil {
		return
	}
	m.LogsCreated.WithLabelValues(model, deletionType).Inc()
}

// ObserveOperation records the outcome and duration of a deletion operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Cascades.WithLabelValues(operation, outcome).Inc()
	m.CascadeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementSweep records one profile handled by the privacy sweep.
func (m *Metrics) IncrementSweep(result string) {
	if m == nil {
		return
	}
	m.SweepErasures.WithLabelValues(result).Inc()
}

// IncrementIndexEvictError records a failed search eviction.
func (m *Metrics) IncrementIndexEvictError() {
	if m == nil {
		return
	}
	m.IndexEvictErrors.Inc()
}
