package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision engine.
type Metrics struct {
	// Terminal outcomes by masking level and status.
	DecisionOutcome *prometheus.CounterVec

	// Full decision latency including history lookup and masking.
	DecideLatency prometheus.Histogram

	// History store query latency.
	HistoryLatency prometheus.Histogram

	// Decrypt accounting operations by result.
	DecryptOps *prometheus.CounterVec
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_decision_outcomes_total",
			Help: "Total terminal masking decisions by level and status",
		}, []string{"level", "status"}),

		DecideLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veil_decision_duration_seconds",
			Help:    "Duration of full masking decisions including history lookup",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),

		HistoryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veil_history_query_duration_seconds",
			Help:    "Duration of history window queries",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		DecryptOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_decrypt_operations_total",
			Help: "Total decrypt accounting operations by result",
		}, []string{"result"}),
	}
}

// IncrementOutcome records a terminal decision.
func (m *Metrics) IncrementOutcome(level, status string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(level, status).Inc()
	}
}

// ObserveDecideLatency records the total decision duration.
func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}

// ObserveHistoryLatency records one history query duration.
func (m *Metrics) ObserveHistoryLatency(d time.Duration) {
	if m != nil {
		m.HistoryLatency.Observe(d.Seconds())
	}
}

// IncrementDecrypt records a decrypt attempt.
func (m *Metrics) IncrementDecrypt(result string) {
	if m != nil {
		m.DecryptOps.WithLabelValues(result).Inc()
	}
}
