package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scheduler module.
type Metrics struct {
	// Poll cycle outcomes by result
	Cycles *prometheus.CounterVec

	// Full cycle latency from fetch through persistence
	CycleLatency prometheus.Histogram

	// Membership change events emitted by kind
	ChangeEvents *prometheus.CounterVec

	// Subjects currently tracked with an active polling loop
	TrackedSubjects prometheus.Gauge

	// Credential rotations triggered by consecutive failures
	Rotations prometheus.Counter

	// Near-miss name groupings flagged during merging
	MergeAmbiguities prometheus.Counter
}

// New creates a new Metrics instance with all scheduler metrics registered.
func New() *Metrics {
	return &Metrics{
		Cycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "commwatch_scheduler_cycles_total",
			Help: "Total poll cycles by result",
		}, []string{"result"}), // result: "ok", "transient_error", "auth_expired", "permanent_error", "persist_error"

		CycleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "commwatch_scheduler_cycle_duration_seconds",
			Help:    "Duration of a full poll cycle including persistence",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		ChangeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "commwatch_change_events_total",
			Help: "Total membership change events emitted by kind",
		}, []string{"kind"}),

		TrackedSubjects: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "commwatch_tracked_subjects",
			Help: "Subjects with an active polling loop",
		}),

		Rotations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "commwatch_credential_rotations_total",
			Help: "Credential rotations triggered by consecutive fetch failures",
		}),

		MergeAmbiguities: promauto.NewCounter(prometheus.CounterOpts{
			Name: "commwatch_merge_ambiguities_total",
			Help: "Candidate groupings that fell just short of the fuzzy match threshold",
		}),
	}
}

// IncrementCycle records a completed poll cycle outcome.
func (m *Metrics) IncrementCycle(result string) {
	if m != nil {
		m.Cycles.WithLabelValues(result).Inc()
	}
}

// ObserveCycleLatency records the duration of a full poll cycle.
func (m *Metrics) ObserveCycleLatency(d time.Duration) {
	if m != nil {
		m.CycleLatency.Observe(d.Seconds())
	}
}

// IncrementChangeEvent records an emitted membership change event.
func (m *Metrics) IncrementChangeEvent(kind string) {
	if m != nil {
		m.ChangeEvents.WithLabelValues(kind).Inc()
	}
}

// TrackSubject adjusts the tracked subject gauge.
func (m *Metrics) TrackSubject(delta float64) {
	if m != nil {
		m.TrackedSubjects.Add(delta)
	}
}

// IncrementRotation records a credential rotation.
func (m *Metrics) IncrementRotation() {
	if m != nil {
		m.Rotations.Inc()
	}
}

// IncrementMergeAmbiguity records a near-miss fuzzy grouping.
func (m *Metrics) IncrementMergeAmbiguity() {
	if m != nil {
		m.MergeAmbiguities.Inc()
	}
}
