package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// phaseBucketBoundaries covers sub-second offline runs through multi-minute
// live extractions.
var phaseBucketBoundaries = []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800}

// Pipeline metrics, registered on the default registry.
var (
	// ExtractorRuns counts completed extractor executions by outcome.
	ExtractorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sapforensics_extractor_runs_total",
		Help: "Completed extractor executions by outcome.",
	}, []string{"extractor", "status"})

	// PhaseDuration observes wall-clock duration per pipeline phase.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sapforensics_phase_duration_seconds",
		Help:    "Wall-clock duration of each pipeline phase.",
		Buckets: phaseBucketBoundaries,
	}, []string{"phase"})

	// ObserverFailures counts observer callbacks that panicked and were
	// swallowed.
	ObserverFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sapforensics_observer_failures_total",
		Help: "Observer callbacks that panicked and were swallowed.",
	})
)

// Extractor run outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeCached   = "cached"
	OutcomeSkipped  = "skipped"
	OutcomeCanceled = "canceled"
)

// RecordExtractorRun counts one extractor completion.
func RecordExtractorRun(extractorID, outcome string) {
	ExtractorRuns.WithLabelValues(extractorID, outcome).Inc()
}

// RecordPhase observes one phase duration.
func RecordPhase(phase string, elapsed time.Duration) {
	PhaseDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}
