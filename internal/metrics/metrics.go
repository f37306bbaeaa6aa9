package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeCompleted labels jobs that produced a report.
	OutcomeCompleted = "completed"
	// OutcomeFailed labels jobs that ended in a stage fault.
	OutcomeFailed = "failed"

	// CacheHit and friends label summary cache lookups.
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_copilot",
			Name:      "jobs_total",
			Help:      "Total number of analysis jobs finished, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	jobDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_copilot",
			Name:      "job_seconds",
			Help:      "End-to-end analysis job latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mirador_copilot",
			Name:      "jobs_in_flight",
			Help:      "Jobs submitted but not yet finished.",
		},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mirador_copilot",
			Name:      "stage_seconds",
			Help:      "Pipeline stage latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 9),
		},
		[]string{"stage"},
	)

	rootCausesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_copilot",
			Name:      "root_causes_total",
			Help:      "Inferred root causes by label.",
		},
		[]string{"cause"},
	)

	summaryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_copilot",
			Name:      "summary_cache_total",
			Help:      "Summary cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Register attaches mirador-copilot collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		jobsTotal,
		jobDurationSeconds,
		jobsInFlight,
		stageDurationSeconds,
		rootCausesTotal,
		summaryCacheTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// JobStarted marks a job as in flight.
func JobStarted() {
	jobsInFlight.Inc()
}

// ObserveJob records a finished job duration and outcome label.
func ObserveJob(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeFailed {
		label = OutcomeCompleted
	}
	jobsInFlight.Dec()
	jobsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	jobDurationSeconds.Observe(duration.Seconds())
}

// ObserveStage records a single stage duration.
func ObserveStage(stage string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRootCause counts an inferred root cause.
func ObserveRootCause(cause string) {
	rootCausesTotal.WithLabelValues(cause).Inc()
}

// ObserveSummaryCache counts a summary cache lookup result.
func ObserveSummaryCache(result string) {
	summaryCacheTotal.WithLabelValues(result).Inc()
}
