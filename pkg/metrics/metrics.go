package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	cvAnalysis = "cv_analysis"

	// Job metrics
	jobsSubmittedTotal  = "jobs_submitted_total"
	jobsFinishedTotal   = "jobs_finished_total"
	jobsRunning         = "jobs_running"
	jobDurationSeconds  = "job_duration_seconds"
	itemsProcessedTotal = "items_processed_total"

	// Janitor metrics
	janitorDeletedJobsTotal = "janitor_deleted_jobs_total"
	janitorSweepsTotal      = "janitor_sweeps_total"

	// Labels
	jobStatusLabel    = "status"
	itemOutcomeLabel  = "outcome"
	sweepTriggerLabel = "trigger"
)

/**
* Metrics definition
**/
var jobsSubmittedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: cvAnalysis,
		Name:      jobsSubmittedTotal,
		Help:      "number of submitted analysis jobs",
	},
)

var jobsFinishedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: cvAnalysis,
		Name:      jobsFinishedTotal,
		Help:      "number of analysis jobs that reached a terminal state",
	},
	[]string{jobStatusLabel},
)

var jobsRunningMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: cvAnalysis,
		Name:      jobsRunning,
		Help:      "number of analysis jobs currently processed by a worker",
	},
)

var jobDurationSecondsMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: cvAnalysis,
		Name:      jobDurationSeconds,
		Help:      "time spent processing an analysis job",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
	},
	[]string{jobStatusLabel},
)

var itemsProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: cvAnalysis,
		Name:      itemsProcessedTotal,
		Help:      "number of documents processed, partitioned by outcome",
	},
	[]string{itemOutcomeLabel},
)

var janitorDeletedJobsTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: cvAnalysis,
		Name:      janitorDeletedJobsTotal,
		Help:      "number of stale jobs removed by the janitor",
	},
)

var janitorSweepsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: cvAnalysis,
		Name:      janitorSweepsTotal,
		Help:      "number of janitor sweeps, partitioned by what triggered them",
	},
	[]string{sweepTriggerLabel},
)

func IncreaseJobsSubmittedMetric() {
	jobsSubmittedTotalMetric.Inc()
}

func IncreaseJobsFinishedMetric(status string, seconds float64) {
	labels := prometheus.Labels{
		jobStatusLabel: status,
	}
	jobsFinishedTotalMetric.With(labels).Inc()
	jobDurationSecondsMetric.With(labels).Observe(seconds)
}

func IncreaseRunningJobsMetric() {
	jobsRunningMetric.Inc()
}

func DecreaseRunningJobsMetric() {
	jobsRunningMetric.Dec()
}

func IncreaseItemsProcessedMetric(outcome string) {
	itemsProcessedTotalMetric.With(prometheus.Labels{itemOutcomeLabel: outcome}).Inc()
}

func IncreaseJanitorMetrics(trigger string, deleted int64) {
	janitorSweepsTotalMetric.With(prometheus.Labels{sweepTriggerLabel: trigger}).Inc()
	janitorDeletedJobsTotalMetric.Add(float64(deleted))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsSubmittedTotalMetric)
	prometheus.MustRegister(jobsFinishedTotalMetric)
	prometheus.MustRegister(jobsRunningMetric)
	prometheus.MustRegister(jobDurationSecondsMetric)
	prometheus.MustRegister(itemsProcessedTotalMetric)
	prometheus.MustRegister(janitorDeletedJobsTotalMetric)
	prometheus.MustRegister(janitorSweepsTotalMetric)
	prometheus.MustRegister(totalUniqueSessionsPerWeekMetric)
}
