// Package metrics exposes Prometheus instrumentation for the generation
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline collectors. Constructed once per process and
// passed to the components that record into it.
type Metrics struct {
	JobsEnqueued  *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsCancelled *prometheus.CounterVec
	JobsRetried   *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	QueueDepth    prometheus.Gauge
	ActiveJobs    prometheus.Gauge
}

// New registers the pipeline collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "souschef_jobs_enqueued_total",
			Help: "Generation jobs accepted onto the queue.",
		}, []string{"kind"}),
		JobsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "souschef_jobs_completed_total",
			Help: "Generation jobs finished successfully.",
		}, []string{"kind"}),
		JobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "souschef_jobs_failed_total",
			Help: "Generation jobs finalized as failed.",
		}, []string{"kind"}),
		JobsCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "souschef_jobs_cancelled_total",
			Help: "Generation jobs aborted by a cancel request.",
		}, []string{"kind"}),
		JobsRetried: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "souschef_jobs_retried_total",
			Help: "Generation job attempts re-queued after a failure.",
		}, []string{"kind"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "souschef_job_duration_seconds",
			Help:    "Wall time spent processing a job attempt.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"kind"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "souschef_queue_depth",
			Help: "Jobs waiting on the pending list.",
		}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "souschef_active_jobs",
			Help: "Jobs currently held by a worker.",
		}),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
