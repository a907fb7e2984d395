package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_sweep_reminders_processed_total",
		Help: "Reminders handled by the due-reminder sweep, by result.",
	}, []string{"instance_id", "result"})

	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_sweep_runs_total",
		Help: "Number of sweep invocations.",
	}, []string{"instance_id"})

	sweepDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reminder_sweep_duration_seconds",
		Help:    "Duration of one sweep invocation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"instance_id"})
)

const (
	metricResultSent    = "sent"
	metricResultFailed  = "failed"
	metricResultSkipped = "skipped"
	metricResultError   = "error"
)
