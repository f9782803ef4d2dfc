// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_executions_total",
			Help: "Total number of onboarding executions by terminal state",
		},
		[]string{"state"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboarding_execution_duration_seconds",
			Help:    "Duration of onboarding executions from start to terminal state",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"status"},
	)

	ExecutionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onboarding_executions_active",
			Help: "Number of onboarding executions not yet terminal",
		},
	)

	TaskAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_task_attempts_total",
			Help: "Task attempts by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "onboarding_task_duration_seconds",
			Help: "Duration of a single task attempt",
		},
		[]string{"task"},
	)

	// DeadLetterWrites is alarmed on externally (>= 10 per window).
	DeadLetterWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_dead_letter_writes_total",
			Help: "Identity extraction failures written to the dead-letter sink",
		},
	)

	DeadLetterErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_dead_letter_errors_total",
			Help: "Dead-letter writes that could not be delivered",
		},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_notification_failures_total",
			Help: "Best-effort notifications that failed",
		},
		[]string{"channel"},
	)
)
