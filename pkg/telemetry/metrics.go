package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var experimentsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "chaos_experiments_total",
		Help: "Total number of chaos experiments by terminal status.",
	},
	[]string{"status"},
)

var experimentDurationSeconds = promauto.With(prometheus.DefaultRegisterer).NewHistogram(
	prometheus.HistogramOpts{
		Name:    "chaos_experiment_duration_seconds",
		Help:    "Wall-clock duration of chaos experiments from start to terminal state.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	},
)

var recoveryActionsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "chaos_recovery_actions_total",
		Help: "Total number of recovery actions by kind and outcome.",
	},
	[]string{"kind", "status"},
)

var watchdogRuleTriggersTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "chaos_watchdog_rule_triggers_total",
		Help: "Total number of auto-recovery rule activations.",
	},
	[]string{"rule"},
)

// RecordExperiment increments the terminal status counter and observes the duration
func RecordExperiment(status string, durationSeconds float64) {
	experimentsTotal.WithLabelValues(status).Inc()
	experimentDurationSeconds.Observe(durationSeconds)
}

// RecordRecoveryAction increments the recovery action counter
func RecordRecoveryAction(kind, status string) {
	recoveryActionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordWatchdogTrigger increments the rule activation counter
func RecordWatchdogTrigger(rule string) {
	watchdogRuleTriggersTotal.WithLabelValues(rule).Inc()
}
