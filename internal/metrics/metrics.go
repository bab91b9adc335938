// Package metrics provides Prometheus metrics for Watchtower.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "watchtower"
)

// Evaluator metrics
var (
	// EvaluationTicks counts evaluation passes over the rule set.
	EvaluationTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "ticks_total",
			Help:      "Total rule evaluation passes",
		},
	)

	// AlertsTriggered counts triggered alerts by severity.
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "triggered_total",
			Help:      "Total alerts triggered",
		},
		[]string{"severity"},
	)

	// AlertsResolved counts resolved alerts.
	AlertsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "resolved_total",
			Help:      "Total alerts resolved",
		},
	)

	// AlertsSuppressed counts triggers suppressed by cooldown.
	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Total alert triggers suppressed by cooldown",
		},
	)

	// RuleEvalErrors counts rule evaluation failures.
	RuleEvalErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "rule_errors_total",
			Help:      "Total rule evaluation errors",
		},
	)
)

// Escalation metrics
var (
	// EscalationStepsScheduled counts scheduled escalation steps.
	EscalationStepsScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "steps_scheduled_total",
			Help:      "Total escalation steps scheduled",
		},
	)

	// EscalationsCanceled counts alerts whose pending timers were canceled.
	EscalationsCanceled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "canceled_total",
			Help:      "Total escalations canceled by acknowledge or resolve",
		},
	)

	// EscalationTimersActive tracks alerts with pending timers.
	EscalationTimersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "escalation",
			Name:      "timers_active",
			Help:      "Alerts with pending escalation timers",
		},
	)
)

// Notification metrics
var (
	// NotificationsTotal counts send attempts by channel type and outcome.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total notification send attempts",
		},
		[]string{"channel_type", "status"},
	)

	// NotificationDuration tracks send latency by channel type.
	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "duration_seconds",
			Help:      "Notification send latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel_type"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)
