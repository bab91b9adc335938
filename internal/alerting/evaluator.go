package alerting

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/openestate/watchtower/internal/metrics"
	"github.com/openestate/watchtower/internal/models"
	"github.com/openestate/watchtower/internal/monitor"
)

// Escalator receives lifecycle events for alerts. Implemented by the
// escalation scheduler.
type Escalator interface {
	// Schedule starts the escalation pipeline for a freshly
	// triggered alert.
	Schedule(alert *models.ActiveAlert)
	// NotifyResolved announces a resolution through the alert's
	// immediate notification channels.
	NotifyResolved(alert *models.ActiveAlert)
}

// SystemHealthRuleID is the synthetic rule id used to dedup alerts
// created from health-status transitions.
const SystemHealthRuleID = "system-health"

// EvaluatorOptions configures the evaluator.
type EvaluatorOptions struct {
	// Interval is the evaluation tick period. Defaults to one minute.
	Interval time.Duration
}

// Evaluator polls the metric source on a fixed tick, applies the rule
// set, and drives trigger/resolve transitions on the registry. It also
// subscribes to health-status transitions and synthesizes a
// system_health alert outside the threshold-rule path.
type Evaluator struct {
	rules     *RuleStore
	registry  *Registry
	source    monitor.MetricSource
	recorder  *monitor.Recorder
	escalator Escalator
	interval  time.Duration
}

// NewEvaluator creates an evaluator. The recorder is optional; when
// set, every tick's snapshot is recorded for the metrics-history API.
func NewEvaluator(rules *RuleStore, registry *Registry, source monitor.MetricSource, recorder *monitor.Recorder, escalator Escalator, opts *EvaluatorOptions) *Evaluator {
	interval := time.Minute
	if opts != nil && opts.Interval > 0 {
		interval = opts.Interval
	}
	return &Evaluator{
		rules:     rules,
		registry:  registry,
		source:    source,
		recorder:  recorder,
		escalator: escalator,
		interval:  interval,
	}
}

// Run evaluates rules on the configured interval until the context is
// canceled. One immediate tick runs at start.
func (e *Evaluator) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.Tick(time.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			e.Tick(now)
		}
	}
}

// Tick takes one metric snapshot and evaluates all rules against it.
func (e *Evaluator) Tick(now time.Time) {
	snapshot := e.source.Snapshot()
	if e.recorder != nil {
		e.recorder.Record(snapshot)
	}
	e.EvaluateAt(snapshot, now)
}

// EvaluateAt evaluates every enabled rule against a snapshot at a
// specific time. A single rule's failure never aborts the others.
func (e *Evaluator) EvaluateAt(snapshot monitor.Snapshot, now time.Time) {
	metrics.EvaluationTicks.Inc()

	for _, rule := range e.rules.List() {
		e.evaluateRule(rule, snapshot, now)
	}
}

// evaluateRule applies one rule, recovering from panics so a broken
// rule cannot take down the evaluation tick.
func (e *Evaluator) evaluateRule(rule *models.AlertRule, snapshot monitor.Snapshot, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RuleEvalErrors.Inc()
			log.Printf("rule %q evaluation panic: %v", rule.Name, r)
		}
	}()

	if !rule.Enabled {
		return
	}
	value, ok := snapshot.Value(rule.Metric)
	if !ok {
		return
	}

	breach := rule.Operator.Apply(value, rule.Threshold)
	_, active := e.registry.UnresolvedForRule(rule.ID)

	switch {
	case breach && !active:
		if rule.InCooldown(now) {
			metrics.AlertsSuppressed.Inc()
			return
		}
		alert, err := e.registry.Trigger(rule, value, "", now)
		if err != nil {
			// Lost the race to another trigger for the same rule.
			if errors.Is(err, ErrConflict) {
				return
			}
			metrics.RuleEvalErrors.Inc()
			log.Printf("rule %q trigger failed: %v", rule.Name, err)
			return
		}
		e.rules.MarkTriggered(rule.ID, now)
		metrics.AlertsTriggered.WithLabelValues(string(rule.Severity)).Inc()
		log.Printf("alert triggered: rule=%q metric=%s value=%.2f threshold=%.2f", rule.Name, rule.Metric, value, rule.Threshold)

		// Escalation runs off the evaluation loop; the scheduler
		// registers its timer handles before dispatching.
		go e.escalator.Schedule(alert)

	case !breach && active:
		resolved, err := e.registry.ResolveByRule(rule.ID, now)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return
			}
			metrics.RuleEvalErrors.Inc()
			log.Printf("rule %q resolve failed: %v", rule.Name, err)
			return
		}
		metrics.AlertsResolved.Inc()
		log.Printf("alert resolved: rule=%q metric=%s value=%.2f", rule.Name, rule.Metric, value)
		go e.escalator.NotifyResolved(resolved)
	}
}

// HandleHealthTransition synthesizes or resolves the system_health
// alert from an external health monitor transition: unhealthy maps to
// critical, degraded to warning, healthy resolves.
func (e *Evaluator) HandleHealthTransition(t monitor.Transition) {
	now := time.Now()

	severity, breached := healthSeverity(t.To)

	existing, active := e.registry.UnresolvedForRule(SystemHealthRuleID)
	if active && (!breached || existing.Severity != severity) {
		resolved, err := e.registry.ResolveByRule(SystemHealthRuleID, now)
		if err == nil {
			metrics.AlertsResolved.Inc()
			log.Printf("system health alert resolved: %s -> %s", t.From, t.To)
			if !breached {
				go e.escalator.NotifyResolved(resolved)
			}
		}
		active = false
	}

	if !breached || active {
		return
	}

	rule := &models.AlertRule{
		ID:        SystemHealthRuleID,
		Name:      "System health",
		Metric:    "system_health",
		Severity:  severity,
		Threshold: 0,
	}
	message := "System health degraded: " + string(t.From) + " -> " + string(t.To)
	alert, err := e.registry.Trigger(rule, 0, message, now)
	if err != nil {
		log.Printf("system health trigger failed: %v", err)
		return
	}
	metrics.AlertsTriggered.WithLabelValues(string(severity)).Inc()
	log.Printf("system health alert triggered: %s -> %s", t.From, t.To)
	go e.escalator.Schedule(alert)
}

// healthSeverity maps a health status to an alert severity. The second
// return is false when the status needs no alert.
func healthSeverity(s monitor.Status) (models.Severity, bool) {
	switch s {
	case monitor.StatusUnhealthy:
		return models.SeverityCritical, true
	case monitor.StatusDegraded:
		return models.SeverityWarning, true
	default:
		return "", false
	}
}
