package alerting

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openestate/watchtower/internal/models"
)

// TimerCanceler cancels all pending escalation work for an alert.
// Implemented by the escalation scheduler.
type TimerCanceler interface {
	CancelAlert(alertID string)
}

// Registry owns the lifecycle of in-flight alerts. An alert moves from
// triggered to resolved exactly once; acknowledgment is an orthogonal
// flag, not a state. Resolved alerts stay queryable until Clear.
//
// All mutations go through one mutex, which keeps the "at most one
// unresolved alert per rule" invariant and lets resolve/acknowledge
// cancel timers before returning.
type Registry struct {
	mu       sync.RWMutex
	alerts   map[string]*models.ActiveAlert // by alert id
	byRule   map[string]string              // rule id -> unresolved alert id
	canceler TimerCanceler
}

// NewRegistry creates an empty alert registry.
func NewRegistry() *Registry {
	return &Registry{
		alerts: make(map[string]*models.ActiveAlert),
		byRule: make(map[string]string),
	}
}

// SetCanceler registers the escalation scheduler so that resolve and
// acknowledge can cancel pending timers synchronously.
func (r *Registry) SetCanceler(c TimerCanceler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceler = c
}

// Trigger inserts a new unresolved alert for a rule. It fails with
// ErrConflict if an unresolved alert already exists for the rule. An
// empty message gets a default built from the rule and value.
func (r *Registry) Trigger(rule *models.AlertRule, value float64, message string, now time.Time) (*models.ActiveAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byRule[rule.ID]; ok {
		return nil, fmt.Errorf("rule %s: unresolved alert %w", rule.ID, ErrConflict)
	}

	if message == "" {
		message = fmt.Sprintf("%s: %s is %.2f (threshold %s %.2f)",
			rule.Name, rule.Metric, value, rule.Operator, rule.Threshold)
	}
	alert := &models.ActiveAlert{
		ID:           uuid.NewString(),
		RuleID:       rule.ID,
		RuleName:     rule.Name,
		Metric:       rule.Metric,
		CurrentValue: value,
		Threshold:    rule.Threshold,
		Severity:     rule.Severity,
		Message:      message,
		TriggeredAt:  now,
	}
	r.alerts[alert.ID] = alert
	r.byRule[rule.ID] = alert.ID
	return copyAlert(alert), nil
}

// Acknowledge marks an alert acknowledged and cancels its pending
// escalation timers. Acknowledging an already-acknowledged alert is a
// no-op returning success. Unknown ids return ErrNotFound.
func (r *Registry) Acknowledge(alertID, by string, now time.Time) error {
	r.mu.Lock()
	alert, ok := r.alerts[alertID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	if alert.Acknowledged {
		r.mu.Unlock()
		return nil
	}
	alert.Acknowledged = true
	alert.AcknowledgedBy = by
	t := now
	alert.AcknowledgedAt = &t
	canceler := r.canceler
	r.mu.Unlock()

	if canceler != nil {
		canceler.CancelAlert(alertID)
	}
	return nil
}

// ResolveByRule resolves the unresolved alert for a rule, if any, and
// cancels every pending escalation timer owned by it before returning.
func (r *Registry) ResolveByRule(ruleID string, now time.Time) (*models.ActiveAlert, error) {
	r.mu.Lock()
	alertID, ok := r.byRule[ruleID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("rule %s: unresolved alert %w", ruleID, ErrNotFound)
	}
	alert := r.resolveLocked(alertID, now)
	canceler := r.canceler
	r.mu.Unlock()

	if canceler != nil {
		canceler.CancelAlert(alertID)
	}
	return alert, nil
}

// Resolve resolves an alert by alert id, canceling its timers.
func (r *Registry) Resolve(alertID string, now time.Time) (*models.ActiveAlert, error) {
	r.mu.Lock()
	alert, ok := r.alerts[alertID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	if alert.Resolved {
		r.mu.Unlock()
		return copyAlert(alert), nil
	}
	resolved := r.resolveLocked(alertID, now)
	canceler := r.canceler
	r.mu.Unlock()

	if canceler != nil {
		canceler.CancelAlert(alertID)
	}
	return resolved, nil
}

// resolveLocked marks an alert resolved. Must be called with the
// mutex held and a known, unresolved alert id.
func (r *Registry) resolveLocked(alertID string, now time.Time) *models.ActiveAlert {
	alert := r.alerts[alertID]
	alert.Resolved = true
	t := now
	alert.ResolvedAt = &t
	delete(r.byRule, alert.RuleID)
	return copyAlert(alert)
}

// UnresolvedForRule returns the unresolved alert for a rule, if any.
func (r *Registry) UnresolvedForRule(ruleID string) (*models.ActiveAlert, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alertID, ok := r.byRule[ruleID]
	if !ok {
		return nil, false
	}
	return copyAlert(r.alerts[alertID]), true
}

// Get returns an alert by id.
func (r *Registry) Get(alertID string) (*models.ActiveAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[alertID]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	return copyAlert(alert), nil
}

// Open reports whether the alert is still unresolved and
// unacknowledged. Unknown ids report false; a deleted alert needs no
// further escalation.
func (r *Registry) Open(alertID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[alertID]
	return ok && alert.Open()
}

// MarkNotified records a delivered notification batch for an alert.
func (r *Registry) MarkNotified(alertID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.alerts[alertID]
	if !ok {
		return
	}
	t := at
	alert.LastNotified = &t
	alert.NotificationCount++
}

// Active returns unresolved alerts ordered by severity (critical
// first) then by trigger time descending within the same severity.
func (r *Registry) Active() []*models.ActiveAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ActiveAlert, 0, len(r.byRule))
	for _, alertID := range r.byRule {
		out = append(out, copyAlert(r.alerts[alertID]))
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].TriggeredAt.After(out[j].TriggeredAt)
	})
	return out
}

// CountBySeverity returns the number of unresolved alerts per severity.
func (r *Registry) CountBySeverity() map[models.Severity]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.Severity]int)
	for _, alertID := range r.byRule {
		counts[r.alerts[alertID].Severity]++
	}
	return counts
}

// All returns every alert, resolved included, newest first.
func (r *Registry) All() []*models.ActiveAlert {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ActiveAlert, 0, len(r.alerts))
	for _, alert := range r.alerts {
		out = append(out, copyAlert(alert))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TriggeredAt.After(out[j].TriggeredAt)
	})
	return out
}

// Clear drops all resolved alerts.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, alert := range r.alerts {
		if alert.Resolved {
			delete(r.alerts, id)
		}
	}
}

func copyAlert(a *models.ActiveAlert) *models.ActiveAlert {
	c := *a
	if a.LastNotified != nil {
		t := *a.LastNotified
		c.LastNotified = &t
	}
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
