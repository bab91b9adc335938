package models

import "time"

// ActiveAlert is a live instance of a rule breach, tracked until resolved.
// At most one unresolved ActiveAlert exists per rule id at any time.
type ActiveAlert struct {
	ID           string   `json:"id"`
	RuleID       string   `json:"rule_id"`
	RuleName     string   `json:"rule_name"`
	Metric       string   `json:"metric"`
	CurrentValue float64  `json:"current_value"`
	Threshold    float64  `json:"threshold"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`

	TriggeredAt       time.Time  `json:"triggered_at"`
	LastNotified      *time.Time `json:"last_notified,omitempty"`
	NotificationCount int        `json:"notification_count"`

	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`

	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Open reports whether the alert still needs attention: neither
// resolved nor acknowledged. Pending escalation steps only fire while
// the alert is open.
func (a *ActiveAlert) Open() bool {
	return !a.Resolved && !a.Acknowledged
}

// Duration returns how long the alert was (or has been) active.
func (a *ActiveAlert) Duration(now time.Time) time.Duration {
	if a.Resolved && a.ResolvedAt != nil {
		return a.ResolvedAt.Sub(a.TriggeredAt)
	}
	return now.Sub(a.TriggeredAt)
}
