// Package models defines domain models for Watchtower.
package models

import (
	"fmt"
	"time"
)

// Operator is the comparison operator applied to a metric value.
type Operator string

const (
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpEqual          Operator = "eq"
	OpNotEqual       Operator = "ne"
)

// floatEpsilon is the tolerance for float64 equality comparison,
// avoiding unreliable direct == on floating-point values.
const floatEpsilon = 1e-9

// Apply evaluates the operator against a value and threshold.
// Unknown operators never match.
func (o Operator) Apply(value, threshold float64) bool {
	switch o {
	case OpGreaterThan:
		return value > threshold
	case OpGreaterOrEqual:
		return value >= threshold
	case OpLessThan:
		return value < threshold
	case OpLessOrEqual:
		return value <= threshold
	case OpEqual:
		diff := value - threshold
		if diff < 0 {
			diff = -diff
		}
		return diff < floatEpsilon
	case OpNotEqual:
		diff := value - threshold
		if diff < 0 {
			diff = -diff
		}
		return diff >= floatEpsilon
	default:
		return false
	}
}

// Valid reports whether the operator is a known comparison.
func (o Operator) Valid() bool {
	switch o {
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual, OpEqual, OpNotEqual:
		return true
	default:
		return false
	}
}

// Severity represents alert severity level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort rank of a severity, lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Valid reports whether the severity is known.
func (s Severity) Valid() bool {
	return s == SeverityCritical || s == SeverityWarning || s == SeverityInfo
}

// ParseSeverity converts a string to Severity, defaulting to warning.
func ParseSeverity(s string) Severity {
	switch s {
	case "critical", "CRITICAL":
		return SeverityCritical
	case "warning", "WARNING":
		return SeverityWarning
	case "info", "INFO":
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// AlertRule is a named threshold condition over one metric.
type AlertRule struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Metric      string        `json:"metric" yaml:"metric"`
	Operator    Operator      `json:"operator" yaml:"operator"`
	Threshold   float64       `json:"threshold" yaml:"threshold"`
	Severity    Severity      `json:"severity" yaml:"severity"`
	Cooldown    time.Duration `json:"cooldown" yaml:"cooldown"`
	PolicyID    string        `json:"policy_id,omitempty" yaml:"policy_id,omitempty"`
	Enabled     bool          `json:"enabled" yaml:"enabled"`

	// Trigger bookkeeping, maintained by the evaluator.
	LastTriggered *time.Time `json:"last_triggered,omitempty" yaml:"-"`
	TriggerCount  int        `json:"trigger_count" yaml:"-"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// NewAlertRule creates an enabled rule with initialized timestamps.
func NewAlertRule(name, metric string, op Operator, threshold float64, severity Severity) *AlertRule {
	now := time.Now()
	return &AlertRule{
		Name:      name,
		Metric:    metric,
		Operator:  op,
		Threshold: threshold,
		Severity:  severity,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the rule configuration.
func (r *AlertRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.Metric == "" {
		return fmt.Errorf("metric is required for rule %q", r.Name)
	}
	if !r.Operator.Valid() {
		return fmt.Errorf("invalid operator %q for rule %q", r.Operator, r.Name)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("invalid severity %q for rule %q", r.Severity, r.Name)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative for rule %q", r.Name)
	}
	return nil
}

// InCooldown reports whether the rule is still inside its cooldown
// window at the given time.
func (r *AlertRule) InCooldown(now time.Time) bool {
	if r.Cooldown <= 0 || r.LastTriggered == nil {
		return false
	}
	return now.Before(r.LastTriggered.Add(r.Cooldown))
}
