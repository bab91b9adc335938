package models

import (
	"fmt"
	"time"
)

// EscalationStep is one timed step of an escalation policy. A step
// with zero delay dispatches as soon as the alert triggers. A step
// with RepeatInterval and MaxRepeats > 0 re-dispatches to the same
// channels after it first fires, until the alert is acknowledged or
// resolved or the repeat budget is spent.
type EscalationStep struct {
	Delay          time.Duration `json:"delay" yaml:"delay"`
	ChannelIDs     []string      `json:"channel_ids" yaml:"channel_ids"`
	RepeatInterval time.Duration `json:"repeat_interval,omitempty" yaml:"repeat_interval,omitempty"`
	MaxRepeats     int           `json:"max_repeats,omitempty" yaml:"max_repeats,omitempty"`
}

// EscalationPolicy is an ordered list of time-delayed notification
// steps applied to an alert. Severities is the explicit mapping used
// to select a policy for a triggered alert; a policy marked Default is
// the fallback when no severity match exists.
type EscalationPolicy struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	Enabled    bool             `json:"enabled" yaml:"enabled"`
	Default    bool             `json:"default,omitempty" yaml:"default,omitempty"`
	Severities []Severity       `json:"severities,omitempty" yaml:"severities,omitempty"`
	Steps      []EscalationStep `json:"steps" yaml:"steps"`
}

// Validate checks the policy configuration.
func (p *EscalationPolicy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("policy %q must define at least one step", p.Name)
	}
	for i, step := range p.Steps {
		if step.Delay < 0 {
			return fmt.Errorf("policy %q step %d: delay must not be negative", p.Name, i)
		}
		if len(step.ChannelIDs) == 0 {
			return fmt.Errorf("policy %q step %d: at least one channel is required", p.Name, i)
		}
		if step.MaxRepeats < 0 {
			return fmt.Errorf("policy %q step %d: max_repeats must not be negative", p.Name, i)
		}
		if step.MaxRepeats > 0 && step.RepeatInterval <= 0 {
			return fmt.Errorf("policy %q step %d: repeat_interval is required when max_repeats is set", p.Name, i)
		}
	}
	for _, sev := range p.Severities {
		if !sev.Valid() {
			return fmt.Errorf("policy %q: invalid severity %q", p.Name, sev)
		}
	}
	return nil
}

// AppliesTo reports whether the policy is mapped to the given severity.
func (p *EscalationPolicy) AppliesTo(severity Severity) bool {
	for _, s := range p.Severities {
		if s == severity {
			return true
		}
	}
	return false
}
