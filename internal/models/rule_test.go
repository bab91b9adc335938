package models

import (
	"strings"
	"testing"
	"time"
)

func TestOperatorApply(t *testing.T) {
	tests := []struct {
		name      string
		op        Operator
		value     float64
		threshold float64
		want      bool
	}{
		{"gt above", OpGreaterThan, 85, 80, true},
		{"gt equal", OpGreaterThan, 80, 80, false},
		{"gt below", OpGreaterThan, 75, 80, false},
		{"gte above", OpGreaterOrEqual, 85, 80, true},
		{"gte equal", OpGreaterOrEqual, 80, 80, true},
		{"gte below", OpGreaterOrEqual, 75, 80, false},
		{"lt below", OpLessThan, 75, 80, true},
		{"lt equal", OpLessThan, 80, 80, false},
		{"lte equal", OpLessOrEqual, 80, 80, true},
		{"lte above", OpLessOrEqual, 85, 80, false},
		{"eq exact", OpEqual, 80, 80, true},
		{"eq within epsilon", OpEqual, 80.0000000001, 80, true},
		{"eq outside epsilon", OpEqual, 80.001, 80, false},
		{"eq float artifact", OpEqual, 0.1 + 0.2, 0.3, true},
		{"ne exact", OpNotEqual, 80, 80, false},
		{"ne within epsilon", OpNotEqual, 80.0000000001, 80, false},
		{"ne different", OpNotEqual, 81, 80, true},
		{"unknown operator", Operator("between"), 85, 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.Apply(tt.value, tt.threshold); got != tt.want {
				t.Errorf("%s.Apply(%v, %v) = %v, want %v", tt.op, tt.value, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestSeverityRank(t *testing.T) {
	if SeverityCritical.Rank() >= SeverityWarning.Rank() {
		t.Error("critical should rank before warning")
	}
	if SeverityWarning.Rank() >= SeverityInfo.Rank() {
		t.Error("warning should rank before info")
	}
	if Severity("bogus").Rank() <= SeverityInfo.Rank() {
		t.Error("unknown severity should rank last")
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"critical", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{"warning", SeverityWarning},
		{"info", SeverityInfo},
		{"unknown", SeverityWarning},
		{"", SeverityWarning},
	}
	for _, tt := range tests {
		if got := ParseSeverity(tt.in); got != tt.want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAlertRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    AlertRule
		wantErr bool
		errMsg  string
	}{
		{
			name:    "empty name",
			rule:    AlertRule{},
			wantErr: true,
			errMsg:  "name is required",
		},
		{
			name:    "missing metric",
			rule:    AlertRule{Name: "high-cpu"},
			wantErr: true,
			errMsg:  "metric is required",
		},
		{
			name: "invalid operator",
			rule: AlertRule{
				Name:     "high-cpu",
				Metric:   "cpu_usage",
				Operator: "between",
				Severity: SeverityWarning,
			},
			wantErr: true,
			errMsg:  "invalid operator",
		},
		{
			name: "invalid severity",
			rule: AlertRule{
				Name:     "high-cpu",
				Metric:   "cpu_usage",
				Operator: OpGreaterThan,
				Severity: "fatal",
			},
			wantErr: true,
			errMsg:  "invalid severity",
		},
		{
			name: "negative cooldown",
			rule: AlertRule{
				Name:     "high-cpu",
				Metric:   "cpu_usage",
				Operator: OpGreaterThan,
				Severity: SeverityWarning,
				Cooldown: -time.Minute,
			},
			wantErr: true,
			errMsg:  "cooldown",
		},
		{
			name: "valid rule",
			rule: AlertRule{
				Name:      "high-cpu",
				Metric:    "cpu_usage",
				Operator:  OpGreaterThan,
				Threshold: 80,
				Severity:  SeverityWarning,
				Cooldown:  15 * time.Minute,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAlertRuleInCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	triggered := now.Add(-10 * time.Minute)

	tests := []struct {
		name string
		rule AlertRule
		want bool
	}{
		{
			name: "never triggered",
			rule: AlertRule{Cooldown: 15 * time.Minute},
			want: false,
		},
		{
			name: "no cooldown configured",
			rule: AlertRule{LastTriggered: &triggered},
			want: false,
		},
		{
			name: "inside window",
			rule: AlertRule{Cooldown: 15 * time.Minute, LastTriggered: &triggered},
			want: true,
		},
		{
			name: "window elapsed",
			rule: AlertRule{Cooldown: 5 * time.Minute, LastTriggered: &triggered},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.InCooldown(now); got != tt.want {
				t.Errorf("InCooldown = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActiveAlertOpen(t *testing.T) {
	alert := &ActiveAlert{}
	if !alert.Open() {
		t.Error("fresh alert should be open")
	}
	alert.Acknowledged = true
	if alert.Open() {
		t.Error("acknowledged alert should not be open")
	}
	alert.Acknowledged = false
	alert.Resolved = true
	if alert.Open() {
		t.Error("resolved alert should not be open")
	}
}

func TestActiveAlertDuration(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(30 * time.Minute)

	alert := &ActiveAlert{TriggeredAt: start}
	if got := alert.Duration(now); got != 30*time.Minute {
		t.Errorf("open duration = %v, want 30m", got)
	}

	resolvedAt := start.Add(12 * time.Minute)
	alert.Resolved = true
	alert.ResolvedAt = &resolvedAt
	if got := alert.Duration(now); got != 12*time.Minute {
		t.Errorf("resolved duration = %v, want 12m", got)
	}
}
