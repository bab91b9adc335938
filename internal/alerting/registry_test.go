package alerting

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openestate/watchtower/internal/models"
)

// recordingCanceler records CancelAlert calls.
type recordingCanceler struct {
	mu       sync.Mutex
	canceled []string
}

func (c *recordingCanceler) CancelAlert(alertID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = append(c.canceled, alertID)
}

func (c *recordingCanceler) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.canceled...)
}

func TestRegistryTrigger(t *testing.T) {
	reg := NewRegistry()
	rule := testRule("high-cpu", "cpu_usage")
	rule.ID = "r1"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	alert, err := reg.Trigger(rule, 92.5, "", now)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if alert.RuleID != "r1" || alert.CurrentValue != 92.5 {
		t.Errorf("unexpected alert: %+v", alert)
	}
	if alert.Message == "" {
		t.Error("expected default message")
	}
	if !alert.Open() {
		t.Error("fresh alert should be open")
	}

	// Second trigger for the same rule conflicts while unresolved
	if _, err := reg.Trigger(rule, 95, "", now); !errors.Is(err, ErrConflict) {
		t.Errorf("second trigger = %v, want ErrConflict", err)
	}

	// After resolve, the rule can trigger again
	if _, err := reg.ResolveByRule("r1", now.Add(time.Minute)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := reg.Trigger(rule, 95, "", now.Add(2*time.Minute)); err != nil {
		t.Errorf("trigger after resolve: %v", err)
	}
}

func TestRegistryTriggerCustomMessage(t *testing.T) {
	reg := NewRegistry()
	rule := testRule("health", "system_health")
	rule.ID = "r1"

	alert, err := reg.Trigger(rule, 0, "System health degraded: healthy -> unhealthy", time.Now())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if alert.Message != "System health degraded: healthy -> unhealthy" {
		t.Errorf("message = %q", alert.Message)
	}
}

func TestRegistryAcknowledge(t *testing.T) {
	reg := NewRegistry()
	canceler := &recordingCanceler{}
	reg.SetCanceler(canceler)

	rule := testRule("high-cpu", "cpu_usage")
	rule.ID = "r1"
	now := time.Now()
	alert, _ := reg.Trigger(rule, 92, "", now)

	if err := reg.Acknowledge(alert.ID, "alice", now); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	got, _ := reg.Get(alert.ID)
	if !got.Acknowledged || got.AcknowledgedBy != "alice" || got.AcknowledgedAt == nil {
		t.Errorf("acknowledge not recorded: %+v", got)
	}
	if got.Resolved {
		t.Error("acknowledge must not resolve")
	}
	if len(canceler.calls()) != 1 {
		t.Errorf("cancel calls = %d, want 1", len(canceler.calls()))
	}

	// Idempotent: second acknowledge succeeds without another cancel
	if err := reg.Acknowledge(alert.ID, "bob", now); err != nil {
		t.Fatalf("second acknowledge: %v", err)
	}
	got, _ = reg.Get(alert.ID)
	if got.AcknowledgedBy != "alice" {
		t.Error("second acknowledge should not overwrite the first")
	}
	if len(canceler.calls()) != 1 {
		t.Errorf("cancel calls after repeat = %d, want 1", len(canceler.calls()))
	}

	if err := reg.Acknowledge("missing", "alice", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("acknowledge missing = %v, want ErrNotFound", err)
	}
}

func TestRegistryResolveCancelsTimers(t *testing.T) {
	reg := NewRegistry()
	canceler := &recordingCanceler{}
	reg.SetCanceler(canceler)

	rule := testRule("high-cpu", "cpu_usage")
	rule.ID = "r1"
	now := time.Now()
	alert, _ := reg.Trigger(rule, 92, "", now)

	resolved, err := reg.ResolveByRule("r1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Resolved || resolved.ResolvedAt == nil {
		t.Errorf("alert not marked resolved: %+v", resolved)
	}
	if calls := canceler.calls(); len(calls) != 1 || calls[0] != alert.ID {
		t.Errorf("cancel calls = %v, want [%s]", calls, alert.ID)
	}

	// Acknowledged-then-resolved is allowed; resolving again is a no-op
	if _, err := reg.Resolve(alert.ID, now.Add(2*time.Minute)); err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if len(canceler.calls()) != 1 {
		t.Error("re-resolve should not cancel again")
	}

	if _, err := reg.ResolveByRule("r1", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("resolve without active alert = %v, want ErrNotFound", err)
	}
}

func TestRegistryOpen(t *testing.T) {
	reg := NewRegistry()
	rule := testRule("high-cpu", "cpu_usage")
	rule.ID = "r1"
	now := time.Now()
	alert, _ := reg.Trigger(rule, 92, "", now)

	if !reg.Open(alert.ID) {
		t.Error("triggered alert should be open")
	}
	reg.Acknowledge(alert.ID, "alice", now)
	if reg.Open(alert.ID) {
		t.Error("acknowledged alert should not be open")
	}
	if reg.Open("missing") {
		t.Error("unknown alert should not be open")
	}
}

func TestRegistryActiveOrdering(t *testing.T) {
	reg := NewRegistry()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mk := func(id string, sev models.Severity, offset time.Duration) {
		rule := testRule("rule-"+id, "cpu_usage")
		rule.ID = id
		rule.Severity = sev
		if _, err := reg.Trigger(rule, 90, "", now.Add(offset)); err != nil {
			t.Fatalf("trigger %s: %v", id, err)
		}
	}
	mk("info-old", models.SeverityInfo, 0)
	mk("crit-old", models.SeverityCritical, time.Minute)
	mk("warn", models.SeverityWarning, 2*time.Minute)
	mk("crit-new", models.SeverityCritical, 3*time.Minute)

	active := reg.Active()
	want := []string{"crit-new", "crit-old", "warn", "info-old"}
	if len(active) != len(want) {
		t.Fatalf("active length = %d, want %d", len(active), len(want))
	}
	for i, alert := range active {
		if alert.RuleID != want[i] {
			t.Errorf("active[%d] = %s, want %s", i, alert.RuleID, want[i])
		}
	}

	counts := reg.CountBySeverity()
	if counts[models.SeverityCritical] != 2 || counts[models.SeverityWarning] != 1 || counts[models.SeverityInfo] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRegistryClearDropsResolvedOnly(t *testing.T) {
	reg := NewRegistry()
	now := time.Now()

	r1 := testRule("a", "cpu_usage")
	r1.ID = "a"
	r2 := testRule("b", "cpu_usage")
	r2.ID = "b"
	reg.Trigger(r1, 90, "", now)
	kept, _ := reg.Trigger(r2, 90, "", now)
	reg.ResolveByRule("a", now)

	reg.Clear()

	all := reg.All()
	if len(all) != 1 || all[0].ID != kept.ID {
		t.Errorf("all after clear = %+v, want only the unresolved alert", all)
	}
}

func TestRegistryMarkNotified(t *testing.T) {
	reg := NewRegistry()
	rule := testRule("high-cpu", "cpu_usage")
	rule.ID = "r1"
	now := time.Now()
	alert, _ := reg.Trigger(rule, 92, "", now)

	reg.MarkNotified(alert.ID, now)
	reg.MarkNotified(alert.ID, now.Add(time.Minute))

	got, _ := reg.Get(alert.ID)
	if got.NotificationCount != 2 {
		t.Errorf("notification count = %d, want 2", got.NotificationCount)
	}
	if got.LastNotified == nil || !got.LastNotified.Equal(now.Add(time.Minute)) {
		t.Errorf("last notified = %v", got.LastNotified)
	}
}
