package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openestate/watchtower/internal/alerting"
	"github.com/openestate/watchtower/internal/escalation"
	"github.com/openestate/watchtower/internal/models"
	"github.com/openestate/watchtower/internal/monitor"
	"github.com/openestate/watchtower/internal/notifier"
	"github.com/openestate/watchtower/internal/overview"
)

// okTransport accepts every webhook send so channel tests pass
// without a network.
type okTransport struct{}

func (okTransport) Type() models.ChannelType { return models.ChannelWebhook }
func (okTransport) Send(context.Context, *models.NotificationChannel, notifier.Content, *models.ActiveAlert) error {
	return nil
}

type fixture struct {
	server   *Server
	router   http.Handler
	rules    *alerting.RuleStore
	registry *alerting.Registry
	channels *notifier.ChannelRegistry
	history  *notifier.History
	recorder *monitor.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rules := alerting.NewRuleStore()
	registry := alerting.NewRegistry()
	policies := escalation.NewPolicyRegistry()
	channels := notifier.NewChannelRegistry()
	history := notifier.NewHistory(100)
	recorder := monitor.NewRecorder(100)

	renderer, err := notifier.NewRenderer("test", "https://dash.example.com")
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	dispatcher := notifier.NewDispatcher(channels, history, renderer)
	dispatcher.RegisterTransport(okTransport{})

	agg := overview.NewAggregator(monitor.StaticSource{}, monitor.NewBroadcaster(), registry, time.Now())

	server := NewServer(rules, registry, policies, channels, dispatcher, history, recorder, agg, Options{})
	return &fixture{
		server:   server,
		router:   server.Router(),
		rules:    rules,
		registry: registry,
		channels: channels,
		history:  history,
		recorder: recorder,
	}
}

// do performs a request against the router and decodes the envelope.
func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		var raw struct {
			Data  json.RawMessage `json:"data"`
			Error *Error          `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
		resp.Error = raw.Error
		if raw.Data != nil {
			var data any
			json.Unmarshal(raw.Data, &data)
			resp.Data = data
		}
	}
	return rec, resp
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(raw.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	rec, _ := f.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRuleCRUD(t *testing.T) {
	f := newFixture(t)

	// Create
	rec, _ := f.do(t, http.MethodPost, "/api/v1/rules", RuleRequest{
		Name:      "High CPU usage",
		Metric:    "cpu_usage",
		Operator:  "gt",
		Threshold: 80,
		Severity:  "warning",
		Cooldown:  "15m",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.AlertRule
	decodeData(t, rec, &created)
	if created.ID == "" || created.Cooldown != 15*time.Minute || !created.Enabled {
		t.Errorf("unexpected created rule: %+v", created)
	}

	// Get
	rec, _ = f.do(t, http.MethodGet, "/api/v1/rules/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	// List
	rec, _ = f.do(t, http.MethodGet, "/api/v1/rules", nil)
	var list []models.AlertRule
	decodeData(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("list = %d rules, want 1", len(list))
	}

	// Update
	rec, _ = f.do(t, http.MethodPut, "/api/v1/rules/"+created.ID, RuleRequest{
		Name:      "High CPU usage",
		Metric:    "cpu_usage",
		Operator:  "gte",
		Threshold: 90,
		Severity:  "critical",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated models.AlertRule
	decodeData(t, rec, &updated)
	if updated.Threshold != 90 || updated.Severity != models.SeverityCritical {
		t.Errorf("unexpected updated rule: %+v", updated)
	}

	// Disable / enable
	rec, _ = f.do(t, http.MethodPost, "/api/v1/rules/"+created.ID+"/disable", nil)
	var disabled models.AlertRule
	decodeData(t, rec, &disabled)
	if disabled.Enabled {
		t.Error("rule should be disabled")
	}
	rec, _ = f.do(t, http.MethodPost, "/api/v1/rules/"+created.ID+"/enable", nil)
	var enabled models.AlertRule
	decodeData(t, rec, &enabled)
	if !enabled.Enabled {
		t.Error("rule should be enabled")
	}

	// Delete
	rec, _ = f.do(t, http.MethodDelete, "/api/v1/rules/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec, _ = f.do(t, http.MethodGet, "/api/v1/rules/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  RuleRequest
	}{
		{"missing name", RuleRequest{Metric: "cpu_usage", Operator: "gt", Severity: "warning"}},
		{"missing metric", RuleRequest{Name: "r", Operator: "gt", Severity: "warning"}},
		{"bad operator", RuleRequest{Name: "r", Metric: "cpu_usage", Operator: "between", Severity: "warning"}},
		{"bad severity", RuleRequest{Name: "r", Metric: "cpu_usage", Operator: "gt", Severity: "fatal"}},
		{"bad cooldown", RuleRequest{Name: "r", Metric: "cpu_usage", Operator: "gt", Severity: "warning", Cooldown: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, http.MethodPost, "/api/v1/rules", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
				t.Errorf("error = %+v, want validation failure", resp.Error)
			}
		})
	}
}

func TestAcknowledgeAlert(t *testing.T) {
	f := newFixture(t)

	rule := &models.AlertRule{
		ID: "r1", Name: "High CPU usage", Metric: "cpu_usage",
		Operator: models.OpGreaterThan, Threshold: 80,
		Severity: models.SeverityCritical, Enabled: true,
	}
	alert, err := f.registry.Trigger(rule, 92, "", time.Now())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}

	// Missing actor
	rec, _ := f.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", AcknowledgeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status without actor = %d, want 400", rec.Code)
	}

	// Acknowledge
	rec, _ = f.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", AcknowledgeRequest{By: "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var acked models.ActiveAlert
	decodeData(t, rec, &acked)
	if !acked.Acknowledged || acked.AcknowledgedBy != "alice" {
		t.Errorf("unexpected alert: %+v", acked)
	}

	// Idempotent
	rec, _ = f.do(t, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", AcknowledgeRequest{By: "bob"})
	if rec.Code != http.StatusOK {
		t.Errorf("repeat status = %d, want 200", rec.Code)
	}

	// Unknown alert
	rec, _ = f.do(t, http.MethodPost, "/api/v1/alerts/nope/acknowledge", AcknowledgeRequest{By: "alice"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown alert status = %d, want 404", rec.Code)
	}
}

func TestListAlerts(t *testing.T) {
	f := newFixture(t)

	mk := func(id string, severity models.Severity) *models.ActiveAlert {
		rule := &models.AlertRule{
			ID: id, Name: id, Metric: "cpu_usage",
			Operator: models.OpGreaterThan, Threshold: 80,
			Severity: severity, Enabled: true,
		}
		alert, err := f.registry.Trigger(rule, 92, "", time.Now())
		if err != nil {
			t.Fatalf("trigger %s: %v", id, err)
		}
		return alert
	}
	mk("warn", models.SeverityWarning)
	mk("crit", models.SeverityCritical)
	f.registry.ResolveByRule("warn", time.Now())

	rec, _ := f.do(t, http.MethodGet, "/api/v1/alerts", nil)
	var active []models.ActiveAlert
	decodeData(t, rec, &active)
	if len(active) != 1 || active[0].RuleID != "crit" {
		t.Errorf("active = %+v, want only the critical alert", active)
	}

	rec, _ = f.do(t, http.MethodGet, "/api/v1/alerts/all", nil)
	var all []models.ActiveAlert
	decodeData(t, rec, &all)
	if len(all) != 2 {
		t.Errorf("all = %d alerts, want 2", len(all))
	}
}

func TestChannelCRUDAndTest(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/channels", ChannelRequest{
		Name:     "Ops Webhook",
		Type:     "webhook",
		Priority: 1,
		Webhook:  &models.WebhookConfig{URL: "https://hooks.example.com/ops"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.NotificationChannel
	decodeData(t, rec, &created)

	// Missing config block fails validation
	rec, resp := f.do(t, http.MethodPost, "/api/v1/channels", ChannelRequest{
		Name: "Broken", Type: "email",
	})
	if rec.Code != http.StatusBadRequest || resp.Error == nil {
		t.Errorf("invalid channel status = %d", rec.Code)
	}

	// Test send through the stub transport succeeds
	rec, _ = f.do(t, http.MethodPost, "/api/v1/channels/"+created.ID+"/test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("test status = %d", rec.Code)
	}
	var result TestResult
	decodeData(t, rec, &result)
	if !result.Success || result.ChannelID != created.ID {
		t.Errorf("unexpected test result: %+v", result)
	}
	if f.history.Len() != 1 {
		t.Errorf("history = %d records, want the test send", f.history.Len())
	}

	rec, _ = f.do(t, http.MethodPost, "/api/v1/channels/ghost/test", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("test unknown channel status = %d, want 404", rec.Code)
	}

	rec, _ = f.do(t, http.MethodDelete, "/api/v1/channels/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestListNotifications(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		alertID := "a1"
		if i%2 == 0 {
			alertID = "a2"
		}
		f.history.Append(&models.NotificationRecord{ID: "n", AlertID: alertID, Success: true})
	}

	rec, _ := f.do(t, http.MethodGet, "/api/v1/notifications?limit=3", nil)
	var records []models.NotificationRecord
	decodeData(t, rec, &records)
	if len(records) != 3 {
		t.Errorf("records = %d, want 3", len(records))
	}

	rec, _ = f.do(t, http.MethodGet, "/api/v1/notifications?alert_id=a1", nil)
	decodeData(t, rec, &records)
	if len(records) != 5 {
		t.Errorf("filtered records = %d, want 5", len(records))
	}

	rec, _ = f.do(t, http.MethodGet, "/api/v1/notifications?limit=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestGetOverview(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/v1/overview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var ov overview.Overview
	decodeData(t, rec, &ov)
	if ov.Status != monitor.StatusHealthy {
		t.Errorf("status = %s, want healthy", ov.Status)
	}
}

func TestGetMetricsHistory(t *testing.T) {
	f := newFixture(t)
	f.recorder.Record(monitor.Snapshot{
		TakenAt: time.Now().Add(-10 * time.Minute),
		Values:  map[string]float64{"cpu_usage": 40},
	})
	f.recorder.Record(monitor.Snapshot{
		TakenAt: time.Now().Add(-30 * time.Hour),
		Values:  map[string]float64{"cpu_usage": 70},
	})

	rec, _ := f.do(t, http.MethodGet, "/api/v1/metrics/history?hours=2", nil)
	var snaps []monitor.Snapshot
	decodeData(t, rec, &snaps)
	if len(snaps) != 1 {
		t.Errorf("snapshots = %d, want 1", len(snaps))
	}

	rec, _ = f.do(t, http.MethodGet, "/api/v1/metrics/history?hours=48", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range hours status = %d, want 400", rec.Code)
	}
}
