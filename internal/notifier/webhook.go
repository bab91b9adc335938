package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openestate/watchtower/internal/models"
)

// webhookPayload is the JSON document posted to generic webhooks.
type webhookPayload struct {
	AlertID     string  `json:"alert_id"`
	RuleID      string  `json:"rule_id"`
	AlertName   string  `json:"alert_name"`
	Severity    string  `json:"severity"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body"`
	TriggeredAt string  `json:"triggered_at"`
}

// WebhookTransport posts alert payloads to generic HTTP endpoints.
type WebhookTransport struct {
	client *http.Client
}

// NewWebhookTransport creates the webhook transport. Per-request
// deadlines come from the caller's context.
func NewWebhookTransport() *WebhookTransport {
	return &WebhookTransport{client: &http.Client{}}
}

// Type returns "webhook".
func (*WebhookTransport) Type() models.ChannelType {
	return models.ChannelWebhook
}

// Send posts the alert as JSON. A non-2xx response is a transport
// failure.
func (t *WebhookTransport) Send(ctx context.Context, channel *models.NotificationChannel, content Content, alert *models.ActiveAlert) error {
	cfg := channel.Webhook
	if cfg == nil {
		return fmt.Errorf("%w: webhook config missing on channel %q", ErrConfig, channel.Name)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	payload := webhookPayload{
		AlertID:     alert.ID,
		RuleID:      alert.RuleID,
		AlertName:   alert.RuleName,
		Severity:    string(alert.Severity),
		Metric:      alert.Metric,
		Value:       alert.CurrentValue,
		Threshold:   alert.Threshold,
		Subject:     content.Subject,
		Body:        content.Body,
		TriggeredAt: alert.TriggeredAt.Format(time.RFC3339),
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: webhook returned status %d, body: %s", ErrTransport, resp.StatusCode, string(body))
	}
	return nil
}
