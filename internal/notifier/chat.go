package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openestate/watchtower/internal/models"
)

// chatMessage is the Slack-compatible incoming-webhook payload.
type chatMessage struct {
	Channel string      `json:"channel,omitempty"`
	Blocks  []chatBlock `json:"blocks"`
}

// chatBlock is a Block Kit block.
type chatBlock struct {
	Type   string     `json:"type"`
	Text   *chatText  `json:"text,omitempty"`
	Fields []chatText `json:"fields,omitempty"`
}

// chatText is text within a block.
type chatText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// ChatTransport posts alerts to chat incoming webhooks using the
// Slack Block Kit payload.
type ChatTransport struct {
	client *http.Client
}

// NewChatTransport creates the chat transport. Per-request deadlines
// come from the caller's context.
func NewChatTransport() *ChatTransport {
	return &ChatTransport{client: &http.Client{}}
}

// Type returns "chat".
func (*ChatTransport) Type() models.ChannelType {
	return models.ChannelChat
}

// Send posts a formatted message. A non-2xx response is a transport
// failure.
func (t *ChatTransport) Send(ctx context.Context, channel *models.NotificationChannel, content Content, alert *models.ActiveAlert) error {
	cfg := channel.Chat
	if cfg == nil {
		return fmt.Errorf("%w: chat config missing on channel %q", ErrConfig, channel.Name)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}

	payload := buildChatMessage(cfg, content, alert)
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: chat API returned status %d, body: %s", ErrTransport, resp.StatusCode, string(body))
	}
	return nil
}

// buildChatMessage builds the Block Kit payload.
func buildChatMessage(cfg *models.ChatConfig, content Content, alert *models.ActiveAlert) chatMessage {
	emoji := severityEmoji(alert.Severity)

	blocks := []chatBlock{
		{
			Type: "header",
			Text: &chatText{
				Type:  "plain_text",
				Text:  fmt.Sprintf("%s %s", emoji, content.Subject),
				Emoji: true,
			},
		},
		{
			Type: "section",
			Fields: []chatText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Severity:*\n%s %s", emoji, strings.ToUpper(string(alert.Severity))),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Metric:*\n%s", alert.Metric),
				},
			},
		},
		{
			Type: "section",
			Text: &chatText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("```%s```", content.Body),
			},
		},
	}

	return chatMessage{Channel: cfg.Channel, Blocks: blocks}
}

// severityEmoji returns an emoji for the severity level.
func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "\U0001F534" // red circle
	case models.SeverityWarning:
		return "\U0001F7E1" // yellow circle
	case models.SeverityInfo:
		return "\U0001F535" // blue circle
	default:
		return "⚪" // white circle
	}
}
