package models

import (
	"fmt"
	"strings"
	"time"
)

// ChannelType identifies the transport behind a notification channel.
type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelWebhook ChannelType = "webhook"
	ChannelChat    ChannelType = "chat"
	ChannelSMS     ChannelType = "sms"
)

// Valid reports whether the channel type is known.
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelEmail, ChannelWebhook, ChannelChat, ChannelSMS:
		return true
	default:
		return false
	}
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host       string   `json:"host" yaml:"host"`
	Port       int      `json:"port" yaml:"port"`
	Username   string   `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string   `json:"password,omitempty" yaml:"password,omitempty"`
	From       string   `json:"from" yaml:"from"`
	Recipients []string `json:"recipients" yaml:"recipients"`
}

// Validate validates the email configuration.
func (c *EmailConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("SMTP port is required")
	}
	if c.From == "" {
		return fmt.Errorf("from address is required")
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	return nil
}

// WebhookConfig holds generic HTTP webhook settings.
type WebhookConfig struct {
	URL     string            `json:"url" yaml:"url"`
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("webhook URL must be http or https")
	}
	return nil
}

// ChatConfig holds chat webhook settings (Slack-compatible payload).
type ChatConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
	Channel    string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

// Validate validates the chat configuration.
func (c *ChatConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("chat webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("chat webhook URL must use HTTPS")
	}
	return nil
}

// SMSConfig is a placeholder; SMS delivery is not implemented.
type SMSConfig struct {
	Recipients []string `json:"recipients,omitempty" yaml:"recipients,omitempty"`
}

// NotificationChannel is an external endpoint through which alerts are
// delivered. Exactly one of the typed config blocks matching Type is set.
type NotificationChannel struct {
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Type     ChannelType `json:"type" yaml:"type"`
	Enabled  bool        `json:"enabled" yaml:"enabled"`
	Priority int         `json:"priority" yaml:"priority"`

	Email   *EmailConfig   `json:"email,omitempty" yaml:"email,omitempty"`
	Webhook *WebhookConfig `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	Chat    *ChatConfig    `json:"chat,omitempty" yaml:"chat,omitempty"`
	SMS     *SMSConfig     `json:"sms,omitempty" yaml:"sms,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the channel and its type-specific configuration.
func (c *NotificationChannel) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("channel name is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("invalid channel type %q for channel %q", c.Type, c.Name)
	}
	switch c.Type {
	case ChannelEmail:
		if c.Email == nil {
			return fmt.Errorf("email config is required for channel %q", c.Name)
		}
		if err := c.Email.Validate(); err != nil {
			return fmt.Errorf("channel %q: %w", c.Name, err)
		}
	case ChannelWebhook:
		if c.Webhook == nil {
			return fmt.Errorf("webhook config is required for channel %q", c.Name)
		}
		if err := c.Webhook.Validate(); err != nil {
			return fmt.Errorf("channel %q: %w", c.Name, err)
		}
	case ChannelChat:
		if c.Chat == nil {
			return fmt.Errorf("chat config is required for channel %q", c.Name)
		}
		if err := c.Chat.Validate(); err != nil {
			return fmt.Errorf("channel %q: %w", c.Name, err)
		}
	case ChannelSMS:
		// Accepted in configuration, rejected at send time.
	}
	return nil
}
