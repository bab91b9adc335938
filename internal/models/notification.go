package models

import "time"

// NotificationRecord is one entry in the bounded notification audit
// history: a single send attempt through one channel, success or not.
type NotificationRecord struct {
	ID          string      `json:"id"`
	AlertID     string      `json:"alert_id"`
	ChannelID   string      `json:"channel_id"`
	ChannelType ChannelType `json:"channel_type"`
	Severity    Severity    `json:"severity"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	SentAt      time.Time   `json:"sent_at"`
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
	ResponseMs  int64       `json:"response_time_ms"`
}
