// Package notifier renders alert content and delivers it through
// configured notification channels, recording every attempt in a
// bounded audit history.
package notifier

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openestate/watchtower/internal/metrics"
	"github.com/openestate/watchtower/internal/models"
)

// Sentinel errors of the delivery pipeline.
var (
	// ErrUnsupportedChannel is returned for channel types without a
	// working transport (sms).
	ErrUnsupportedChannel = errors.New("unsupported channel type")
	// ErrConfig marks a channel whose required configuration is missing.
	ErrConfig = errors.New("channel misconfigured")
	// ErrTransport marks a delivery that timed out or was rejected
	// by the remote endpoint.
	ErrTransport = errors.New("transport failure")
)

// defaultSendTimeout bounds every outbound notification call.
const defaultSendTimeout = 10 * time.Second

// Transport delivers rendered content through one channel type.
type Transport interface {
	// Type returns the channel type this transport serves.
	Type() models.ChannelType
	// Send delivers the content through the given channel.
	Send(ctx context.Context, channel *models.NotificationChannel, content Content, alert *models.ActiveAlert) error
}

// Dispatcher fans alert notifications out to channels. Each channel is
// handled independently: one failure never blocks delivery to the
// others, and every attempt lands in the history.
type Dispatcher struct {
	channels   *ChannelRegistry
	history    *History
	renderer   *Renderer
	transports map[models.ChannelType]Transport
}

// NewDispatcher creates a dispatcher with the standard transports
// (email, webhook, chat, and the sms stub) registered.
func NewDispatcher(channels *ChannelRegistry, history *History, renderer *Renderer) *Dispatcher {
	d := &Dispatcher{
		channels:   channels,
		history:    history,
		renderer:   renderer,
		transports: make(map[models.ChannelType]Transport),
	}
	for _, t := range []Transport{NewEmailTransport(), NewWebhookTransport(), NewChatTransport(), SMSTransport{}} {
		d.transports[t.Type()] = t
	}
	return d
}

// RegisterTransport swaps in a transport, replacing the standard one
// for its type. Used by tests.
func (d *Dispatcher) RegisterTransport(t Transport) {
	d.transports[t.Type()] = t
}

// Dispatch renders the severity template for the alert and sends it
// through the given channels in ascending priority order.
func (d *Dispatcher) Dispatch(alert *models.ActiveAlert, channelIDs []string) {
	content, err := d.renderer.RenderAlert(alert)
	if err != nil {
		log.Printf("render alert %s: %v", alert.ID, err)
		return
	}
	d.send(alert, channelIDs, content)
}

// DispatchResolved renders the resolution template and sends it
// through the given channels.
func (d *Dispatcher) DispatchResolved(alert *models.ActiveAlert, channelIDs []string) {
	content, err := d.renderer.RenderResolved(alert, time.Now())
	if err != nil {
		log.Printf("render resolution %s: %v", alert.ID, err)
		return
	}
	d.send(alert, channelIDs, content)
}

// send delivers content to each resolved, enabled channel in turn.
func (d *Dispatcher) send(alert *models.ActiveAlert, channelIDs []string, content Content) {
	for _, channel := range d.resolveChannels(channelIDs) {
		d.sendOne(alert, channel, content)
	}
}

// resolveChannels looks up channels by id, drops unknown and disabled
// ones, and orders the rest by ascending priority.
func (d *Dispatcher) resolveChannels(channelIDs []string) []*models.NotificationChannel {
	out := make([]*models.NotificationChannel, 0, len(channelIDs))
	for _, id := range channelIDs {
		channel, err := d.channels.Get(id)
		if err != nil {
			log.Printf("notification channel %s not found, skipping", id)
			continue
		}
		if !channel.Enabled {
			continue
		}
		out = append(out, channel)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// sendOne makes a single bounded send attempt, records the outcome,
// and returns the transport error for callers that need it.
func (d *Dispatcher) sendOne(alert *models.ActiveAlert, channel *models.NotificationChannel, content Content) error {
	transport, ok := d.transports[channel.Type]
	if !ok {
		transport = SMSTransport{} // behaves as unsupported
	}

	timeout := defaultSendTimeout
	if channel.Type == models.ChannelWebhook && channel.Webhook != nil && channel.Webhook.Timeout > 0 {
		timeout = channel.Webhook.Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := transport.Send(ctx, channel, content, alert)
	elapsed := time.Since(start)

	record := &models.NotificationRecord{
		ID:          uuid.NewString(),
		AlertID:     alert.ID,
		ChannelID:   channel.ID,
		ChannelType: channel.Type,
		Severity:    alert.Severity,
		Subject:     content.Subject,
		Body:        content.Body,
		SentAt:      start,
		Success:     err == nil,
		ResponseMs:  elapsed.Milliseconds(),
	}
	status := "success"
	if err != nil {
		record.Error = err.Error()
		status = "failure"
		log.Printf("notification via %s channel %q failed: %v", channel.Type, channel.Name, err)
	}
	d.history.Append(record)
	metrics.NotificationsTotal.WithLabelValues(string(channel.Type), status).Inc()
	metrics.NotificationDuration.WithLabelValues(string(channel.Type)).Observe(elapsed.Seconds())
	return err
}

// Test sends a synthetic warning alert through one channel and reports
// whether delivery succeeded. Unknown and disabled channels report false.
func (d *Dispatcher) Test(channelID string) bool {
	channel, err := d.channels.Get(channelID)
	if err != nil || !channel.Enabled {
		return false
	}

	now := time.Now()
	alert := &models.ActiveAlert{
		ID:           "test-" + uuid.NewString(),
		RuleID:       "test",
		RuleName:     "Test notification",
		Metric:       "test_metric",
		CurrentValue: 1,
		Threshold:    0,
		Severity:     models.SeverityWarning,
		Message:      "Test notification from Watchtower",
		TriggeredAt:  now,
	}
	content, err := d.renderer.RenderAlert(alert)
	if err != nil {
		return false
	}

	return d.sendOne(alert, channel, content) == nil
}
