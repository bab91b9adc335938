package notifier

import (
	"context"
	"fmt"

	"github.com/openestate/watchtower/internal/models"
)

// SMSTransport is a stub: no SMS provider is wired, so every send
// fails with ErrUnsupportedChannel.
type SMSTransport struct{}

// Type returns "sms".
func (SMSTransport) Type() models.ChannelType {
	return models.ChannelSMS
}

// Send always fails.
func (SMSTransport) Send(_ context.Context, channel *models.NotificationChannel, _ Content, _ *models.ActiveAlert) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedChannel, channel.Type)
}
