package notifier

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openestate/watchtower/internal/models"
)

// ErrChannelNotFound is returned for unknown channel ids.
var ErrChannelNotFound = errors.New("channel not found")

// ChannelRegistry holds notification channels in memory.
type ChannelRegistry struct {
	mu       sync.RWMutex
	channels map[string]*models.NotificationChannel
}

// NewChannelRegistry creates an empty channel registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[string]*models.NotificationChannel)}
}

// Create validates and stores a channel, assigning an id if missing.
func (r *ChannelRegistry) Create(channel *models.NotificationChannel) (*models.NotificationChannel, error) {
	if err := channel.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	now := time.Now()
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = now
	}
	channel.UpdatedAt = now

	stored := copyChannel(channel)
	r.channels[stored.ID] = stored
	return copyChannel(stored), nil
}

// Update replaces a channel by id.
func (r *ChannelRegistry) Update(id string, channel *models.NotificationChannel) (*models.NotificationChannel, error) {
	if err := channel.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.channels[id]
	if !ok {
		return nil, ErrChannelNotFound
	}

	stored := copyChannel(channel)
	stored.ID = id
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	r.channels[id] = stored
	return copyChannel(stored), nil
}

// Delete removes a channel by id.
func (r *ChannelRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.channels[id]; !ok {
		return ErrChannelNotFound
	}
	delete(r.channels, id)
	return nil
}

// Get returns a channel by id.
func (r *ChannelRegistry) Get(id string) (*models.NotificationChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channel, ok := r.channels[id]
	if !ok {
		return nil, ErrChannelNotFound
	}
	return copyChannel(channel), nil
}

// List returns all channels ordered by ascending priority, then name.
func (r *ChannelRegistry) List() []*models.NotificationChannel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.NotificationChannel, 0, len(r.channels))
	for _, channel := range r.channels {
		out = append(out, copyChannel(channel))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func copyChannel(c *models.NotificationChannel) *models.NotificationChannel {
	out := *c
	if c.Email != nil {
		email := *c.Email
		email.Recipients = append([]string(nil), c.Email.Recipients...)
		out.Email = &email
	}
	if c.Webhook != nil {
		webhook := *c.Webhook
		if c.Webhook.Headers != nil {
			webhook.Headers = make(map[string]string, len(c.Webhook.Headers))
			for k, v := range c.Webhook.Headers {
				webhook.Headers[k] = v
			}
		}
		out.Webhook = &webhook
	}
	if c.Chat != nil {
		chat := *c.Chat
		out.Chat = &chat
	}
	if c.SMS != nil {
		sms := *c.SMS
		sms.Recipients = append([]string(nil), c.SMS.Recipients...)
		out.SMS = &sms
	}
	return &out
}
