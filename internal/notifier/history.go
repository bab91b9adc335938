package notifier

import (
	"sync"

	"github.com/openestate/watchtower/internal/models"
)

// DefaultHistoryCapacity bounds the notification audit history.
const DefaultHistoryCapacity = 1000

// History is an append-only ring buffer of notification attempts.
// Once capacity is exceeded the oldest entries are evicted.
type History struct {
	mu       sync.RWMutex
	capacity int
	entries  []*models.NotificationRecord
	start    int
	count    int
}

// NewHistory creates a history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		capacity: capacity,
		entries:  make([]*models.NotificationRecord, capacity),
	}
}

// Append adds a record, evicting the oldest when full.
func (h *History) Append(record *models.NotificationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := (h.start + h.count) % h.capacity
	h.entries[idx] = record
	if h.count < h.capacity {
		h.count++
	} else {
		h.start = (h.start + 1) % h.capacity
	}
}

// Recent returns up to limit records, newest first. A non-positive
// limit returns everything retained.
func (h *History) Recent(limit int) []*models.NotificationRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.NotificationRecord, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.start + h.count - 1 - i) % h.capacity
		out = append(out, h.entries[idx])
	}
	return out
}

// ForAlert returns every retained record for an alert, newest first.
func (h *History) ForAlert(alertID string) []*models.NotificationRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*models.NotificationRecord
	for i := h.count - 1; i >= 0; i-- {
		record := h.entries[(h.start+i)%h.capacity]
		if record.AlertID == alertID {
			out = append(out, record)
		}
	}
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
