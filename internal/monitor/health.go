package monitor

import "sync"

// Status is the overall health reported by the external health monitor.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Transition is a health status change emitted by the health monitor.
type Transition struct {
	From Status
	To   Status
}

// Broadcaster fans health transitions out to registered subscribers.
// It replaces event-emitter coupling with explicit callback
// registration; the core stays testable without a monitor running.
type Broadcaster struct {
	mu      sync.RWMutex
	current Status
	subs    []func(Transition)
}

// NewBroadcaster creates a broadcaster starting in the healthy state.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{current: StatusHealthy}
}

// Subscribe registers a callback invoked on every transition.
// Callbacks run synchronously on the publishing goroutine.
func (b *Broadcaster) Subscribe(fn func(Transition)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish records a new status and notifies subscribers. Publishing
// the current status is a no-op.
func (b *Broadcaster) Publish(to Status) {
	b.mu.Lock()
	from := b.current
	if from == to {
		b.mu.Unlock()
		return
	}
	b.current = to
	subs := make([]func(Transition), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	t := Transition{From: from, To: to}
	for _, fn := range subs {
		fn(t)
	}
}

// Current returns the last published status.
func (b *Broadcaster) Current() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}
