package escalation

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/openestate/watchtower/internal/metrics"
	"github.com/openestate/watchtower/internal/models"
)

// AlertState is the view of the alert registry the scheduler needs:
// whether an alert still wants escalation, and notification bookkeeping.
type AlertState interface {
	// Open reports whether the alert is unresolved and unacknowledged.
	Open(alertID string) bool
	// MarkNotified records a delivered notification batch.
	MarkNotified(alertID string, at time.Time)
}

// Dispatcher delivers rendered alert content through channels.
// Implemented by the notifier package.
type Dispatcher interface {
	// Dispatch sends the alert through the given channels by id.
	Dispatch(alert *models.ActiveAlert, channelIDs []string)
	// DispatchResolved sends the resolution notice through the
	// given channels by id.
	DispatchResolved(alert *models.ActiveAlert, channelIDs []string)
}

// handles owns the pending timers of one alert. One-shot timers cover
// delayed steps; stop channels terminate repeat goroutines.
type handles struct {
	timers []*time.Timer
	stops  []chan struct{}
}

// Scheduler executes escalation policies: the zero-delay step fires
// immediately, delayed steps arm one-shot timers, and steps with a
// repeat interval arm bounded repeat loops. Acknowledging or resolving
// an alert cancels every pending timer through CancelAlert.
//
// A timer already mid-fire when cancellation occurs may produce one
// extra notification; each fire re-checks the alert state first, so
// that window is a single send at most.
type Scheduler struct {
	mu       sync.Mutex
	pending  map[string]*handles // by alert id
	policies *PolicyRegistry
	state    AlertState
	dispatch Dispatcher
}

// NewScheduler creates a scheduler over the given policy registry.
func NewScheduler(policies *PolicyRegistry, state AlertState, dispatch Dispatcher) *Scheduler {
	return &Scheduler{
		pending:  make(map[string]*handles),
		policies: policies,
		state:    state,
		dispatch: dispatch,
	}
}

// Schedule resolves the alert's escalation policy and starts its
// steps. The immediate step dispatches synchronously on the calling
// goroutine; callers that must not block run Schedule in a goroutine.
func (s *Scheduler) Schedule(alert *models.ActiveAlert) {
	policy := s.policies.ForSeverity(alert.Severity)
	if policy == nil {
		log.Printf("no escalation policy for severity %s, alert %s not escalated", alert.Severity, alert.ID)
		return
	}

	steps := make([]models.EscalationStep, len(policy.Steps))
	copy(steps, policy.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Delay < steps[j].Delay })

	s.mu.Lock()
	if _, ok := s.pending[alert.ID]; ok {
		// Already scheduled; a rule can only trigger once per alert.
		s.mu.Unlock()
		return
	}
	h := &handles{}
	s.pending[alert.ID] = h
	metrics.EscalationTimersActive.Inc()

	var immediate []models.EscalationStep
	for _, step := range steps {
		metrics.EscalationStepsScheduled.Inc()
		if step.Delay == 0 {
			immediate = append(immediate, step)
			continue
		}
		step := step
		timer := time.AfterFunc(step.Delay, func() {
			s.fire(alert, step)
		})
		h.timers = append(h.timers, timer)
	}
	s.mu.Unlock()

	for _, step := range immediate {
		s.fire(alert, step)
	}
}

// fire runs one escalation step: skip silently unless the alert is
// still open, dispatch, then arm the step's repeat loop if configured.
func (s *Scheduler) fire(alert *models.ActiveAlert, step models.EscalationStep) {
	if !s.state.Open(alert.ID) {
		return
	}

	s.dispatch.Dispatch(alert, step.ChannelIDs)
	s.state.MarkNotified(alert.ID, time.Now())

	if step.RepeatInterval <= 0 || step.MaxRepeats <= 0 {
		return
	}

	stop := make(chan struct{})
	s.mu.Lock()
	h, ok := s.pending[alert.ID]
	if !ok {
		// Canceled between the open check and now; do not arm repeats.
		s.mu.Unlock()
		return
	}
	h.stops = append(h.stops, stop)
	s.mu.Unlock()

	go s.repeat(alert, step, stop)
}

// repeat re-dispatches a step every interval until the alert closes,
// the repeat budget is spent, or the stop channel fires.
func (s *Scheduler) repeat(alert *models.ActiveAlert, step models.EscalationStep, stop chan struct{}) {
	ticker := time.NewTicker(step.RepeatInterval)
	defer ticker.Stop()

	for sent := 0; sent < step.MaxRepeats; {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.state.Open(alert.ID) {
				return
			}
			s.dispatch.Dispatch(alert, step.ChannelIDs)
			s.state.MarkNotified(alert.ID, time.Now())
			sent++
		}
	}
}

// NotifyResolved announces a resolution through the channels of the
// policy's immediate step. Pending timers are expected to have been
// canceled already by the registry.
func (s *Scheduler) NotifyResolved(alert *models.ActiveAlert) {
	policy := s.policies.ForSeverity(alert.Severity)
	if policy == nil || len(policy.Steps) == 0 {
		return
	}

	steps := make([]models.EscalationStep, len(policy.Steps))
	copy(steps, policy.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Delay < steps[j].Delay })

	s.dispatch.DispatchResolved(alert, steps[0].ChannelIDs)
}

// CancelAlert stops and drops every pending timer owned by an alert.
// Safe to call for unknown ids and safe to call repeatedly.
func (s *Scheduler) CancelAlert(alertID string) {
	s.mu.Lock()
	h, ok := s.pending[alertID]
	delete(s.pending, alertID)
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, t := range h.timers {
		t.Stop()
	}
	for _, stop := range h.stops {
		close(stop)
	}
	metrics.EscalationTimersActive.Dec()
	metrics.EscalationsCanceled.Inc()
}

// PendingCount returns the number of alerts with pending timers.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
