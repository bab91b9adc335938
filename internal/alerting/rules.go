// Package alerting implements the alert rule store, the active-alert
// state machine, and the metric evaluator that drives them.
package alerting

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openestate/watchtower/internal/models"
)

// Sentinel errors shared by the stores and the registry.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// RuleStore holds alert rule definitions and their trigger
// bookkeeping. All state is in-memory and process-lifetime.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]*models.AlertRule
}

// NewRuleStore creates an empty rule store.
func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[string]*models.AlertRule)}
}

// Create validates and stores a new rule, assigning an id if missing.
func (s *RuleStore) Create(rule *models.AlertRule) (*models.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	} else if _, ok := s.rules[rule.ID]; ok {
		return nil, ErrConflict
	}

	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	stored := *rule
	s.rules[stored.ID] = &stored
	return copyRule(&stored), nil
}

// Update replaces the mutable fields of an existing rule, preserving
// trigger bookkeeping.
func (s *RuleStore) Update(id string, rule *models.AlertRule) (*models.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[id]
	if !ok {
		return nil, ErrNotFound
	}

	existing.Name = rule.Name
	existing.Description = rule.Description
	existing.Metric = rule.Metric
	existing.Operator = rule.Operator
	existing.Threshold = rule.Threshold
	existing.Severity = rule.Severity
	existing.Cooldown = rule.Cooldown
	existing.PolicyID = rule.PolicyID
	existing.Enabled = rule.Enabled
	existing.UpdatedAt = time.Now()

	return copyRule(existing), nil
}

// Delete removes a rule by id.
func (s *RuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

// Get returns a copy of a rule by id.
func (s *RuleStore) Get(id string) (*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRule(rule), nil
}

// List returns copies of all rules sorted by name.
func (s *RuleStore) List() []*models.AlertRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.AlertRule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, copyRule(rule))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetEnabled flips the enabled flag of a rule.
func (s *RuleStore) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return ErrNotFound
	}
	rule.Enabled = enabled
	rule.UpdatedAt = time.Now()
	return nil
}

// MarkTriggered records a trigger: sets LastTriggered and increments
// TriggerCount. Called by the evaluator.
func (s *RuleStore) MarkTriggered(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return
	}
	t := at
	rule.LastTriggered = &t
	rule.TriggerCount++
}

// Replace swaps the whole rule set, used by the rules-file reloader.
// Trigger bookkeeping of rules with matching ids is preserved.
func (s *RuleStore) Replace(rules []*models.AlertRule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*models.AlertRule, len(rules))
	now := time.Now()
	for _, rule := range rules {
		stored := *rule
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		if prev, ok := s.rules[stored.ID]; ok {
			stored.LastTriggered = prev.LastTriggered
			stored.TriggerCount = prev.TriggerCount
			stored.CreatedAt = prev.CreatedAt
		}
		next[stored.ID] = &stored
	}
	s.rules = next
	return nil
}

func copyRule(r *models.AlertRule) *models.AlertRule {
	c := *r
	if r.LastTriggered != nil {
		t := *r.LastTriggered
		c.LastTriggered = &t
	}
	return &c
}
