// Package escalation turns a triggered alert into a sequence of timed
// notification steps and owns the timers that drive them.
package escalation

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/openestate/watchtower/internal/models"
)

// ErrNotFound is returned for unknown policy ids.
var ErrNotFound = errors.New("policy not found")

// PolicyRegistry holds escalation policies in memory.
type PolicyRegistry struct {
	mu       sync.RWMutex
	policies map[string]*models.EscalationPolicy
}

// NewPolicyRegistry creates an empty policy registry.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{policies: make(map[string]*models.EscalationPolicy)}
}

// Create validates and stores a policy, assigning an id if missing.
func (r *PolicyRegistry) Create(policy *models.EscalationPolicy) (*models.EscalationPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	stored := copyPolicy(policy)
	r.policies[stored.ID] = stored
	return copyPolicy(stored), nil
}

// Update replaces a policy by id.
func (r *PolicyRegistry) Update(id string, policy *models.EscalationPolicy) (*models.EscalationPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.policies[id]; !ok {
		return nil, ErrNotFound
	}
	stored := copyPolicy(policy)
	stored.ID = id
	r.policies[id] = stored
	return copyPolicy(stored), nil
}

// Delete removes a policy by id.
func (r *PolicyRegistry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.policies[id]; !ok {
		return ErrNotFound
	}
	delete(r.policies, id)
	return nil
}

// Get returns a policy by id.
func (r *PolicyRegistry) Get(id string) (*models.EscalationPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, ok := r.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPolicy(policy), nil
}

// List returns all policies sorted by name.
func (r *PolicyRegistry) List() []*models.EscalationPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.EscalationPolicy, 0, len(r.policies))
	for _, policy := range r.policies {
		out = append(out, copyPolicy(policy))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ForSeverity selects the policy for an alert severity: the first
// enabled policy (by name) explicitly mapped to the severity, falling
// back to the enabled default policy. Returns nil when nothing applies.
func (r *PolicyRegistry) ForSeverity(severity models.Severity) *models.EscalationPolicy {
	policies := r.List()

	for _, policy := range policies {
		if policy.Enabled && policy.AppliesTo(severity) {
			return policy
		}
	}
	for _, policy := range policies {
		if policy.Enabled && policy.Default {
			return policy
		}
	}
	return nil
}

func copyPolicy(p *models.EscalationPolicy) *models.EscalationPolicy {
	c := *p
	c.Severities = append([]models.Severity(nil), p.Severities...)
	c.Steps = make([]models.EscalationStep, len(p.Steps))
	for i, step := range p.Steps {
		c.Steps[i] = step
		c.Steps[i].ChannelIDs = append([]string(nil), step.ChannelIDs...)
	}
	return &c
}
