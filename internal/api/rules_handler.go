package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openestate/watchtower/internal/alerting"
	"github.com/openestate/watchtower/internal/models"
)

// RuleRequest is the create/update payload for an alert rule.
// Durations are strings like "15m".
type RuleRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Metric      string  `json:"metric"`
	Operator    string  `json:"operator"`
	Threshold   float64 `json:"threshold"`
	Severity    string  `json:"severity"`
	Cooldown    string  `json:"cooldown"`
	PolicyID    string  `json:"policy_id"`
	Enabled     *bool   `json:"enabled"`
}

// toModel validates the request and converts it to a rule.
func (req *RuleRequest) toModel() (*models.AlertRule, *Error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("name is required")
	}
	if len(name) > 100 {
		return nil, NewValidationError("name must be 100 characters or less")
	}
	if strings.TrimSpace(req.Metric) == "" {
		return nil, NewValidationError("metric is required")
	}

	op := models.Operator(req.Operator)
	if !op.Valid() {
		return nil, NewValidationError("operator must be one of gt, gte, lt, lte, eq, ne")
	}
	severity := models.Severity(req.Severity)
	if !severity.Valid() {
		return nil, NewValidationError("severity must be one of critical, warning, info")
	}

	var cooldown time.Duration
	if req.Cooldown != "" {
		var err error
		cooldown, err = time.ParseDuration(req.Cooldown)
		if err != nil || cooldown < 0 {
			return nil, NewValidationError("cooldown must be a non-negative duration like '15m'")
		}
	}

	rule := &models.AlertRule{
		Name:        name,
		Description: req.Description,
		Metric:      strings.TrimSpace(req.Metric),
		Operator:    op,
		Threshold:   req.Threshold,
		Severity:    severity,
		Cooldown:    cooldown,
		PolicyID:    req.PolicyID,
		Enabled:     true,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	return rule, nil
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	OK(w, s.rules.List())
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid JSON body"))
		return
	}

	rule, apiErr := req.toModel()
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}

	created, err := s.rules.Create(rule)
	if err != nil {
		JSONError(w, NewValidationError(err.Error()))
		return
	}
	Created(w, created)
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.Get(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, NewNotFound("Rule not found"))
		return
	}
	OK(w, rule)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid JSON body"))
		return
	}

	rule, apiErr := req.toModel()
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}

	updated, err := s.rules.Update(chi.URLParam(r, "id"), rule)
	if err != nil {
		if errors.Is(err, alerting.ErrNotFound) {
			JSONError(w, NewNotFound("Rule not found"))
			return
		}
		JSONError(w, NewValidationError(err.Error()))
		return
	}
	OK(w, updated)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.rules.Delete(chi.URLParam(r, "id")); err != nil {
		JSONError(w, NewNotFound("Rule not found"))
		return
	}
	NoContent(w)
}

func (s *Server) enableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, true)
}

func (s *Server) disableRule(w http.ResponseWriter, r *http.Request) {
	s.setRuleEnabled(w, r, false)
}

func (s *Server) setRuleEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")
	if err := s.rules.SetEnabled(id, enabled); err != nil {
		JSONError(w, NewNotFound("Rule not found"))
		return
	}
	rule, err := s.rules.Get(id)
	if err != nil {
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, rule)
}
