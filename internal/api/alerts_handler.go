package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// AcknowledgeRequest names the actor acknowledging an alert.
type AcknowledgeRequest struct {
	By string `json:"by"`
}

func (s *Server) listActiveAlerts(w http.ResponseWriter, r *http.Request) {
	OK(w, s.registry.Active())
}

func (s *Server) listAllAlerts(w http.ResponseWriter, r *http.Request) {
	OK(w, s.registry.All())
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.By) == "" {
		JSONError(w, NewValidationError("by is required"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.registry.Acknowledge(id, req.By, time.Now()); err != nil {
		JSONError(w, NewNotFound("Alert not found"))
		return
	}
	alert, err := s.registry.Get(id)
	if err != nil {
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, alert)
}
