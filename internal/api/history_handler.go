package api

import (
	"net/http"
	"strconv"
	"time"
)

// maxHistoryLimit caps the number of notification records per request.
const maxHistoryLimit = 500

func (s *Server) listPolicies(w http.ResponseWriter, r *http.Request) {
	OK(w, s.policies.List())
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			JSONError(w, NewBadRequest("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if alertID := r.URL.Query().Get("alert_id"); alertID != "" {
		records := s.history.ForAlert(alertID)
		if len(records) > limit {
			records = records[:limit]
		}
		OK(w, records)
		return
	}
	OK(w, s.history.Recent(limit))
}

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	OK(w, s.overview.Snapshot(time.Now()))
}

func (s *Server) getMetricsHistory(w http.ResponseWriter, r *http.Request) {
	hours := 1
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 24 {
			JSONError(w, NewBadRequest("hours must be between 1 and 24"))
			return
		}
		hours = parsed
	}
	OK(w, s.recorder.Since(time.Duration(hours)*time.Hour, time.Now()))
}
