package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/openestate/watchtower/internal/models"
	"github.com/openestate/watchtower/internal/notifier"
)

// ChannelRequest is the create/update payload for a notification
// channel. Exactly one typed config block matching Type must be set.
type ChannelRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Enabled  *bool  `json:"enabled"`
	Priority int    `json:"priority"`

	Email   *models.EmailConfig   `json:"email,omitempty"`
	Webhook *models.WebhookConfig `json:"webhook,omitempty"`
	Chat    *models.ChatConfig    `json:"chat,omitempty"`
	SMS     *models.SMSConfig     `json:"sms,omitempty"`
}

// toModel validates the request and converts it to a channel.
func (req *ChannelRequest) toModel() (*models.NotificationChannel, *Error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("name is required")
	}
	channelType := models.ChannelType(req.Type)
	if !channelType.Valid() {
		return nil, NewValidationError("type must be one of email, webhook, chat, sms")
	}

	channel := &models.NotificationChannel{
		Name:     name,
		Type:     channelType,
		Enabled:  true,
		Priority: req.Priority,
		Email:    req.Email,
		Webhook:  req.Webhook,
		Chat:     req.Chat,
		SMS:      req.SMS,
	}
	if req.Enabled != nil {
		channel.Enabled = *req.Enabled
	}
	if err := channel.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}
	return channel, nil
}

func (s *Server) listChannels(w http.ResponseWriter, r *http.Request) {
	OK(w, s.channels.List())
}

func (s *Server) createChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid JSON body"))
		return
	}

	channel, apiErr := req.toModel()
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}

	created, err := s.channels.Create(channel)
	if err != nil {
		JSONError(w, NewValidationError(err.Error()))
		return
	}
	Created(w, created)
}

func (s *Server) getChannel(w http.ResponseWriter, r *http.Request) {
	channel, err := s.channels.Get(chi.URLParam(r, "id"))
	if err != nil {
		JSONError(w, NewNotFound("Channel not found"))
		return
	}
	OK(w, channel)
}

func (s *Server) updateChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid JSON body"))
		return
	}

	channel, apiErr := req.toModel()
	if apiErr != nil {
		JSONError(w, apiErr)
		return
	}

	updated, err := s.channels.Update(chi.URLParam(r, "id"), channel)
	if err != nil {
		if errors.Is(err, notifier.ErrChannelNotFound) {
			JSONError(w, NewNotFound("Channel not found"))
			return
		}
		JSONError(w, NewValidationError(err.Error()))
		return
	}
	OK(w, updated)
}

func (s *Server) deleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := s.channels.Delete(chi.URLParam(r, "id")); err != nil {
		JSONError(w, NewNotFound("Channel not found"))
		return
	}
	NoContent(w)
}

// TestResult reports the outcome of a test send through one channel.
type TestResult struct {
	ChannelID string `json:"channel_id"`
	Success   bool   `json:"success"`
}

func (s *Server) testChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.channels.Get(id); err != nil {
		JSONError(w, NewNotFound("Channel not found"))
		return
	}
	OK(w, TestResult{ChannelID: id, Success: s.dispatcher.Test(id)})
}
