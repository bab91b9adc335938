// Package api exposes the management surface of the alerting core:
// rule and channel CRUD, active alerts, acknowledgment, notification
// history, and the system overview.
package api

import (
	"github.com/openestate/watchtower/internal/alerting"
	"github.com/openestate/watchtower/internal/escalation"
	"github.com/openestate/watchtower/internal/monitor"
	"github.com/openestate/watchtower/internal/notifier"
	"github.com/openestate/watchtower/internal/overview"
)

// Options configures the API server.
type Options struct {
	// Verbose logs every request instead of errors only.
	Verbose bool
	// RateLimitPerIP is the per-client request budget per minute.
	// Zero disables rate limiting.
	RateLimitPerIP int
}

// Server wires the core services into HTTP handlers.
type Server struct {
	rules      *alerting.RuleStore
	registry   *alerting.Registry
	policies   *escalation.PolicyRegistry
	channels   *notifier.ChannelRegistry
	dispatcher *notifier.Dispatcher
	history    *notifier.History
	recorder   *monitor.Recorder
	overview   *overview.Aggregator
	opts       Options
}

// NewServer creates an API server over the given core services.
func NewServer(
	rules *alerting.RuleStore,
	registry *alerting.Registry,
	policies *escalation.PolicyRegistry,
	channels *notifier.ChannelRegistry,
	dispatcher *notifier.Dispatcher,
	history *notifier.History,
	recorder *monitor.Recorder,
	agg *overview.Aggregator,
	opts Options,
) *Server {
	return &Server{
		rules:      rules,
		registry:   registry,
		policies:   policies,
		channels:   channels,
		dispatcher: dispatcher,
		history:    history,
		recorder:   recorder,
		overview:   agg,
		opts:       opts,
	}
}
