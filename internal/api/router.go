package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router builds the chi router with all management routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger(s.opts.Verbose))
	r.Use(Recoverer)
	r.Use(PrometheusMiddleware)
	if s.opts.RateLimitPerIP > 0 {
		r.Use(RateLimitByIP(s.opts.RateLimitPerIP))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Post("/", s.createRule)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getRule)
				r.Put("/", s.updateRule)
				r.Delete("/", s.deleteRule)
				r.Post("/enable", s.enableRule)
				r.Post("/disable", s.disableRule)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.listActiveAlerts)
			r.Get("/all", s.listAllAlerts)
			r.Post("/{id}/acknowledge", s.acknowledgeAlert)
		})

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", s.listChannels)
			r.Post("/", s.createChannel)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getChannel)
				r.Put("/", s.updateChannel)
				r.Delete("/", s.deleteChannel)
				r.Post("/test", s.testChannel)
			})
		})

		r.Get("/policies", s.listPolicies)
		r.Get("/notifications", s.listNotifications)
		r.Get("/overview", s.getOverview)
		r.Get("/metrics/history", s.getMetricsHistory)
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		OK(w, map[string]string{"status": "ok"})
	})

	return r
}
