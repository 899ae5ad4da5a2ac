// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anshulvish/ob-reports/internal/middleware"
)

// NewRouter builds the Chi router with the full middleware stack and all
// routes. CORS runs globally so OPTIONS preflight is handled before routing.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(h.cfg.Server.CORSOrigins))
	r.Use(middleware.Prometheus)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/health/ready", h.HealthReady)

		// Data endpoints share an IP-keyed rate limit.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(h.cfg.Server.RateLimitReqs, h.cfg.Server.RateLimitWindow))

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/date-ranges", h.DateRanges)
				r.Post("/query", h.Query)
			})

			r.Route("/bigquerytables", func(r chi.Router) {
				r.Get("/", h.TablesOverview)
				r.Get("/details", h.TablesDetails)
				r.Get("/date-range", h.TablesForRange)
				r.Post("/refresh", h.TablesRefresh)
			})

			r.Route("/engagement", func(r chi.Router) {
				r.Post("/metrics", h.EngagementMetrics)
				r.Post("/device-analytics", h.DeviceAnalytics)
				r.Post("/stage-progression", h.StageProgression)
				r.Post("/welcome-engagement", h.WelcomeEngagement)
				r.Post("/time-investment", h.TimeInvestment)
				r.Post("/user-sessions", h.UserSessions)
				r.Post("/screen-flow", h.ScreenFlow)
			})

			r.Get("/journeys/user/{identifier}", h.UserJourney)
		})
	})

	return r
}
