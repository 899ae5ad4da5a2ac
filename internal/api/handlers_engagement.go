// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"net/http"
	"time"

	"github.com/anshulvish/ob-reports/internal/cache"
	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/models"
	"github.com/anshulvish/ob-reports/internal/query"
	"github.com/anshulvish/ob-reports/internal/shaper"
	"github.com/anshulvish/ob-reports/internal/warehouse"
)

type composeFunc func(tables []catalog.Descriptor, f query.Filters) (string, []any, error)

// runMetric is the shared pipeline for the engagement endpoints: decode and
// validate the body, resolve the shards for the window, compose and execute
// the query, shape the rows and respond through the cache.
func runMetric[T any](h *Handler, w http.ResponseWriter, r *http.Request, operation string, ttl time.Duration, compose composeFunc, shape func([]warehouse.Row) T) {
	var req DateRangeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, end, ok := parseDateWindow(w, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	key := cache.GenerateKey(operation, req)
	cachedRespond(h, w, r, key, ttl, func() (any, error) {
		tables, err := h.eventTablesForWindow(r, start, end)
		if err != nil {
			return nil, err
		}

		sqlText, args, err := compose(tables, req.Filters.toQueryFilters())
		if err != nil {
			return nil, err
		}

		rows, err := h.exec.Execute(r.Context(), operation, sqlText, args...)
		if err != nil {
			return nil, err
		}

		return metricEnvelope(shape(rows), start, end, tables), nil
	})
}

// EngagementMetrics serves per-user engagement aggregates and the
// high/medium/low distribution.
func (h *Handler) EngagementMetrics(w http.ResponseWriter, r *http.Request) {
	runMetric(h, w, r, "engagement_metrics", h.cfg.Cache.MetricsTTL, query.EngagementMetrics, shaper.Engagement)
}

// DeviceAnalytics serves device, OS and browser breakdowns.
func (h *Handler) DeviceAnalytics(w http.ResponseWriter, r *http.Request) {
	compose := func(tables []catalog.Descriptor, _ query.Filters) (string, []any, error) {
		return query.DeviceAnalytics(tables)
	}
	runMetric(h, w, r, "device_analytics", h.cfg.Cache.MetricsTTL, compose, shaper.Device)
}

// StageProgression serves the funnel stage summary with drop-off points.
func (h *Handler) StageProgression(w http.ResponseWriter, r *http.Request) {
	runMetric(h, w, r, "stage_progression", h.cfg.Cache.MetricsTTL, query.StageProgression, shaper.StageProgression)
}

// TimeInvestment serves session duration buckets and percentiles.
func (h *Handler) TimeInvestment(w http.ResponseWriter, r *http.Request) {
	runMetric(h, w, r, "time_investment", h.cfg.Cache.MetricsTTL, query.TimeInvestment, shaper.TimeInvestment)
}

// WelcomeEngagement serves progression and exit rates off the welcome screen.
func (h *Handler) WelcomeEngagement(w http.ResponseWriter, r *http.Request) {
	runMetric(h, w, r, "welcome_engagement", h.cfg.Cache.MetricsTTL, query.WelcomeFunnel, shaper.Welcome)
}

// ScreenFlow serves screen-to-screen transition analysis.
func (h *Handler) ScreenFlow(w http.ResponseWriter, r *http.Request) {
	runMetric(h, w, r, "screen_flow", h.cfg.Cache.MetricsTTL, query.ScreenFlow, shaper.ScreenFlow)
}

// UserSessions serves reconstructed sessions with engagement scores. It has
// its own body shape (a session cap) so it does not go through runMetric.
func (h *Handler) UserSessions(w http.ResponseWriter, r *http.Request) {
	var req SessionsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, end, ok := parseDateWindow(w, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.cfg.API.SessionLimit
	}

	key := cache.GenerateKey("user_sessions", req)
	cachedRespond(h, w, r, key, h.cfg.Cache.SessionsTTL, func() (any, error) {
		tables, err := h.eventTablesForWindow(r, start, end)
		if err != nil {
			return nil, err
		}

		sqlText, args, err := query.UserSessions(tables, limit, req.Filters.toQueryFilters())
		if err != nil {
			return nil, err
		}

		rows, err := h.exec.Execute(r.Context(), "user_sessions", sqlText, args...)
		if err != nil {
			return nil, err
		}

		sessions := shaper.Sessions(rows, h.scoring)
		payload := models.UserSessionsPayload{Sessions: sessions, TotalSessions: len(sessions)}
		return metricEnvelope(payload, start, end, tables), nil
	})
}
