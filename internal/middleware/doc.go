// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

/*
Package middleware provides HTTP middleware for the analytics API.

All middleware is Chi-compatible (func(http.Handler) http.Handler) and is
wired in cmd/server via the router's Use chain:

	r.Use(middleware.RequestID)
	r.Use(middleware.Prometheus)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RateLimit(cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow))

RequestID attaches an X-Request-ID header (reusing the caller's if present)
and stores the ID in the request context for structured log correlation.
Prometheus records per-endpoint request counts, durations and the in-flight
gauge. CORS and RateLimit are thin factories over the go-chi ecosystem
implementations.
*/
package middleware
