// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

/*
Package api exposes the HTTP surface of the analytics service.

Endpoints fall into four groups:

  - /api/health, /api/health/ready, /metrics — liveness, readiness and
    Prometheus exposition.
  - /api/analytics — date-range discovery and the raw query endpoint.
  - /api/bigquerytables — catalog inspection and forced refresh.
  - /api/engagement, /api/journeys — funnel metric endpoints backed by the
    composed warehouse queries.

Every data handler follows the same shape: decode and validate the request,
resolve the table shards for the date window from the catalog, compose a
parameterized query, execute it through the warehouse executor, shape the
rows into the response payload and wrap it in a MetricResponse envelope.
Responses are cached per endpoint family with TTLs from config.

Errors map to status codes in one place (respondQueryError): unavailable
warehouse → 400 before any query attempt, empty table set → 404, execution
failures → 500 with a sanitized body. Raw driver error text never reaches
clients; it is logged with the request ID instead.
*/
package api
