// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/anshulvish/ob-reports/internal/cache"
	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/config"
	"github.com/anshulvish/ob-reports/internal/funnel"
	"github.com/anshulvish/ob-reports/internal/logging"
	"github.com/anshulvish/ob-reports/internal/models"
	"github.com/anshulvish/ob-reports/internal/validation"
	"github.com/anshulvish/ob-reports/internal/warehouse"
)

// Handler carries the dependencies shared by all HTTP handlers.
type Handler struct {
	cfg     *config.Config
	catalog *catalog.Resolver
	exec    *warehouse.Executor
	cache   *cache.Cache
	scoring funnel.ScoringConfig

	version   string
	startTime time.Time
}

// NewHandler wires a Handler from the service dependencies. The executor may
// be backed by a nil client when the warehouse is not configured; data
// endpoints then return an availability error instead of querying.
func NewHandler(cfg *config.Config, resolver *catalog.Resolver, exec *warehouse.Executor, c *cache.Cache, version string) *Handler {
	return &Handler{
		cfg:       cfg,
		catalog:   resolver,
		exec:      exec,
		cache:     c,
		scoring:   cfg.Engagement.Scoring,
		version:   version,
		startTime: time.Now(),
	}
}

const dateLayout = "2006-01-02"

// sanitizeLogValue strips control characters so attacker-supplied strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			b.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, models.ErrorBody{Error: code, Message: message})
}

// respondQueryError maps pipeline errors to HTTP statuses. The wrapped
// driver error is logged, never sent to the client.
func (h *Handler) respondQueryError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logging.RequestIDFromContext(r.Context())

	var qe *warehouse.QueryError
	switch {
	case errors.Is(err, warehouse.ErrNotAvailable):
		respondError(w, http.StatusBadRequest, "warehouse_unavailable",
			"Analytics warehouse is not configured or not reachable")
	case errors.Is(err, catalog.ErrNoTables):
		respondError(w, http.StatusNotFound, "no_data",
			"No data available for the selected date range")
	case errors.As(err, &qe):
		logging.Error().
			Str("request_id", requestID).
			Str("operation", qe.Operation).
			Bool("retryable", qe.Retryable).
			Err(qe.Unwrap()).
			Msg("Warehouse query failed")
		msg := "Query execution failed"
		if qe.Retryable {
			msg = "Query execution failed, retry may succeed"
		}
		respondError(w, http.StatusInternalServerError, "query_failed", msg)
	default:
		logging.Error().Str("request_id", requestID).Err(err).Msg("Unexpected handler error")
		respondError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation.
// It writes the 400 response itself and reports whether the caller should
// continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", verr.Error())
		return false
	}
	return true
}

// parseDateWindow parses a validated start/end pair and enforces ordering.
func parseDateWindow(w http.ResponseWriter, startDate, endDate string) (start, end time.Time, ok bool) {
	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "startDate must be a calendar date in YYYY-MM-DD format")
		return start, end, false
	}
	end, err = time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "endDate must be a calendar date in YYYY-MM-DD format")
		return start, end, false
	}
	if end.Before(start) {
		respondError(w, http.StatusBadRequest, "invalid_request", "startDate must not be after endDate")
		return start, end, false
	}
	return start, end, true
}

// eventTablesForWindow resolves the event shards covering [start, end],
// triggering an opportunistic catalog refresh when the catalog is empty.
func (h *Handler) eventTablesForWindow(r *http.Request, start, end time.Time) ([]catalog.Descriptor, error) {
	if len(h.catalog.EventTables()) == 0 {
		if err := h.catalog.Refresh(r.Context(), false); err != nil && errors.Is(err, warehouse.ErrNotAvailable) {
			return nil, err
		}
	}
	tables := h.catalog.EventTablesForRange(start, end)
	if len(tables) == 0 {
		return nil, catalog.ErrNoTables
	}
	return tables, nil
}

func dateRangeInfo(start, end time.Time) models.DateRangeInfo {
	return models.DateRangeInfo{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		TotalDays: int(end.Sub(start).Hours()/24) + 1,
	}
}

func tablesUsedInfo(tables []catalog.Descriptor) []models.TableUsedInfo {
	out := make([]models.TableUsedInfo, 0, len(tables))
	for _, t := range tables {
		info := models.TableUsedInfo{
			TableID:    t.ID,
			IsIntraday: t.Type == catalog.TypeIntraday,
		}
		if t.Date != nil {
			info.Date = t.Date.Format(dateLayout)
		}
		if t.RowCount != nil {
			info.RowCount = *t.RowCount
		}
		out = append(out, info)
	}
	return out
}

// metricEnvelope wraps a shaped payload in the standard response envelope.
func metricEnvelope[T any](payload T, start, end time.Time, tables []catalog.Descriptor) models.MetricResponse[T] {
	return models.MetricResponse[T]{
		Success:    true,
		DateRange:  dateRangeInfo(start, end),
		TablesUsed: tablesUsedInfo(tables),
		Payload:    payload,
	}
}

// cachedRespond serves a cached response when present, otherwise builds one,
// stores it and serves it. Cache failures are never fatal.
func cachedRespond(h *Handler, w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, build func() (any, error)) {
	if v, ok := h.cache.Get(key); ok {
		respondJSON(w, http.StatusOK, v)
		return
	}

	resp, err := build()
	if err != nil {
		h.respondQueryError(w, r, err)
		return
	}

	h.cache.SetWithTTL(key, resp, ttl)
	respondJSON(w, http.StatusOK, resp)
}
