// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"fmt"
	"net/http"

	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/models"
	"github.com/anshulvish/ob-reports/internal/query"
	"github.com/anshulvish/ob-reports/internal/shaper"
)

// DateRanges reports the span of dates covered by the event export shards.
// The dashboard uses this to bound its date pickers.
func (h *Handler) DateRanges(w http.ResponseWriter, r *http.Request) {
	if !h.warehouseAvailable() {
		respondJSON(w, http.StatusOK, models.DateRangesResponse{
			Available: false,
			Message:   "Analytics warehouse is not configured",
		})
		return
	}

	if len(h.catalog.EventTables()) == 0 {
		_ = h.catalog.Refresh(r.Context(), false)
	}

	earliest, latest, ok := h.catalog.DateRange()
	if !ok {
		respondJSON(w, http.StatusOK, models.DateRangesResponse{
			Available: false,
			Message:   "No event tables found in the dataset",
		})
		return
	}

	daily, intraday := 0, 0
	for _, t := range h.catalog.EventTables() {
		if t.Type == catalog.TypeIntraday {
			intraday++
		} else {
			daily++
		}
	}

	respondJSON(w, http.StatusOK, models.DateRangesResponse{
		Available:      true,
		EarliestDate:   earliest.Format(dateLayout),
		LatestDate:     latest.Format(dateLayout),
		TotalDays:      int(latest.Sub(earliest).Hours()/24) + 1,
		DailyTables:    daily,
		IntradayTables: intraday,
	})
}

// Query runs one of the predefined raw query shapes over the selected date
// window. Rows are capped before they reach the client.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req AnalyticsQueryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, end, ok := parseDateWindow(w, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	tables, err := h.eventTablesForWindow(r, start, end)
	if err != nil {
		h.respondQueryError(w, r, err)
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.cfg.API.DefaultQueryLimit
	}

	var (
		sqlText string
		args    []any
	)
	switch req.QueryType {
	case "sample":
		sqlText, args, err = query.Sample(tables, limit)
	case "engagement":
		sqlText, args, err = query.Engagement(tables, limit)
	case "user_journeys":
		sqlText, args, err = query.UserJourneys(tables, limit)
	}
	if err != nil {
		h.respondQueryError(w, r, err)
		return
	}

	rows, err := h.exec.Execute(r.Context(), "analytics_"+req.QueryType, sqlText, args...)
	if err != nil {
		h.respondQueryError(w, r, err)
		return
	}

	data := shaper.Raw(rows)
	message := fmt.Sprintf("Query returned %d rows", len(data))
	if maxRows := h.cfg.API.MaxResponseRows; len(data) > maxRows {
		data = data[:maxRows]
		message = fmt.Sprintf("Query returned %d rows (showing first %d)", len(rows), maxRows)
	}

	respondJSON(w, http.StatusOK, models.AnalyticsQueryResponse{
		Success:    true,
		QueryType:  req.QueryType,
		DateRange:  dateRangeInfo(start, end),
		TablesUsed: tablesUsedInfo(tables),
		RowCount:   len(data),
		Data:       data,
		Message:    message,
	})
}
