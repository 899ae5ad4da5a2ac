// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/models"
)

func tableDetail(d *catalog.Descriptor) *models.TableDetail {
	if d == nil {
		return nil
	}
	detail := &models.TableDetail{
		TableID:    d.ID,
		Type:       d.Type.String(),
		IsIntraday: d.Type == catalog.TypeIntraday,
		RowCount:   d.RowCount,
	}
	if d.Date != nil {
		detail.Date = d.Date.Format(dateLayout)
	}
	if d.SizeBytes != nil {
		mb := float64(*d.SizeBytes) / (1024 * 1024)
		detail.SizeMB = &mb
	}
	return detail
}

// TablesOverview summarizes the catalog: shard counts, the latest shards and
// the covered date span.
func (h *Handler) TablesOverview(w http.ResponseWriter, r *http.Request) {
	if len(h.catalog.AllTables()) == 0 {
		_ = h.catalog.Refresh(r.Context(), false)
	}

	overview := models.TablesOverview{
		TotalTables:      len(h.catalog.AllTables()),
		EventTables:      len(h.catalog.EventTables()),
		UserTables:       len(h.catalog.UserTables()),
		LatestEventTable: tableDetail(h.catalog.LatestEventTable()),
		LatestUserTable:  tableDetail(h.catalog.LatestUserTable()),
		RefreshedAt:      h.catalog.RefreshedAt(),
	}
	if earliest, latest, ok := h.catalog.DateRange(); ok {
		overview.DateRange = &models.CatalogSpan{
			Earliest: earliest.Format(dateLayout),
			Latest:   latest.Format(dateLayout),
		}
	}

	respondJSON(w, http.StatusOK, overview)
}

// TablesDetails lists every classified table in the catalog, newest first.
func (h *Handler) TablesDetails(w http.ResponseWriter, r *http.Request) {
	if len(h.catalog.AllTables()) == 0 {
		_ = h.catalog.Refresh(r.Context(), false)
	}

	all := h.catalog.AllTables()
	details := make([]*models.TableDetail, 0, len(all))
	for i := range all {
		details = append(details, tableDetail(&all[i]))
	}

	respondJSON(w, http.StatusOK, details)
}

// TablesForRange lists the shards that would serve a query over the given
// window. tableType selects events (default) or users shards.
func (h *Handler) TablesForRange(w http.ResponseWriter, r *http.Request) {
	startDate := r.URL.Query().Get("startDate")
	endDate := r.URL.Query().Get("endDate")
	if startDate == "" || endDate == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "startDate and endDate query parameters are required")
		return
	}
	start, end, ok := parseDateWindow(w, startDate, endDate)
	if !ok {
		return
	}

	tableType := r.URL.Query().Get("tableType")
	if tableType == "" {
		tableType = "events"
	}

	var tables []catalog.Descriptor
	switch tableType {
	case "events":
		tables = h.catalog.EventTablesForRange(start, end)
	case "users":
		tables = h.catalog.UserTablesForRange(start, end)
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", "tableType must be events or users")
		return
	}

	respondJSON(w, http.StatusOK, models.TablesForRangeResponse{
		StartDate:  start.Format(dateLayout),
		EndDate:    end.Format(dateLayout),
		TableType:  tableType,
		TableCount: len(tables),
		Tables:     tablesUsedInfo(tables),
	})
}

// TablesRefresh forces a catalog refresh, bypassing the interval gate.
func (h *Handler) TablesRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context(), true); err != nil {
		h.respondQueryError(w, r, err)
		return
	}

	count := len(h.catalog.AllTables())
	respondJSON(w, http.StatusOK, models.RefreshResponse{
		Success:    true,
		Message:    fmt.Sprintf("Catalog refreshed with %d tables at %s", count, time.Now().UTC().Format(time.RFC3339)),
		TableCount: count,
	})
}
