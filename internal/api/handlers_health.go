// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"net/http"
	"time"

	"github.com/anshulvish/ob-reports/internal/models"
)

func (h *Handler) warehouseAvailable() bool {
	return h.exec != nil && h.exec.Client() != nil
}

// Health reports liveness. The service stays up without a warehouse; the
// status flips to "degraded" so operators can tell the two apart.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.warehouseAvailable() {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:             status,
		Version:            h.version,
		UptimeSeconds:      time.Since(h.startTime).Seconds(),
		WarehouseAvailable: h.warehouseAvailable(),
		CatalogTables:      len(h.catalog.AllTables()),
		CatalogRefreshedAt: h.catalog.RefreshedAt(),
	})
}

// HealthReady reports readiness. A configured warehouse must have completed
// at least one catalog refresh before the service accepts traffic; a
// degraded (unconfigured) service is ready immediately.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.warehouseAvailable() && h.catalog.RefreshedAt().IsZero() {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "Catalog has not been loaded yet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
