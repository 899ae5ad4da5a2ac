// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anshulvish/ob-reports/internal/cache"
	"github.com/anshulvish/ob-reports/internal/logging"
	"github.com/anshulvish/ob-reports/internal/query"
	"github.com/anshulvish/ob-reports/internal/shaper"
)

// UserJourney reconstructs a single user's sessions across the lookback
// window. The identifier may be a user ID or an email; it is bound as a
// query parameter, never interpolated.
func (h *Handler) UserJourney(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	if identifier == "" || len(identifier) > 256 {
		respondError(w, http.StatusBadRequest, "invalid_request", "identifier must be a user ID or email")
		return
	}

	logging.Debug().Str("identifier", sanitizeLogValue(identifier)).Msg("User journey lookup")

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -h.cfg.API.JourneyLookbackDays)

	key := cache.GenerateKey("user_journey", identifier)
	cachedRespond(h, w, r, key, h.cfg.Cache.SessionsTTL, func() (any, error) {
		tables, err := h.eventTablesForWindow(r, start, end)
		if err != nil {
			return nil, err
		}

		sqlText, args, err := query.UserJourney(tables, identifier)
		if err != nil {
			return nil, err
		}

		rows, err := h.exec.Execute(r.Context(), "user_journey", sqlText, args...)
		if err != nil {
			return nil, err
		}

		journey := shaper.Journey(rows, identifier, h.scoring)
		return metricEnvelope(journey, start, end, tables), nil
	})
}
