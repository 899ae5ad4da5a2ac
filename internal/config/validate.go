// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package config

import (
	"errors"
	"fmt"
)

// Validate checks hard configuration errors. An unconfigured warehouse is
// deliberately not an error here: the service starts in degraded mode and
// reports the missing settings on its data endpoints instead.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}
	if c.Server.RateLimitReqs < 1 {
		errs = append(errs, errors.New("server.rate_limit_requests must be at least 1"))
	}
	if c.Server.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("server.rate_limit_window must be positive"))
	}

	if c.Warehouse.QueryTimeout <= 0 {
		errs = append(errs, errors.New("warehouse.query_timeout must be positive"))
	}
	if c.Warehouse.MaxResults < 1 {
		errs = append(errs, errors.New("warehouse.max_results must be at least 1"))
	}
	if c.Warehouse.QueriesPerSecond <= 0 {
		errs = append(errs, errors.New("warehouse.queries_per_second must be positive"))
	}
	if c.Warehouse.QueryBurst < 1 {
		errs = append(errs, errors.New("warehouse.query_burst must be at least 1"))
	}
	if c.Warehouse.BreakerThreshold < 1 {
		errs = append(errs, errors.New("warehouse.breaker_threshold must be at least 1"))
	}

	if c.Catalog.RefreshInterval <= 0 {
		errs = append(errs, errors.New("catalog.refresh_interval must be positive"))
	}
	if c.Catalog.ListTimeout <= 0 {
		errs = append(errs, errors.New("catalog.list_timeout must be positive"))
	}

	if c.Cache.MetricsTTL <= 0 || c.Cache.SessionsTTL <= 0 || c.Cache.HealthTTL <= 0 {
		errs = append(errs, errors.New("cache TTLs must be positive"))
	}

	if c.API.MaxResponseRows < 1 {
		errs = append(errs, errors.New("api.max_response_rows must be at least 1"))
	}
	if c.API.DefaultQueryLimit < 1 {
		errs = append(errs, errors.New("api.default_query_limit must be at least 1"))
	}
	if c.API.SessionLimit < 1 {
		errs = append(errs, errors.New("api.session_limit must be at least 1"))
	}
	if c.API.JourneyLookbackDays < 1 {
		errs = append(errs, errors.New("api.journey_lookback_days must be at least 1"))
	}

	s := c.Engagement.Scoring
	if s.StageWeight < 0 || s.MinutesWeight < 0 || s.RevisitWeight < 0 || s.CompletionBonus < 0 {
		errs = append(errs, errors.New("engagement.scoring weights must be non-negative"))
	}
	if !(s.LightThreshold < s.ModerateThreshold && s.ModerateThreshold < s.HighThreshold) {
		errs = append(errs, fmt.Errorf(
			"engagement.scoring thresholds must be strictly increasing (light %d < moderate %d < high %d)",
			s.LightThreshold, s.ModerateThreshold, s.HighThreshold))
	}

	return errors.Join(errs...)
}
