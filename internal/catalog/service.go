// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/anshulvish/ob-reports/internal/logging"
	"github.com/anshulvish/ob-reports/internal/warehouse"
)

// RefreshService keeps the resolver's snapshot current on a fixed interval.
// It implements suture.Service and is meant to run under the root supervisor.
type RefreshService struct {
	resolver *Resolver
	interval time.Duration
}

// NewRefreshService returns a service that refreshes the catalog every
// interval until its context is canceled.
func NewRefreshService(resolver *Resolver, interval time.Duration) *RefreshService {
	return &RefreshService{resolver: resolver, interval: interval}
}

// Serve runs the refresh loop. An unconfigured warehouse is not an error;
// the loop keeps ticking so a later restart with a configured client
// behaves the same way.
func (s *RefreshService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.resolver.Refresh(ctx, false); err != nil {
				if errors.Is(err, warehouse.ErrNotAvailable) {
					continue
				}
				logging.Ctx(ctx).Warn().Err(err).Msg("periodic catalog refresh failed")
			}
		}
	}
}

func (s *RefreshService) String() string { return "catalog-refresh" }
