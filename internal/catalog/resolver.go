// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anshulvish/ob-reports/internal/logging"
	"github.com/anshulvish/ob-reports/internal/metrics"
	"github.com/anshulvish/ob-reports/internal/warehouse"
)

// Snapshot is one immutable catalog listing. Readers always see a complete
// snapshot; refreshes swap the whole thing atomically.
type Snapshot struct {
	Tables      []Descriptor
	RefreshedAt time.Time
}

// Resolver maintains the current catalog snapshot and answers table-range
// lookups against it.
type Resolver struct {
	client      warehouse.Client
	datasetID   string
	interval    time.Duration
	listTimeout time.Duration

	snap atomic.Pointer[Snapshot]

	// refreshMu serializes refreshes; lookups never take it.
	refreshMu sync.Mutex
}

// NewResolver creates a resolver over the given warehouse client. The client
// may be nil when the warehouse is not configured; lookups then see an empty
// catalog and Refresh reports warehouse.ErrNotAvailable.
func NewResolver(client warehouse.Client, datasetID string, refreshInterval, listTimeout time.Duration) *Resolver {
	return &Resolver{
		client:      client,
		datasetID:   datasetID,
		interval:    refreshInterval,
		listTimeout: listTimeout,
	}
}

// Snapshot returns the current snapshot, never nil.
func (r *Resolver) Snapshot() *Snapshot {
	if snap := r.snap.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}

// Refresh lists the dataset tables and swaps in a new snapshot. Unless
// force is set, refreshes within the configured interval of the last one
// are skipped. On failure the previous snapshot stays in place.
func (r *Resolver) Refresh(ctx context.Context, force bool) error {
	if r.client == nil {
		return warehouse.ErrNotAvailable
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	if prev := r.snap.Load(); prev != nil && !force && time.Since(prev.RefreshedAt) < r.interval {
		metrics.RecordCatalogRefresh("skipped", 0)
		logging.Ctx(ctx).Debug().
			Time("last_refresh", prev.RefreshedAt).
			Msg("catalog refresh skipped, within interval")
		return nil
	}

	start := time.Now()
	listCtx, cancel := context.WithTimeout(ctx, r.listTimeout)
	defer cancel()

	metas, err := r.client.ListTables(listCtx, r.datasetID)
	if err != nil {
		metrics.RecordCatalogRefresh("failure", time.Since(start))
		logging.Ctx(ctx).Error().Err(err).
			Str("dataset", r.datasetID).
			Msg("catalog refresh failed, keeping previous snapshot")
		return fmt.Errorf("failed to list tables in %s: %w", r.datasetID, err)
	}

	tables := make([]Descriptor, 0, len(metas))
	typeCounts := make(map[string]int, 4)
	for _, meta := range metas {
		typ, date := Classify(meta.ID)
		tables = append(tables, Descriptor{
			ID:               meta.ID,
			FullyQualifiedID: meta.FullyQualifiedID,
			Type:             typ,
			Date:             date,
			RowCount:         meta.RowCount,
			SizeBytes:        meta.SizeBytes,
		})
		typeCounts[typ.String()]++
	}

	// Newest first; dateless shards sink to the bottom.
	sort.Slice(tables, func(i, j int) bool {
		di, dj := tables[i].Date, tables[j].Date
		switch {
		case di == nil && dj == nil:
			return tables[i].ID < tables[j].ID
		case di == nil:
			return false
		case dj == nil:
			return true
		case !di.Equal(*dj):
			return di.After(*dj)
		default:
			return tables[i].ID < tables[j].ID
		}
	})

	r.snap.Store(&Snapshot{Tables: tables, RefreshedAt: time.Now()})

	metrics.RecordCatalogRefresh("success", time.Since(start))
	metrics.SetCatalogTables(typeCounts)
	logging.Ctx(ctx).Info().
		Str("dataset", r.datasetID).
		Int("tables", len(tables)).
		Int("events", typeCounts[TypeEvents.String()]).
		Int("intraday", typeCounts[TypeIntraday.String()]).
		Int("users", typeCounts[TypeUsers.String()]).
		Dur("elapsed", time.Since(start)).
		Msg("catalog refreshed")

	return nil
}

// RefreshedAt returns when the current snapshot was taken, zero when the
// catalog has never been refreshed.
func (r *Resolver) RefreshedAt() time.Time {
	return r.Snapshot().RefreshedAt
}

// AllTables returns every table in the snapshot, newest first.
func (r *Resolver) AllTables() []Descriptor {
	return r.Snapshot().Tables
}

// EventTables returns the event shards (daily and intraday), newest first.
func (r *Resolver) EventTables() []Descriptor {
	return r.tablesOfType(TypeEvents, TypeIntraday)
}

// UserTables returns the pseudonymous-user shards, newest first.
func (r *Resolver) UserTables() []Descriptor {
	return r.tablesOfType(TypeUsers)
}

func (r *Resolver) tablesOfType(types ...Type) []Descriptor {
	var out []Descriptor
	for _, tbl := range r.Snapshot().Tables {
		for _, typ := range types {
			if tbl.Type == typ {
				out = append(out, tbl)
				break
			}
		}
	}
	return out
}

// EventTablesForRange returns the event shards whose date falls inside
// [start, end] (dates compared at day granularity), intraday included,
// ascending by date.
func (r *Resolver) EventTablesForRange(start, end time.Time) []Descriptor {
	return r.tablesForRange(start, end, TypeEvents, TypeIntraday)
}

// UserTablesForRange returns the user shards inside [start, end],
// ascending by date.
func (r *Resolver) UserTablesForRange(start, end time.Time) []Descriptor {
	return r.tablesForRange(start, end, TypeUsers)
}

func (r *Resolver) tablesForRange(start, end time.Time, types ...Type) []Descriptor {
	startDay := truncateDay(start)
	endDay := truncateDay(end)

	var out []Descriptor
	for _, tbl := range r.Snapshot().Tables {
		if tbl.Date == nil {
			continue
		}
		match := false
		for _, typ := range types {
			if tbl.Type == typ {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		day := *tbl.Date
		if day.Before(startDay) || day.After(endDay) {
			continue
		}
		out = append(out, tbl)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(*out[j].Date) {
			return out[i].Date.Before(*out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LatestEventTable returns the most recent event shard. The intraday shard
// wins only when it is strictly newer than every finalized daily shard, so
// a finalized day is preferred over its own streaming copy.
func (r *Resolver) LatestEventTable() *Descriptor {
	// One snapshot load for the whole scan; a concurrent refresh must not
	// mix descriptors from two snapshots.
	tables := r.Snapshot().Tables

	var latestDaily, latestIntraday *Descriptor
	for i := range tables {
		tbl := &tables[i]
		if tbl.Date == nil {
			continue
		}
		switch tbl.Type {
		case TypeEvents:
			if latestDaily == nil || tbl.Date.After(*latestDaily.Date) {
				latestDaily = tbl
			}
		case TypeIntraday:
			if latestIntraday == nil || tbl.Date.After(*latestIntraday.Date) {
				latestIntraday = tbl
			}
		}
	}

	if latestIntraday != nil && (latestDaily == nil || latestIntraday.Date.After(*latestDaily.Date)) {
		return latestIntraday
	}
	return latestDaily
}

// LatestUserTable returns the most recent user shard, nil when none exist.
func (r *Resolver) LatestUserTable() *Descriptor {
	tables := r.Snapshot().Tables

	var latest *Descriptor
	for i := range tables {
		tbl := &tables[i]
		if tbl.Type != TypeUsers || tbl.Date == nil {
			continue
		}
		if latest == nil || tbl.Date.After(*latest.Date) {
			latest = tbl
		}
	}
	return latest
}

// DateRange returns the earliest and latest shard dates present for event
// tables, ok=false when the catalog holds no dated event shards.
func (r *Resolver) DateRange() (earliest, latest time.Time, ok bool) {
	for _, tbl := range r.Snapshot().Tables {
		if tbl.Date == nil || (tbl.Type != TypeEvents && tbl.Type != TypeIntraday) {
			continue
		}
		d := *tbl.Date
		if !ok {
			earliest, latest, ok = d, d, true
			continue
		}
		if d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}
	return earliest, latest, ok
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
