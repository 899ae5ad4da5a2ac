// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordWarehouseQuery(t *testing.T) {
	before := testutil.CollectAndCount(WarehouseQueryDuration)

	RecordWarehouseQuery("engagement_metrics", 120*time.Millisecond, 10, "")

	after := testutil.CollectAndCount(WarehouseQueryDuration)
	if after <= before-1 {
		t.Errorf("expected query duration series to be recorded")
	}
}

func TestRecordWarehouseQueryError(t *testing.T) {
	errCount := testutil.ToFloat64(WarehouseQueryErrors.WithLabelValues("sample", "timeout"))

	RecordWarehouseQuery("sample", time.Second, 0, "timeout")

	got := testutil.ToFloat64(WarehouseQueryErrors.WithLabelValues("sample", "timeout"))
	if got != errCount+1 {
		t.Errorf("expected timeout error counter to increment, got %v -> %v", errCount, got)
	}
}

func TestRecordCatalogRefresh(t *testing.T) {
	before := testutil.ToFloat64(CatalogRefreshTotal.WithLabelValues("success"))

	RecordCatalogRefresh("success", 80*time.Millisecond)

	after := testutil.ToFloat64(CatalogRefreshTotal.WithLabelValues("success"))
	if after != before+1 {
		t.Errorf("expected success counter to increment, got %v -> %v", before, after)
	}
}

func TestSetCatalogTables(t *testing.T) {
	SetCatalogTables(map[string]int{"events": 31, "events_intraday": 1})

	if got := testutil.ToFloat64(CatalogTables.WithLabelValues("events")); got != 31 {
		t.Errorf("events gauge = %v, want 31", got)
	}
	if got := testutil.ToFloat64(CatalogTables.WithLabelValues("events_intraday")); got != 1 {
		t.Errorf("intraday gauge = %v, want 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != base+1 {
		t.Errorf("active requests = %v, want %v", got, base+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != base {
		t.Errorf("active requests = %v, want %v", got, base)
	}
}
