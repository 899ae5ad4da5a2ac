// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/anshulvish/ob-reports/internal/cache"
	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/config"
	"github.com/anshulvish/ob-reports/internal/warehouse"
)

// fakeClient is an in-memory warehouse.Client for handler tests.
type fakeClient struct {
	tables     []warehouse.TableMeta
	rows       []warehouse.Row
	queryErr   error
	queryCalls int
}

func (f *fakeClient) ListDatasets(ctx context.Context) ([]string, error) {
	return []string{"analytics_123"}, nil
}

func (f *fakeClient) ListTables(ctx context.Context, datasetID string) ([]warehouse.TableMeta, error) {
	return f.tables, nil
}

func (f *fakeClient) Query(ctx context.Context, sql string, args ...any) ([]warehouse.Row, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeClient) Close() error { return nil }

func metaFor(ids ...string) []warehouse.TableMeta {
	metas := make([]warehouse.TableMeta, 0, len(ids))
	for _, id := range ids {
		metas = append(metas, warehouse.TableMeta{
			ID:               id,
			FullyQualifiedID: "proj.ds." + id,
		})
	}
	return metas
}

func newTestServer(t *testing.T, client warehouse.Client) (*httptest.Server, *Handler) {
	t.Helper()

	cfg := config.Default()
	resolver := catalog.NewResolver(client, "analytics_123", time.Minute, time.Minute)
	exec := warehouse.NewExecutor(client, warehouse.ExecutorConfig{
		Timeout:          5 * time.Second,
		QueriesPerSecond: 1000,
		Burst:            1000,
		BreakerThreshold: 100,
		BreakerCooldown:  time.Second,
	})
	h := NewHandler(cfg, resolver, exec, cache.New(time.Minute, time.Minute), "test")

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, h
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthDegradedWithoutWarehouse(t *testing.T) {
	cfg := config.Default()
	resolver := catalog.NewResolver(nil, "", time.Minute, time.Minute)
	h := NewHandler(cfg, resolver, warehouse.NewExecutor(nil, warehouse.ExecutorConfig{
		Timeout: time.Second, QueriesPerSecond: 1, Burst: 1, BreakerThreshold: 1, BreakerCooldown: time.Second,
	}), cache.New(time.Minute, time.Minute), "test")

	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
	if body["warehouseAvailable"] != false {
		t.Errorf("warehouseAvailable = %v, want false", body["warehouseAvailable"])
	}

	// Degraded service is still ready.
	ready, err := http.Get(srv.URL + "/api/health/ready")
	if err != nil {
		t.Fatalf("GET ready: %v", err)
	}
	ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", ready.StatusCode)
	}
}

func TestDegradedDataEndpointNoQuery(t *testing.T) {
	cfg := config.Default()
	resolver := catalog.NewResolver(nil, "", time.Minute, time.Minute)
	h := NewHandler(cfg, resolver, warehouse.NewExecutor(nil, warehouse.ExecutorConfig{
		Timeout: time.Second, QueriesPerSecond: 1, Burst: 1, BreakerThreshold: 1, BreakerCooldown: time.Second,
	}), cache.New(time.Minute, time.Minute), "test")

	srv := httptest.NewServer(NewRouter(h))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/engagement/metrics",
		`{"startDate":"2024-01-01","endDate":"2024-01-07"}`)
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body["error"] != "warehouse_unavailable" {
		t.Errorf("error = %v, want warehouse_unavailable", body["error"])
	}
}

func TestDateRanges(t *testing.T) {
	client := &fakeClient{
		tables: metaFor("events_20240114", "events_20240115", "events_intraday_20240116"),
	}
	srv, _ := newTestServer(t, client)

	resp, err := http.Get(srv.URL + "/api/analytics/date-ranges")
	if err != nil {
		t.Fatalf("GET date-ranges: %v", err)
	}
	var body map[string]any
	decodeBody(t, resp, &body)

	if body["available"] != true {
		t.Fatalf("available = %v, want true", body["available"])
	}
	if body["earliestDate"] != "2024-01-14" || body["latestDate"] != "2024-01-16" {
		t.Errorf("range = %v..%v, want 2024-01-14..2024-01-16", body["earliestDate"], body["latestDate"])
	}
	if body["totalDays"] != float64(3) {
		t.Errorf("totalDays = %v, want 3", body["totalDays"])
	}
	if body["dailyTables"] != float64(2) || body["intradayTables"] != float64(1) {
		t.Errorf("tables = %v daily / %v intraday, want 2/1", body["dailyTables"], body["intradayTables"])
	}
}

func TestQueryValidation(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{tables: metaFor("events_20240115")})

	tests := []struct {
		name string
		body string
	}{
		{"bad JSON", `{not json`},
		{"missing dates", `{"queryType":"sample"}`},
		{"bad query type", `{"startDate":"2024-01-01","endDate":"2024-01-02","queryType":"drop_tables"}`},
		{"reversed dates", `{"startDate":"2024-01-05","endDate":"2024-01-01","queryType":"sample"}`},
		{"bad date format", `{"startDate":"01/05/2024","endDate":"2024-01-07","queryType":"sample"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/analytics/query", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestQueryRowCap(t *testing.T) {
	rows := make([]warehouse.Row, 150)
	for i := range rows {
		rows[i] = warehouse.Row{"event_name": "aifp_screen_view", "n": int64(i)}
	}
	client := &fakeClient{tables: metaFor("events_20240115"), rows: rows}
	srv, _ := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/analytics/query",
		`{"startDate":"2024-01-15","endDate":"2024-01-15","queryType":"sample","limit":200}`)
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := body["data"].([]any)
	if len(data) != 100 {
		t.Errorf("data rows = %d, want capped at 100", len(data))
	}
	if body["rowCount"] != float64(100) {
		t.Errorf("rowCount = %v, want 100", body["rowCount"])
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "showing first 100") {
		t.Errorf("message %q should mention the row cap", msg)
	}
}

func TestNoTablesForRange(t *testing.T) {
	client := &fakeClient{tables: metaFor("events_20240115")}
	srv, _ := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/engagement/metrics",
		`{"startDate":"2023-06-01","endDate":"2023-06-07"}`)
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body["error"] != "no_data" {
		t.Errorf("error = %v, want no_data", body["error"])
	}
}

func TestEngagementMetricsServedAndCached(t *testing.T) {
	client := &fakeClient{
		tables: metaFor("events_20240115"),
		rows: []warehouse.Row{
			{"metric_type": "overall", "total_users": int64(42), "avg_events_per_user": 12.5},
			{"metric_type": "distribution", "engagement_level": "High", "user_count": int64(10)},
			{"metric_type": "distribution", "engagement_level": "Low", "user_count": int64(32)},
		},
	}
	srv, _ := newTestServer(t, client)

	body := `{"startDate":"2024-01-15","endDate":"2024-01-15","filters":{"excludeTestUsers":true}}`

	resp := postJSON(t, srv.URL+"/api/engagement/metrics", body)
	var envelope map[string]any
	decodeBody(t, resp, &envelope)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if envelope["success"] != true {
		t.Errorf("success = %v, want true", envelope["success"])
	}
	payload, _ := envelope["payload"].(map[string]any)
	if payload["totalUsers"] != float64(42) {
		t.Errorf("totalUsers = %v, want 42", payload["totalUsers"])
	}
	dist, _ := payload["engagementDistribution"].([]any)
	if len(dist) != 2 {
		t.Errorf("distribution entries = %d, want 2", len(dist))
	}

	// Second identical request must come from the cache.
	resp2 := postJSON(t, srv.URL+"/api/engagement/metrics", body)
	resp2.Body.Close()
	if client.queryCalls != 1 {
		t.Errorf("query calls = %d, want 1 (second response cached)", client.queryCalls)
	}
}

func TestQueryFailureSanitized(t *testing.T) {
	client := &fakeClient{
		tables:   metaFor("events_20240115"),
		queryErr: errors.New("dial tcp 10.1.2.3:5432: secret credential rejected"),
	}
	srv, _ := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/engagement/stage-progression",
		`{"startDate":"2024-01-15","endDate":"2024-01-15"}`)
	var body map[string]any
	decodeBody(t, resp, &body)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	raw, _ := json.Marshal(body)
	if strings.Contains(string(raw), "secret credential") || strings.Contains(string(raw), "10.1.2.3") {
		t.Errorf("driver error text leaked to client: %s", raw)
	}
	if body["error"] != "query_failed" {
		t.Errorf("error = %v, want query_failed", body["error"])
	}
}

func TestUserSessionsEndpoint(t *testing.T) {
	client := &fakeClient{
		tables: metaFor("events_20240115"),
		rows: []warehouse.Row{
			{
				"sessionId":        "s-1",
				"userId":           "u-1",
				"userEmail":        "u1@example.com",
				"session_start":    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				"session_end":      time.Date(2024, 1, 15, 10, 10, 0, 0, time.UTC),
				"duration_seconds": float64(600),
				"event_count":      int64(12),
				"unique_screens":   int64(9),
				"screen_views":     int64(11),
				"screens_viewed":   []any{"welcome", "dy-quiz/1", "outro"},
				"completed":        true,
				"country":          "Germany",
			},
		},
	}
	srv, _ := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/engagement/user-sessions",
		`{"startDate":"2024-01-15","endDate":"2024-01-15","limit":50}`)
	var envelope map[string]any
	decodeBody(t, resp, &envelope)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload, _ := envelope["payload"].(map[string]any)
	if payload["totalSessions"] != float64(1) {
		t.Fatalf("totalSessions = %v, want 1", payload["totalSessions"])
	}
	sessions, _ := payload["sessions"].([]any)
	session, _ := sessions[0].(map[string]any)
	if session["engagementScore"] != float64(76) {
		t.Errorf("engagementScore = %v, want 76", session["engagementScore"])
	}
	if session["engagementLevel"] != "ModeratelyEngaged" {
		t.Errorf("engagementLevel = %v, want ModeratelyEngaged", session["engagementLevel"])
	}
}

func TestUserJourneyEndpoint(t *testing.T) {
	today := time.Now().UTC().Format("20060102")
	base := time.Now().UTC().Add(-time.Hour)
	client := &fakeClient{
		tables: metaFor("events_" + today),
		rows: []warehouse.Row{
			{
				"event_timestamp": base.UnixMicro(),
				"event_name":      "aifp_screen_view",
				"sessionId":       "s-1",
				"userId":          "u-42",
				"screenName":      "welcome",
			},
			{
				"event_timestamp": base.Add(2 * time.Minute).UnixMicro(),
				"event_name":      "aifp_screen_view",
				"sessionId":       "s-1",
				"userId":          "u-42",
				"screenName":      "dy-quiz/1",
			},
		},
	}
	srv, _ := newTestServer(t, client)

	resp, err := http.Get(srv.URL + "/api/journeys/user/u-42")
	if err != nil {
		t.Fatalf("GET journey: %v", err)
	}
	var envelope map[string]any
	decodeBody(t, resp, &envelope)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	payload, _ := envelope["payload"].(map[string]any)
	if payload["userId"] != "u-42" {
		t.Errorf("userId = %v, want u-42", payload["userId"])
	}
	if payload["totalSessions"] != float64(1) {
		t.Errorf("totalSessions = %v, want 1", payload["totalSessions"])
	}
}

func TestTablesOverviewAndRefresh(t *testing.T) {
	client := &fakeClient{
		tables: metaFor("events_20240114", "events_20240115", "events_intraday_20240116", "pseudonymous_users_20240115"),
	}
	srv, _ := newTestServer(t, client)

	resp, err := http.Get(srv.URL + "/api/bigquerytables")
	if err != nil {
		t.Fatalf("GET tables: %v", err)
	}
	var overview map[string]any
	decodeBody(t, resp, &overview)

	if overview["totalTables"] != float64(4) {
		t.Errorf("totalTables = %v, want 4", overview["totalTables"])
	}
	if overview["eventTables"] != float64(3) || overview["userTables"] != float64(1) {
		t.Errorf("eventTables/userTables = %v/%v, want 3/1", overview["eventTables"], overview["userTables"])
	}
	latest, _ := overview["latestEventTable"].(map[string]any)
	if latest["tableId"] != "events_intraday_20240116" {
		t.Errorf("latestEventTable = %v, want events_intraday_20240116", latest["tableId"])
	}
	if latest["isIntraday"] != true {
		t.Errorf("latestEventTable isIntraday = %v, want true", latest["isIntraday"])
	}

	refreshResp := postJSON(t, srv.URL+"/api/bigquerytables/refresh", `{}`)
	var refresh map[string]any
	decodeBody(t, refreshResp, &refresh)

	if refresh["success"] != true {
		t.Errorf("refresh success = %v, want true", refresh["success"])
	}
	if refresh["tableCount"] != float64(4) {
		t.Errorf("tableCount = %v, want 4", refresh["tableCount"])
	}
}

func TestTablesForRangeFilter(t *testing.T) {
	client := &fakeClient{
		tables: metaFor("events_20240114", "events_20240115", "events_20240120", "pseudonymous_users_20240115"),
	}
	srv, _ := newTestServer(t, client)

	resp, err := http.Get(srv.URL + "/api/bigquerytables/date-range?startDate=2024-01-14&endDate=2024-01-16&tableType=events")
	if err != nil {
		t.Fatalf("GET date-range: %v", err)
	}
	var body map[string]any
	decodeBody(t, resp, &body)

	if body["tableCount"] != float64(2) {
		t.Errorf("tableCount = %v, want 2", body["tableCount"])
	}

	// Missing parameters are a client error.
	bad, err := http.Get(srv.URL + "/api/bigquerytables/date-range")
	if err != nil {
		t.Fatalf("GET date-range: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", bad.StatusCode)
	}
}
