// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClient scripts Query behavior for executor tests.
type fakeClient struct {
	rows    []Row
	err     error
	block   bool
	queries int
}

func (f *fakeClient) ListDatasets(_ context.Context) ([]string, error) {
	return []string{"analytics_123"}, nil
}

func (f *fakeClient) ListTables(_ context.Context, _ string) ([]TableMeta, error) {
	return nil, nil
}

func (f *fakeClient) Query(ctx context.Context, _ string, _ ...any) ([]Row, error) {
	f.queries++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeClient) Close() error { return nil }

func testExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Timeout:          time.Second,
		QueriesPerSecond: 1000,
		Burst:            100,
		BreakerThreshold: 3,
		BreakerCooldown:  time.Minute,
	}
}

func TestExecutorSuccess(t *testing.T) {
	client := &fakeClient{rows: []Row{{"n": int64(1)}, {"n": int64(2)}}}
	exec := NewExecutor(client, testExecutorConfig())

	rows, err := exec.Execute(context.Background(), "sample", "SELECT 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
	if client.queries != 1 {
		t.Errorf("expected 1 query, got %d", client.queries)
	}
}

func TestExecutorNilReceiver(t *testing.T) {
	var exec *Executor

	_, err := exec.Execute(context.Background(), "sample", "SELECT 1")
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("expected ErrNotAvailable, got %v", err)
	}
}

func TestExecutorTimeoutIsRetryable(t *testing.T) {
	client := &fakeClient{block: true}
	cfg := testExecutorConfig()
	cfg.Timeout = 30 * time.Millisecond
	exec := NewExecutor(client, cfg)

	_, err := exec.Execute(context.Background(), "engagement_metrics", "SELECT 1")
	if err == nil {
		t.Fatal("expected timeout error")
	}

	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *QueryError, got %T", err)
	}
	if !qerr.Retryable {
		t.Error("timeout should be retryable")
	}
	if qerr.Operation != "engagement_metrics" {
		t.Errorf("operation = %q", qerr.Operation)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected wrapped DeadlineExceeded")
	}
}

func TestExecutorExecutionErrorNotRetryable(t *testing.T) {
	client := &fakeClient{err: errors.New("syntax error near SELECT")}
	exec := NewExecutor(client, testExecutorConfig())

	_, err := exec.Execute(context.Background(), "sample", "SELEC 1")

	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *QueryError, got %T", err)
	}
	if qerr.Retryable {
		t.Error("execution errors should not be retryable")
	}
}

func TestExecutorBreakerOpens(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	cfg := testExecutorConfig()
	cfg.BreakerThreshold = 2
	exec := NewExecutor(client, cfg)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := exec.Execute(ctx, "sample", "SELECT 1"); err == nil {
			t.Fatal("expected failure")
		}
	}

	// Third call should be rejected by the open breaker without reaching
	// the client.
	queriesBefore := client.queries
	_, err := exec.Execute(ctx, "sample", "SELECT 1")
	if err == nil {
		t.Fatal("expected breaker-open error")
	}

	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("expected *QueryError, got %T", err)
	}
	if !qerr.Retryable {
		t.Error("breaker-open should be retryable")
	}
	if client.queries != queriesBefore {
		t.Errorf("open breaker should not forward queries, client saw %d more", client.queries-queriesBefore)
	}
}

func TestExecutorClientAccessor(t *testing.T) {
	client := &fakeClient{}
	exec := NewExecutor(client, testExecutorConfig())

	if exec.Client() != Client(client) {
		t.Error("Client() should return the wrapped client")
	}

	var nilExec *Executor
	if nilExec.Client() != nil {
		t.Error("nil executor should return nil client")
	}
}
