// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package warehouse

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/anshulvish/ob-reports/internal/logging"
	"github.com/anshulvish/ob-reports/internal/metrics"
)

// ExecutorConfig tunes the query execution policy.
type ExecutorConfig struct {
	// Timeout bounds each query, limiter wait included.
	Timeout time.Duration

	// QueriesPerSecond and Burst configure client-side throttling toward
	// the warehouse.
	QueriesPerSecond float64
	Burst            int

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit; BreakerCooldown is how long it stays open.
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

// Executor runs queries through a Client with a shared timeout, rate limit
// and circuit breaker. All analytics queries go through here so one slow or
// failing warehouse cannot pile up goroutines.
type Executor struct {
	client  Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]Row]
	timeout time.Duration
}

// NewExecutor wraps a client with the execution policy.
func NewExecutor(client Client, cfg ExecutorConfig) *Executor {
	settings := gobreaker.Settings{
		Name:        "warehouse",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("warehouse circuit breaker state change")
			metrics.BreakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
			metrics.BreakerState.Set(breakerStateValue(to))
		},
	}

	return &Executor{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.QueriesPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker[[]Row](settings),
		timeout: cfg.Timeout,
	}
}

// Execute runs one named query. The operation name labels metrics and logs;
// it never reaches the warehouse.
func (e *Executor) Execute(ctx context.Context, operation, sqlText string, args ...any) ([]Row, error) {
	if e == nil || e.client == nil {
		return nil, ErrNotAvailable
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	if err := e.limiter.Wait(ctx); err != nil {
		qerr, errType := classifyError(operation, err)
		metrics.RecordWarehouseQuery(operation, time.Since(start), 0, errType)
		return nil, qerr
	}

	rows, err := e.breaker.Execute(func() ([]Row, error) {
		return e.client.Query(ctx, sqlText, args...)
	})
	if err != nil {
		qerr, errType := classifyError(operation, err)
		metrics.RecordWarehouseQuery(operation, time.Since(start), 0, errType)
		logging.Ctx(ctx).Error().
			Err(err).
			Str("operation", operation).
			Bool("retryable", qerr.Retryable).
			Dur("elapsed", time.Since(start)).
			Msg("warehouse query failed")
		return nil, qerr
	}

	elapsed := time.Since(start)
	metrics.RecordWarehouseQuery(operation, elapsed, len(rows), "")
	logging.Ctx(ctx).Debug().
		Str("operation", operation).
		Int("rows", len(rows)).
		Dur("elapsed", elapsed).
		Msg("warehouse query completed")

	return rows, nil
}

// Client returns the wrapped client, for catalog listing calls that bypass
// the query policy.
func (e *Executor) Client() Client {
	if e == nil {
		return nil
	}
	return e.client
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
