// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package warehouse

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrNotAvailable is returned when no warehouse client is configured.
// Handlers map it to a client error without attempting a query.
var ErrNotAvailable = errors.New("warehouse client is not available")

// QueryError wraps a failed query execution. Retryable marks failures worth
// retrying (timeouts, open breaker); the wrapped error is for logs only and
// must not be sent to clients.
type QueryError struct {
	Operation string
	Retryable bool
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("warehouse query %q failed: %v", e.Operation, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// classifyError wraps an execution error with retryability and an error-type
// label for metrics.
func classifyError(operation string, err error) (*QueryError, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &QueryError{Operation: operation, Retryable: true, Err: err}, "timeout"
	case errors.Is(err, context.Canceled):
		return &QueryError{Operation: operation, Retryable: false, Err: err}, "canceled"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &QueryError{Operation: operation, Retryable: true, Err: err}, "breaker_open"
	default:
		return &QueryError{Operation: operation, Retryable: false, Err: err}, "execution"
	}
}
