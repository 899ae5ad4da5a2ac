// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package warehouse abstracts the analytics warehouse holding the GA4-style
// event export. The Client interface covers the three operations the service
// needs (list datasets, list tables, run a query); Executor wraps a Client
// with the timeout, rate-limit and circuit-breaker policy applied to every
// analytics query.
package warehouse

import (
	"context"
	"math/big"
	"strconv"
	"time"
)

// TableMeta describes one table in the export dataset.
type TableMeta struct {
	// ID is the bare table name, e.g. "events_20240115".
	ID string

	// FullyQualifiedID is the engine-quotable identifier,
	// e.g. "project.dataset.events_20240115".
	FullyQualifiedID string

	RowCount         *int64
	SizeBytes        *int64
	CreationTime     time.Time
	LastModifiedTime *time.Time
}

// Row is one result row keyed by column name. Values arrive with
// driver-dependent dynamic types; use the coercion helpers when consuming.
type Row map[string]any

// Client is the warehouse engine surface the service depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// ListDatasets returns the dataset (schema) names visible to the client.
	ListDatasets(ctx context.Context) ([]string, error)

	// ListTables returns metadata for every table in the dataset.
	ListTables(ctx context.Context, datasetID string) ([]TableMeta, error)

	// Query runs a SQL statement with positional ? parameters and returns
	// all result rows.
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)

	// Close releases the underlying engine resources.
	Close() error
}

// String returns the column as a string, "" when absent or null.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return ""
	}
}

// Int64 returns the column as an int64, 0 when absent, null, or unparsable.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case *big.Int:
		// DuckDB hands back HUGEINT for integer SUMs.
		return v.Int64()
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Float64 returns the column as a float64, 0 when absent, null, or unparsable.
func (r Row) Float64(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Bool returns the column as a bool. Numbers count as true when non-zero.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Time returns the column as a time.Time. Integer values are interpreted as
// microseconds since the Unix epoch, the unit GA4 exports use for
// event_timestamp. Returns the zero time when absent or untypable.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case int64:
		return time.UnixMicro(v).UTC()
	case float64:
		return time.UnixMicro(int64(v)).UTC()
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.UnixMicro(n).UTC()
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// Has reports whether the column is present and non-null.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}
