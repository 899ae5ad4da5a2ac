// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package catalog discovers and classifies the date-sharded tables of the
// event export dataset (events_YYYYMMDD, events_intraday_YYYYMMDD,
// pseudonymous_users_YYYYMMDD) and resolves date ranges to the physical
// tables a query must scan.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Type classifies an export table by its name shard pattern.
type Type int

const (
	// TypeOther is any table that matches no export shard pattern.
	TypeOther Type = iota

	// TypeEvents is a finalized daily shard: events_YYYYMMDD.
	TypeEvents

	// TypeIntraday is today's streaming shard: events_intraday_YYYYMMDD.
	TypeIntraday

	// TypeUsers is a user-properties shard: pseudonymous_users_YYYYMMDD.
	TypeUsers
)

// String returns the metric label for the type.
func (t Type) String() string {
	switch t {
	case TypeEvents:
		return "events"
	case TypeIntraday:
		return "events_intraday"
	case TypeUsers:
		return "users"
	default:
		return "other"
	}
}

// Descriptor describes one classified table in the catalog.
type Descriptor struct {
	// ID is the bare table name.
	ID string

	// FullyQualifiedID is the identifier used in FROM clauses.
	FullyQualifiedID string

	Type Type

	// Date is the shard date at UTC midnight, nil when the suffix did not
	// parse as a real calendar date.
	Date *time.Time

	RowCount  *int64
	SizeBytes *int64
}

// IsIntraday reports whether this is a streaming shard.
func (d Descriptor) IsIntraday() bool {
	return d.Type == TypeIntraday
}

// shard patterns; the suffix must be exactly eight digits.
var (
	eventsPattern   = regexp.MustCompile(`^events_(\d{8})$`)
	intradayPattern = regexp.MustCompile(`^events_intraday_(\d{8})$`)
	usersPattern    = regexp.MustCompile(`^pseudonymous_users_(\d{8})$`)
)

// Classify determines the type and shard date of a table name. A name that
// matches a shard pattern but carries an impossible date (events_99999999)
// keeps its type with a nil date, so it still shows up in listings without
// ever being selected for a range.
func Classify(tableID string) (Type, *time.Time) {
	var suffix string
	var typ Type

	switch {
	case intradayPattern.MatchString(tableID):
		typ = TypeIntraday
		suffix = intradayPattern.FindStringSubmatch(tableID)[1]
	case eventsPattern.MatchString(tableID):
		typ = TypeEvents
		suffix = eventsPattern.FindStringSubmatch(tableID)[1]
	case usersPattern.MatchString(tableID):
		typ = TypeUsers
		suffix = usersPattern.FindStringSubmatch(tableID)[1]
	default:
		return TypeOther, nil
	}

	date, err := time.ParseInLocation("20060102", suffix, time.UTC)
	if err != nil {
		return typ, nil
	}
	return typ, &date
}

// ErrNoTables is returned when a date range resolves to zero tables. The API
// maps it to a "no data for range" response.
var ErrNoTables = errors.New("no tables available for the requested range")

// QuoteQualified renders a dotted table identifier with each part quoted
// separately, the only form DuckDB accepts for schema-qualified names.
// Quoting the whole identifier as one string makes DuckDB look for a table
// whose name contains the dots.
func QuoteQualified(fqid string) string {
	parts := strings.Split(fqid, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// BuildUnionQuery composes a UNION ALL statement scanning the given tables,
// with the same select list and optional WHERE predicate applied per shard.
// The caller supplies bound parameters for the predicate separately, once
// per shard branch.
func BuildUnionQuery(tables []Descriptor, selectClause, whereClause string) (string, error) {
	if len(tables) == 0 {
		return "", ErrNoTables
	}

	branches := make([]string, len(tables))
	for i, tbl := range tables {
		branch := fmt.Sprintf("SELECT %s FROM %s", selectClause, QuoteQualified(tbl.FullyQualifiedID))
		if whereClause != "" {
			branch += " WHERE " + whereClause
		}
		branches[i] = branch
	}

	if len(branches) == 1 {
		return branches[0], nil
	}
	return strings.Join(branches, "\nUNION ALL\n"), nil
}
