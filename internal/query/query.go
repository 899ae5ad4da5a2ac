// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package query composes warehouse SQL for the analytics endpoints. All
// functions are pure: (tables, request shape) in, (sql, args) out. Table
// identifiers come from the catalog and are interpolated with each part of
// the qualified name double-quoted; every user-supplied filter value binds
// as a ? parameter. When a statement unions several shards the per-branch
// parameters repeat once per branch, in text order.
package query

import (
	"fmt"
	"strings"

	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/funnel"
)

// Filters narrows event queries. Zero value applies no filtering.
type Filters struct {
	ExcludeTestUsers bool
	SchemaVersion    string
	Country          string
	EventNames       []string
}

// paramValue addresses the value struct of a named event parameter, NULL
// when the parameter is absent. List operations instead of an UNNEST
// subquery so the expression stays legal inside aggregate arguments.
func paramValue(key string) string {
	return fmt.Sprintf("list_extract(list_filter(event_params, p -> p.key = '%s'), 1).value", key)
}

// paramString extracts a named event parameter as a string, falling back
// to the int value when the string slot is empty.
func paramString(key string) string {
	v := paramValue(key)
	return fmt.Sprintf("COALESCE((%s).string_value, CAST((%s).int_value AS VARCHAR))", v, v)
}

// paramInt extracts a named event parameter's int slot.
func paramInt(key string) string {
	return fmt.Sprintf("(%s).int_value", paramValue(key))
}

// placeholders returns "?, ?, ..." with n slots.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// repeatArgs repeats one branch's parameters n times, matching the
// placeholder order of a UNION ALL statement.
func repeatArgs(args []any, n int) []any {
	if len(args) == 0 || n <= 1 {
		return args
	}
	out := make([]any, 0, len(args)*n)
	for i := 0; i < n; i++ {
		out = append(out, args...)
	}
	return out
}

// branchFilter renders the per-branch predicates for f against the raw
// event schema. Returned args pair with ? placeholders in clause order.
func (f Filters) branchFilter() (clauses []string, args []any) {
	if len(f.EventNames) > 0 {
		clauses = append(clauses, fmt.Sprintf("event_name IN (%s)", placeholders(len(f.EventNames))))
		for _, name := range f.EventNames {
			args = append(args, name)
		}
	}
	return clauses, args
}

// flattenedFilter renders the predicates that apply after parameter
// flattening, where userId, userEmail, schemaVersion, and country exist as
// columns.
func (f Filters) flattenedFilter() (clauses []string, args []any) {
	if f.ExcludeTestUsers {
		clauses = append(clauses,
			"NOT (LOWER(COALESCE(userId, '')) LIKE '%test%' OR LOWER(COALESCE(userId, '')) LIKE '%qa%' OR LOWER(COALESCE(userEmail, '')) LIKE '%test%')")
	}
	if f.SchemaVersion != "" {
		clauses = append(clauses, "schemaVersion = ?")
		args = append(args, f.SchemaVersion)
	}
	if f.Country != "" {
		clauses = append(clauses, "LOWER(country) = LOWER(?)")
		args = append(args, f.Country)
	}
	return clauses, args
}

func andJoin(clauses []string) string {
	return strings.Join(clauses, " AND ")
}

// unionWithGroupBy emits one grouped SELECT per table joined by UNION ALL.
// A single table keeps the bare form.
func unionWithGroupBy(tables []catalog.Descriptor, selectClause, whereClause, groupByClause string) (string, error) {
	if len(tables) == 0 {
		return "", catalog.ErrNoTables
	}
	branches := make([]string, 0, len(tables))
	for _, tbl := range tables {
		branch := fmt.Sprintf("SELECT %s FROM %s", selectClause, catalog.QuoteQualified(tbl.FullyQualifiedID))
		if whereClause != "" {
			branch += " WHERE " + whereClause
		}
		branch += " GROUP BY " + groupByClause
		branches = append(branches, branch)
	}
	return strings.Join(branches, "\nUNION ALL\n"), nil
}

// Sample selects raw rows across the resolved shards with a bound limit.
func Sample(tables []catalog.Descriptor, limit int) (string, []any, error) {
	base, err := catalog.BuildUnionQuery(tables, "*", "")
	if err != nil {
		return "", nil, err
	}
	return base + "\nLIMIT ?", []any{limit}, nil
}

// Engagement rolls event counts up per user and event name, busiest users
// first.
func Engagement(tables []catalog.Descriptor, limit int) (string, []any, error) {
	selectClause := "user_pseudo_id, event_name, event_timestamp, COUNT(*) AS event_count, MIN(event_timestamp) AS first_event, MAX(event_timestamp) AS last_event"
	whereClause := "event_name IS NOT NULL"

	base, err := unionWithGroupBy(tables, selectClause, whereClause, "user_pseudo_id, event_name, event_timestamp")
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`WITH user_events AS (
%s
)
SELECT
    user_pseudo_id,
    event_name,
    SUM(event_count) AS total_events,
    MIN(first_event) AS user_first_event,
    MAX(last_event) AS user_last_event
FROM user_events
GROUP BY user_pseudo_id, event_name
ORDER BY total_events DESC
LIMIT ?`, base)

	return sql, []any{limit}, nil
}

// UserJourneys numbers each user's events in time order for step-by-step
// journey inspection.
func UserJourneys(tables []catalog.Descriptor, limit int) (string, []any, error) {
	selectClause := strings.Join([]string{
		"user_pseudo_id",
		"event_name",
		"event_timestamp",
		paramString("screenName") + " AS screenName",
		paramString("sessionId") + " AS sessionId",
	}, ", ")
	whereClause := "user_pseudo_id IS NOT NULL AND event_name IS NOT NULL"

	base, err := catalog.BuildUnionQuery(tables, selectClause, whereClause)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`WITH user_events AS (
%s
),
user_journeys AS (
    SELECT
        user_pseudo_id,
        event_name,
        screenName,
        sessionId,
        event_timestamp,
        ROW_NUMBER() OVER (PARTITION BY user_pseudo_id ORDER BY event_timestamp) AS step_number
    FROM user_events
)
SELECT *
FROM user_journeys
ORDER BY user_pseudo_id, step_number
LIMIT ?`, base)

	return sql, []any{limit}, nil
}

// stageNumberExpr maps screenName to its 1-based funnel stage, 0 for
// unknown screens. Built from the funnel's screen table so the CASE and
// the in-process scoring agree.
func stageNumberExpr() string {
	var b strings.Builder
	b.WriteString("CASE\n")
	for i, screen := range funnel.Screens() {
		fmt.Fprintf(&b, "    WHEN screenName = '%s' THEN %d\n", screen, i+1)
	}
	b.WriteString("    ELSE 0\nEND")
	return b.String()
}

// stageNameExpr maps screenName to its display name.
func stageNameExpr() string {
	var b strings.Builder
	b.WriteString("CASE\n")
	for i, screen := range funnel.Screens() {
		fmt.Fprintf(&b, "    WHEN screenName = '%s' THEN '%s'\n", screen, funnel.StageName(i+1))
	}
	b.WriteString("    ELSE 'Unknown'\nEND")
	return b.String()
}

// backwardExpr flags transitions whose destination stage precedes the
// source stage under the funnel ordering.
func backwardExpr(fromCol, toCol string) string {
	screens := funnel.Screens()
	var b strings.Builder
	b.WriteString("CASE\n")
	for i := 1; i < len(screens); i++ {
		earlier := make([]string, 0, i)
		for _, s := range screens[:i] {
			earlier = append(earlier, "'"+s+"'")
		}
		fmt.Fprintf(&b, "    WHEN %s = '%s' AND %s IN (%s) THEN true\n",
			fromCol, screens[i], toCol, strings.Join(earlier, ", "))
	}
	b.WriteString("    ELSE false\nEND")
	return b.String()
}
