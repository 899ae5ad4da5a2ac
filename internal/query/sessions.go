// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package query

import (
	"fmt"
	"strings"

	"github.com/anshulvish/ob-reports/internal/catalog"
	"github.com/anshulvish/ob-reports/internal/funnel"
)

// funnelEventList renders the onboarding event-name allow list. The names
// are package constants, not user input.
func funnelEventList(names ...string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, "'"+n+"'")
	}
	return strings.Join(quoted, ", ")
}

// flattenedSelect extracts the onboarding parameters and geo attributes
// every session-level query works from.
func flattenedSelect() string {
	return strings.Join([]string{
		"event_name",
		"event_timestamp",
		paramString("sessionId") + " AS sessionId",
		paramString("userId") + " AS userId",
		paramString("userEmail") + " AS userEmail",
		paramString(funnel.ParamScreenName) + " AS screenName",
		paramString("schemaVersion") + " AS schemaVersion",
		"geo.country AS country",
		"geo.region AS region",
		"geo.city AS city",
	}, ",\n    ")
}

// UserSessions reconstructs onboarding sessions across the resolved
// shards, most recent first, with a bound row limit.
func UserSessions(tables []catalog.Descriptor, limit int, f Filters) (string, []any, error) {
	whereClauses := []string{
		fmt.Sprintf("event_name IN (%s)", funnelEventList(
			funnel.EventScreenView, funnel.EventExitOnboarding,
			funnel.EventCompleteOnboarding, funnel.EventAPICall)),
	}
	branchClauses, branchArgs := f.branchFilter()
	whereClauses = append(whereClauses, branchClauses...)

	base, err := catalog.BuildUnionQuery(tables, flattenedSelect(), andJoin(whereClauses))
	if err != nil {
		return "", nil, err
	}

	outerClauses := []string{"sessionId IS NOT NULL"}
	flatClauses, flatArgs := f.flattenedFilter()
	outerClauses = append(outerClauses, flatClauses...)

	sql := fmt.Sprintf(`WITH session_events AS (
%s
),
filtered_events AS (
    SELECT * FROM session_events
    WHERE %s
),
session_aggregates AS (
    SELECT
        sessionId,
        userId,
        userEmail,
        MIN(event_timestamp) AS session_start,
        MAX(event_timestamp) AS session_end,
        (MAX(event_timestamp) - MIN(event_timestamp)) / 1000000 AS duration_seconds,
        COUNT(*) AS event_count,
        ARRAY_AGG(DISTINCT screenName) FILTER (WHERE screenName IS NOT NULL) AS screens_viewed,
        COUNT(DISTINCT screenName) AS unique_screens,
        COUNT(CASE WHEN event_name = '%s' THEN 1 END) AS screen_views,
        COUNT(CASE WHEN event_name = '%s' THEN 1 END) > 0 AS completed,
        ANY_VALUE(country) AS country,
        ANY_VALUE(region) AS region,
        ANY_VALUE(city) AS city
    FROM filtered_events
    GROUP BY sessionId, userId, userEmail
)
SELECT *
FROM session_aggregates
WHERE duration_seconds > 0
ORDER BY session_start DESC
LIMIT ?`,
		base, andJoin(outerClauses),
		funnel.EventScreenView, funnel.EventCompleteOnboarding)

	args := repeatArgs(branchArgs, len(tables))
	args = append(args, flatArgs...)
	args = append(args, limit)
	return sql, args, nil
}

// ScreenFlow derives directed screen transitions within sessions, with
// backward-navigation flags and each transition's share of the total.
func ScreenFlow(tables []catalog.Descriptor, f Filters) (string, []any, error) {
	whereClauses := []string{
		fmt.Sprintf("event_name = '%s'", funnel.EventScreenView),
		paramString(funnel.ParamScreenName) + " IS NOT NULL",
		paramString(funnel.ParamScreenName) + " != ''",
	}
	branchClauses, branchArgs := f.branchFilter()
	whereClauses = append(whereClauses, branchClauses...)

	base, err := catalog.BuildUnionQuery(tables, flattenedSelect(), andJoin(whereClauses))
	if err != nil {
		return "", nil, err
	}

	outerClauses := []string{"sessionId IS NOT NULL"}
	flatClauses, flatArgs := f.flattenedFilter()
	outerClauses = append(outerClauses, flatClauses...)

	sql := fmt.Sprintf(`WITH screen_events AS (
%s
),
filtered_events AS (
    SELECT * FROM screen_events
    WHERE %s
),
multi_screen_sessions AS (
    SELECT sessionId
    FROM filtered_events
    GROUP BY sessionId
    HAVING COUNT(*) > 1
),
screen_transitions AS (
    SELECT
        e.sessionId,
        LAG(e.screenName) OVER (PARTITION BY e.sessionId ORDER BY e.event_timestamp) AS from_screen,
        e.screenName AS to_screen
    FROM filtered_events e
    JOIN multi_screen_sessions m ON m.sessionId = e.sessionId
),
transition_analysis AS (
    SELECT
        from_screen,
        to_screen,
        COUNT(*) AS transition_count,
        %s AS is_backward
    FROM screen_transitions
    WHERE from_screen IS NOT NULL
    GROUP BY from_screen, to_screen
)
SELECT
    from_screen,
    to_screen,
    transition_count,
    is_backward,
    ROUND(100.0 * transition_count / SUM(transition_count) OVER (), 2) AS percentage
FROM transition_analysis
ORDER BY transition_count DESC`,
		base, andJoin(outerClauses), backwardExpr("from_screen", "to_screen"))

	args := repeatArgs(branchArgs, len(tables))
	args = append(args, flatArgs...)
	return sql, args, nil
}

// UserJourney finds every onboarding event for one user across the given
// shards, oldest first. The identifier matches either the user id or the
// user email and always binds as a parameter.
func UserJourney(tables []catalog.Descriptor, identifier string) (string, []any, error) {
	whereClause := fmt.Sprintf("event_name IN (%s)", funnelEventList(
		funnel.EventScreenView, funnel.EventExitOnboarding, funnel.EventCompleteOnboarding))

	base, err := catalog.BuildUnionQuery(tables, flattenedSelect(), whereClause)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`WITH user_events AS (
%s
)
SELECT
    event_name,
    event_timestamp,
    sessionId,
    userId,
    userEmail,
    screenName,
    country,
    region,
    city
FROM user_events
WHERE userId = ? OR userEmail = ?
ORDER BY event_timestamp ASC`, base)

	return sql, []any{identifier, identifier}, nil
}
