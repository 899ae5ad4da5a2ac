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

// EngagementMetrics computes the per-user engagement rollup plus a
// high/medium/low distribution keyed by the metric_type column.
func EngagementMetrics(tables []catalog.Descriptor, f Filters) (string, []any, error) {
	selectClause := strings.Join([]string{
		"user_pseudo_id",
		"COUNT(DISTINCT " + paramString("sessionId") + ") AS session_count",
		"COUNT(*) AS total_events",
		"COUNT(DISTINCT event_name) AS unique_events",
		"MIN(event_timestamp) AS first_event_timestamp",
		"MAX(event_timestamp) AS last_event_timestamp",
		"COUNT(DISTINCT CASE WHEN event_name = '" + funnel.EventScreenView + "' THEN " + paramString("screenName") + " END) AS unique_screens_viewed",
		fmt.Sprintf("COUNT(CASE WHEN event_name = '%s' THEN 1 END) AS screen_views", funnel.EventScreenView),
		"COUNT(CASE WHEN event_name LIKE 'aifp_%' AND event_name != '" + funnel.EventScreenView + "' THEN 1 END) AS funnel_interactions",
		"SUM(COALESCE(" + paramInt("engagement_time_msec") + ", 0)) AS engagement_time_msec",
	}, ",\n    ")

	whereClauses := []string{"user_pseudo_id IS NOT NULL", "event_name IS NOT NULL"}
	branchClauses, branchArgs := f.branchFilter()
	whereClauses = append(whereClauses, branchClauses...)

	base, err := unionWithGroupBy(tables, selectClause, andJoin(whereClauses), "user_pseudo_id")
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`WITH user_engagement AS (
%s
),
engagement_metrics AS (
    SELECT
        COUNT(*) AS total_users,
        AVG(session_count) AS avg_sessions_per_user,
        AVG(total_events) AS avg_events_per_user,
        AVG(unique_events) AS avg_unique_events_per_user,
        AVG(unique_screens_viewed) AS avg_pages_per_user,
        AVG((last_event_timestamp - first_event_timestamp) / 1000000) AS avg_session_duration_seconds,
        AVG(engagement_time_msec / 1000.0) AS avg_engagement_time_seconds,
        AVG(screen_views) AS avg_screen_views_per_user,
        AVG(funnel_interactions) AS avg_funnel_interactions_per_user
    FROM user_engagement
),
engagement_distribution AS (
    SELECT 'High' AS engagement_level, COUNT(*) AS user_count
    FROM user_engagement
    WHERE total_events >= (SELECT AVG(total_events) + STDDEV(total_events) FROM user_engagement)
    UNION ALL
    SELECT 'Medium' AS engagement_level, COUNT(*) AS user_count
    FROM user_engagement
    WHERE total_events >= (SELECT AVG(total_events) FROM user_engagement)
      AND total_events < (SELECT AVG(total_events) + STDDEV(total_events) FROM user_engagement)
    UNION ALL
    SELECT 'Low' AS engagement_level, COUNT(*) AS user_count
    FROM user_engagement
    WHERE total_events < (SELECT AVG(total_events) FROM user_engagement)
)
SELECT
    'overall' AS metric_type,
    total_users,
    avg_sessions_per_user,
    avg_events_per_user,
    avg_unique_events_per_user,
    avg_pages_per_user,
    avg_session_duration_seconds,
    avg_engagement_time_seconds,
    avg_screen_views_per_user,
    avg_funnel_interactions_per_user,
    NULL AS engagement_level,
    NULL AS user_count
FROM engagement_metrics
UNION ALL
SELECT
    'distribution' AS metric_type,
    NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL,
    engagement_level,
    user_count
FROM engagement_distribution
ORDER BY metric_type, engagement_level`, base)

	return sql, repeatArgs(branchArgs, len(tables)), nil
}

// DeviceAnalytics summarizes usage by device category, operating system,
// and browser, one metric_type per breakdown.
func DeviceAnalytics(tables []catalog.Descriptor) (string, []any, error) {
	selectClause := strings.Join([]string{
		"user_pseudo_id",
		"device.category AS device_category",
		"device.operating_system AS os",
		"device.web_info.browser AS browser",
		"COUNT(*) AS event_count",
		"MIN(event_timestamp) AS first_event",
		"MAX(event_timestamp) AS last_event",
	}, ",\n    ")

	whereClause := "user_pseudo_id IS NOT NULL AND device.category IS NOT NULL"
	groupBy := "user_pseudo_id, device.category, device.operating_system, device.web_info.browser"

	base, err := unionWithGroupBy(tables, selectClause, whereClause, groupBy)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`WITH device_sessions AS (
%s
),
device_summary AS (
    SELECT
        device_category,
        COUNT(DISTINCT user_pseudo_id) AS unique_users,
        COUNT(*) AS total_sessions,
        SUM(event_count) AS total_events,
        AVG(event_count) AS avg_events_per_session,
        AVG((last_event - first_event) / 1000000) AS avg_session_duration_seconds
    FROM device_sessions
    GROUP BY device_category
),
os_summary AS (
    SELECT os, COUNT(DISTINCT user_pseudo_id) AS unique_users, SUM(event_count) AS total_events
    FROM device_sessions
    WHERE os IS NOT NULL
    GROUP BY os
),
browser_summary AS (
    SELECT browser, COUNT(DISTINCT user_pseudo_id) AS unique_users, SUM(event_count) AS total_events
    FROM device_sessions
    WHERE browser IS NOT NULL
    GROUP BY browser
)
SELECT
    'device' AS metric_type,
    device_category AS category,
    unique_users,
    total_sessions,
    total_events,
    avg_events_per_session,
    avg_session_duration_seconds
FROM device_summary
UNION ALL
SELECT 'os', os, unique_users, NULL, total_events, NULL, NULL FROM os_summary
UNION ALL
SELECT 'browser', browser, unique_users, NULL, total_events, NULL, NULL FROM browser_summary
ORDER BY metric_type, unique_users DESC`, base)

	return sql, nil, nil
}

// StageProgression produces stage_summary, drop_off, and completion_stats
// rows for the onboarding funnel. Time on a stage is the gap to the user's
// next screen view; gaps past 30 minutes count as a session break and are
// excluded from the average.
func StageProgression(tables []catalog.Descriptor, f Filters) (string, []any, error) {
	selectClause := strings.Join([]string{
		"user_pseudo_id",
		paramString(funnel.ParamScreenName) + " AS screenName",
		"event_timestamp",
	}, ",\n    ")

	whereClauses := []string{
		"user_pseudo_id IS NOT NULL",
		fmt.Sprintf("event_name = '%s'", funnel.EventScreenView),
		paramString(funnel.ParamScreenName) + " IS NOT NULL",
	}
	branchClauses, branchArgs := f.branchFilter()
	whereClauses = append(whereClauses, branchClauses...)

	base, err := catalog.BuildUnionQuery(tables, selectClause, andJoin(whereClauses))
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`WITH screen_events AS (
%s
),
staged_events AS (
    SELECT
        user_pseudo_id,
        screenName,
        event_timestamp,
        %s AS stage_number,
        %s AS stage_display_name
    FROM screen_events
),
timed_events AS (
    SELECT
        *,
        (LEAD(event_timestamp) OVER (PARTITION BY user_pseudo_id ORDER BY event_timestamp) - event_timestamp) / 1000000.0 AS seconds_on_stage
    FROM staged_events
),
user_max_stages AS (
    SELECT
        user_pseudo_id,
        MAX(stage_number) AS furthest_stage_reached,
        COUNT(DISTINCT stage_number) AS stages_visited,
        MIN(event_timestamp) AS first_event,
        MAX(event_timestamp) AS last_event
    FROM staged_events
    WHERE stage_number > 0
    GROUP BY user_pseudo_id
),
stage_summary AS (
    SELECT
        stage_number,
        stage_display_name,
        COUNT(DISTINCT user_pseudo_id) AS users_reached,
        COUNT(*) AS total_visits,
        AVG(CASE WHEN seconds_on_stage BETWEEN 0 AND 1800 THEN seconds_on_stage END) AS avg_time_spent_seconds
    FROM timed_events
    WHERE stage_number > 0
    GROUP BY stage_number, stage_display_name
),
drop_off_analysis AS (
    SELECT furthest_stage_reached, COUNT(*) AS users_dropped_at_stage
    FROM user_max_stages
    WHERE furthest_stage_reached < %d
    GROUP BY furthest_stage_reached
),
completion_stats AS (
    SELECT
        COUNT(*) AS total_users,
        COUNT(CASE WHEN furthest_stage_reached = %d THEN 1 END) AS completed_users,
        AVG(stages_visited) AS avg_stages_visited,
        AVG((last_event - first_event) / 1000000) AS avg_journey_duration_seconds
    FROM user_max_stages
)
SELECT
    'stage_summary' AS metric_type,
    stage_number,
    stage_display_name,
    users_reached,
    total_visits,
    avg_time_spent_seconds,
    NULL AS users_dropped,
    NULL AS total_users,
    NULL AS completed_users,
    NULL AS avg_stages_visited,
    NULL AS avg_journey_duration_seconds
FROM stage_summary
UNION ALL
SELECT
    'drop_off',
    furthest_stage_reached,
    NULL, NULL, NULL, NULL,
    users_dropped_at_stage,
    NULL, NULL, NULL, NULL
FROM drop_off_analysis
UNION ALL
SELECT
    'completion_stats',
    NULL, NULL, NULL, NULL, NULL, NULL,
    total_users,
    completed_users,
    avg_stages_visited,
    avg_journey_duration_seconds
FROM completion_stats
ORDER BY metric_type, stage_number`,
		base, stageNumberExpr(), stageNameExpr(), funnel.StageCount, funnel.StageCount)

	return sql, repeatArgs(branchArgs, len(tables)), nil
}

// TimeInvestment buckets session durations and computes overall duration
// statistics with approximate percentiles.
func TimeInvestment(tables []catalog.Descriptor, f Filters) (string, []any, error) {
	selectClause := strings.Join([]string{
		"user_pseudo_id",
		paramString("sessionId") + " AS session_id",
		"MIN(event_timestamp) AS session_start",
		"MAX(event_timestamp) AS session_end",
		"COUNT(*) AS event_count",
	}, ",\n    ")

	whereClauses := []string{
		"user_pseudo_id IS NOT NULL",
		paramString("sessionId") + " IS NOT NULL",
	}
	branchClauses, branchArgs := f.branchFilter()
	whereClauses = append(whereClauses, branchClauses...)

	base, err := unionWithGroupBy(tables, selectClause, andJoin(whereClauses), "user_pseudo_id, session_id")
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`WITH session_durations AS (
%s
),
duration_analysis AS (
    SELECT
        user_pseudo_id,
        session_id,
        (session_end - session_start) / 1000000 AS duration_seconds,
        event_count,
        CASE
            WHEN (session_end - session_start) / 1000000 < 30 THEN '< 30 seconds'
            WHEN (session_end - session_start) / 1000000 < 60 THEN '30-60 seconds'
            WHEN (session_end - session_start) / 1000000 < 300 THEN '1-5 minutes'
            WHEN (session_end - session_start) / 1000000 < 900 THEN '5-15 minutes'
            WHEN (session_end - session_start) / 1000000 < 1800 THEN '15-30 minutes'
            ELSE '30+ minutes'
        END AS duration_bucket
    FROM session_durations
    WHERE (session_end - session_start) / 1000000 BETWEEN 1 AND 7200
),
time_distribution AS (
    SELECT
        duration_bucket,
        COUNT(*) AS session_count,
        COUNT(DISTINCT user_pseudo_id) AS unique_users,
        AVG(duration_seconds) AS avg_duration_in_bucket,
        AVG(event_count) AS avg_events_in_bucket
    FROM duration_analysis
    GROUP BY duration_bucket
),
overall_stats AS (
    SELECT
        COUNT(*) AS total_sessions,
        COUNT(DISTINCT user_pseudo_id) AS total_users,
        AVG(duration_seconds) AS avg_session_duration,
        APPROX_QUANTILE(duration_seconds, 0.50) AS median_session_duration,
        APPROX_QUANTILE(duration_seconds, 0.75) AS p75_session_duration,
        APPROX_QUANTILE(duration_seconds, 0.90) AS p90_session_duration,
        MIN(duration_seconds) AS min_duration,
        MAX(duration_seconds) AS max_duration
    FROM duration_analysis
)
SELECT
    'distribution' AS metric_type,
    duration_bucket,
    session_count,
    unique_users,
    avg_duration_in_bucket,
    avg_events_in_bucket,
    NULL AS total_sessions,
    NULL AS total_users,
    NULL AS avg_session_duration,
    NULL AS median_session_duration,
    NULL AS p75_session_duration,
    NULL AS p90_session_duration,
    NULL AS min_duration,
    NULL AS max_duration
FROM time_distribution
UNION ALL
SELECT
    'overall',
    NULL, NULL, NULL, NULL, NULL,
    total_sessions,
    total_users,
    avg_session_duration,
    median_session_duration,
    p75_session_duration,
    p90_session_duration,
    min_duration,
    max_duration
FROM overall_stats
ORDER BY
    metric_type,
    CASE duration_bucket
        WHEN '< 30 seconds' THEN 1
        WHEN '30-60 seconds' THEN 2
        WHEN '1-5 minutes' THEN 3
        WHEN '5-15 minutes' THEN 4
        WHEN '15-30 minutes' THEN 5
        WHEN '30+ minutes' THEN 6
    END`, base)

	return sql, repeatArgs(branchArgs, len(tables)), nil
}

// WelcomeFunnel measures what welcome-screen viewers did next: overall
// progression/exit rates plus a per-destination breakdown.
func WelcomeFunnel(tables []catalog.Descriptor, f Filters) (string, []any, error) {
	selectClause := strings.Join([]string{
		"user_pseudo_id",
		"event_name",
		paramString(funnel.ParamScreenName) + " AS screenName",
		"event_timestamp",
	}, ",\n    ")

	whereClauses := []string{
		"user_pseudo_id IS NOT NULL",
		fmt.Sprintf("event_name IN ('%s', '%s', '%s')",
			funnel.EventScreenView, funnel.EventExitOnboarding, funnel.EventCompleteOnboarding),
	}
	branchClauses, branchArgs := f.branchFilter()
	whereClauses = append(whereClauses, branchClauses...)

	base, err := catalog.BuildUnionQuery(tables, selectClause, andJoin(whereClauses))
	if err != nil {
		return "", nil, err
	}

	welcome := funnel.ScreenForStage(1)

	sql := fmt.Sprintf(`WITH funnel_events AS (
%s
),
welcome_users AS (
    SELECT user_pseudo_id, COUNT(*) AS welcome_events
    FROM funnel_events
    WHERE event_name = '%s' AND screenName = '%s'
    GROUP BY user_pseudo_id
),
user_outcomes AS (
    SELECT
        w.user_pseudo_id,
        w.welcome_events,
        MAX(CASE WHEN f.event_name = '%s' AND f.screenName != '%s' THEN 1 ELSE 0 END) AS progressed,
        MAX(CASE WHEN f.event_name = '%s' THEN 1 ELSE 0 END) AS exited
    FROM welcome_users w
    JOIN funnel_events f ON f.user_pseudo_id = w.user_pseudo_id
    GROUP BY w.user_pseudo_id, w.welcome_events
),
first_destinations AS (
    SELECT
        f.user_pseudo_id,
        f.screenName AS destination,
        ROW_NUMBER() OVER (PARTITION BY f.user_pseudo_id ORDER BY f.event_timestamp) AS rn
    FROM funnel_events f
    JOIN welcome_users w ON w.user_pseudo_id = f.user_pseudo_id
    WHERE f.event_name = '%s' AND f.screenName != '%s'
),
destination_summary AS (
    SELECT
        d.destination,
        COUNT(*) AS user_count,
        SUM(o.progressed) AS users_progressed,
        SUM(o.exited) AS users_exited
    FROM first_destinations d
    JOIN user_outcomes o ON o.user_pseudo_id = d.user_pseudo_id
    WHERE d.rn = 1
    GROUP BY d.destination
),
overall AS (
    SELECT
        COUNT(*) AS total_users,
        SUM(progressed) AS total_progressed,
        SUM(exited) AS total_exited,
        AVG(welcome_events) AS avg_events_per_user
    FROM user_outcomes
)
SELECT
    'overall' AS metric_type,
    NULL AS action,
    total_users,
    total_progressed,
    total_exited,
    avg_events_per_user,
    NULL AS user_count,
    NULL AS users_progressed,
    NULL AS users_exited
FROM overall
UNION ALL
SELECT
    'destination',
    destination,
    NULL, NULL, NULL, NULL,
    user_count,
    users_progressed,
    users_exited
FROM destination_summary
ORDER BY metric_type DESC, user_count DESC`,
		base,
		funnel.EventScreenView, welcome,
		funnel.EventScreenView, welcome,
		funnel.EventExitOnboarding,
		funnel.EventScreenView, welcome)

	return sql, repeatArgs(branchArgs, len(tables)), nil
}
