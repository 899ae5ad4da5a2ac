// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package shaper turns warehouse row sets into the typed payloads the API
// serves. Heterogeneous result sets are demultiplexed on the metric_type
// column in a single pass; rates and percentages that need aggregate
// totals are filled in a second pass with zero-division guards. Numeric
// coercion is defensive throughout: a missing or null column reads as
// zero, never a panic.
package shaper

import (
	"sort"
	"strings"
	"time"

	"github.com/anshulvish/ob-reports/internal/funnel"
	"github.com/anshulvish/ob-reports/internal/models"
	"github.com/anshulvish/ob-reports/internal/warehouse"
)

// Engagement shapes the overall/distribution result set.
func Engagement(rows []warehouse.Row) models.EngagementMetrics {
	var m models.EngagementMetrics
	distribution := make([]models.EngagementDistribution, 0, 3)

	for _, row := range rows {
		switch row.String("metric_type") {
		case "overall":
			m.TotalUsers = int(row.Int64("total_users"))
			m.AverageSessionsPerUser = row.Float64("avg_sessions_per_user")
			m.AverageEventsPerUser = row.Float64("avg_events_per_user")
			m.AverageUniqueEventsPerUser = row.Float64("avg_unique_events_per_user")
			m.AveragePagesPerUser = row.Float64("avg_pages_per_user")
			m.AverageSessionDurationSeconds = row.Float64("avg_session_duration_seconds")
			m.AverageEngagementTimeSeconds = row.Float64("avg_engagement_time_seconds")
			m.AverageScreenViewsPerUser = row.Float64("avg_screen_views_per_user")
			m.AverageFunnelEventsPerUser = row.Float64("avg_funnel_interactions_per_user")
		case "distribution":
			distribution = append(distribution, models.EngagementDistribution{
				Level:     row.String("engagement_level"),
				UserCount: int(row.Int64("user_count")),
			})
		}
	}

	m.EngagementDistribution = distribution
	return m
}

// Device shapes the device/os/browser breakdowns. Percentages are of the
// device-level user total; each list sorts descending by unique users.
func Device(rows []warehouse.Row) models.DeviceMetrics {
	var m models.DeviceMetrics
	var device, os, browser []models.DeviceBreakdown

	for _, row := range rows {
		entry := models.DeviceBreakdown{
			Category:    row.String("category"),
			UniqueUsers: int(row.Int64("unique_users")),
			TotalEvents: row.Int64("total_events"),
		}
		switch row.String("metric_type") {
		case "device":
			entry.TotalSessions = int(row.Int64("total_sessions"))
			entry.AverageEventsPerSession = row.Float64("avg_events_per_session")
			entry.AverageSessionDurationSeconds = row.Float64("avg_session_duration_seconds")
			m.TotalUsers += entry.UniqueUsers
			device = append(device, entry)
		case "os":
			os = append(os, entry)
		case "browser":
			browser = append(browser, entry)
		}
	}

	fill := func(entries []models.DeviceBreakdown) []models.DeviceBreakdown {
		for i := range entries {
			if m.TotalUsers > 0 {
				entries[i].Percentage = float64(entries[i].UniqueUsers) / float64(m.TotalUsers) * 100
			}
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].UniqueUsers > entries[j].UniqueUsers
		})
		return entries
	}

	m.DeviceBreakdown = fill(device)
	m.OperatingSystemBreakdown = fill(os)
	m.BrowserBreakdown = fill(browser)
	return m
}

// StageProgression shapes the funnel result set: per-stage summaries
// ascending by stage number, drop-off points, and completion stats with
// retention rates computed against the user total.
func StageProgression(rows []warehouse.Row) models.StageMetrics {
	var m models.StageMetrics
	var stages []models.StageInfo
	var dropOffs []models.DropOffInfo

	for _, row := range rows {
		switch row.String("metric_type") {
		case "stage_summary":
			stages = append(stages, models.StageInfo{
				StageNumber:             int(row.Int64("stage_number")),
				StageName:               row.String("stage_display_name"),
				UsersReached:            int(row.Int64("users_reached")),
				TotalVisits:             int(row.Int64("total_visits")),
				AverageTimeSpentSeconds: row.Float64("avg_time_spent_seconds"),
			})
		case "drop_off":
			stage := int(row.Int64("stage_number"))
			dropOffs = append(dropOffs, models.DropOffInfo{
				StageNumber:  stage,
				StageName:    funnel.StageName(stage),
				UsersDropped: int(row.Int64("users_dropped")),
			})
		case "completion_stats":
			m.TotalUsers = int(row.Int64("total_users"))
			m.CompletedUsers = int(row.Int64("completed_users"))
			m.AverageStagesVisited = row.Float64("avg_stages_visited")
			m.AverageJourneyDurationSeconds = row.Float64("avg_journey_duration_seconds")
		}
	}

	if m.TotalUsers > 0 {
		m.CompletionRate = float64(m.CompletedUsers) / float64(m.TotalUsers) * 100
		for i := range stages {
			stages[i].RetentionRate = float64(stages[i].UsersReached) / float64(m.TotalUsers) * 100
		}
	}

	sort.Slice(stages, func(i, j int) bool { return stages[i].StageNumber < stages[j].StageNumber })
	sort.Slice(dropOffs, func(i, j int) bool { return dropOffs[i].StageNumber < dropOffs[j].StageNumber })

	m.StagesSummary = stages
	m.DropOffPoints = dropOffs
	return m
}

// canonical bucket order for the time-investment distribution.
var bucketOrder = map[string]int{
	"< 30 seconds":  1,
	"30-60 seconds": 2,
	"1-5 minutes":   3,
	"5-15 minutes":  4,
	"15-30 minutes": 5,
	"30+ minutes":   6,
}

// TimeInvestment shapes the duration distribution and overall stats.
func TimeInvestment(rows []warehouse.Row) models.TimeInvestmentMetrics {
	var m models.TimeInvestmentMetrics
	var distribution []models.TimeDistributionBucket

	for _, row := range rows {
		switch row.String("metric_type") {
		case "distribution":
			distribution = append(distribution, models.TimeDistributionBucket{
				DurationBucket:          row.String("duration_bucket"),
				SessionCount:            int(row.Int64("session_count")),
				UniqueUsers:             int(row.Int64("unique_users")),
				AverageDurationInBucket: row.Float64("avg_duration_in_bucket"),
				AverageEventsInBucket:   row.Float64("avg_events_in_bucket"),
			})
		case "overall":
			m.TotalSessions = int(row.Int64("total_sessions"))
			m.TotalUsers = int(row.Int64("total_users"))
			m.AverageSessionDuration = row.Float64("avg_session_duration")
			m.MedianSessionDuration = row.Float64("median_session_duration")
			m.P75SessionDuration = row.Float64("p75_session_duration")
			m.P90SessionDuration = row.Float64("p90_session_duration")
			m.MinDuration = row.Float64("min_duration")
			m.MaxDuration = row.Float64("max_duration")
		}
	}

	if m.TotalSessions > 0 {
		for i := range distribution {
			distribution[i].Percentage = float64(distribution[i].SessionCount) / float64(m.TotalSessions) * 100
		}
	}
	sort.Slice(distribution, func(i, j int) bool {
		return bucketOrder[distribution[i].DurationBucket] < bucketOrder[distribution[j].DurationBucket]
	})

	m.Distribution = distribution
	return m
}

// Welcome shapes the welcome-funnel result set.
func Welcome(rows []warehouse.Row) models.WelcomeMetrics {
	var m models.WelcomeMetrics
	var breakdown []models.WelcomeActionBreakdown

	for _, row := range rows {
		switch row.String("metric_type") {
		case "overall":
			m.TotalUsers = int(row.Int64("total_users"))
			m.TotalProgressed = int(row.Int64("total_progressed"))
			m.TotalExited = int(row.Int64("total_exited"))
			m.AverageEventsPerUser = row.Float64("avg_events_per_user")
		case "destination":
			breakdown = append(breakdown, models.WelcomeActionBreakdown{
				Action:          funnel.ScreenDisplayName(row.String("action")),
				UserCount:       int(row.Int64("user_count")),
				UsersProgressed: int(row.Int64("users_progressed")),
				UsersExited:     int(row.Int64("users_exited")),
			})
		}
	}

	if m.TotalUsers > 0 {
		m.ProgressionRate = float64(m.TotalProgressed) / float64(m.TotalUsers) * 100
		m.ExitRate = float64(m.TotalExited) / float64(m.TotalUsers) * 100
	}
	for i := range breakdown {
		if breakdown[i].UserCount > 0 {
			breakdown[i].ProgressionRate = float64(breakdown[i].UsersProgressed) / float64(breakdown[i].UserCount) * 100
			breakdown[i].ExitRate = float64(breakdown[i].UsersExited) / float64(breakdown[i].UserCount) * 100
		}
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].UserCount > breakdown[j].UserCount
	})

	m.ActionBreakdown = breakdown
	return m
}

// stringSlice coerces an aggregated array column into []string.
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vals == "" {
			return nil
		}
		parts := strings.Split(strings.Trim(vals, "[]"), ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.Trim(strings.TrimSpace(p), `"'`); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

// Sessions shapes session-aggregate rows into summaries, scoring each
// with the configured engagement weights.
func Sessions(rows []warehouse.Row, scoring funnel.ScoringConfig) []models.SessionSummary {
	sessions := make([]models.SessionSummary, 0, len(rows))
	for _, row := range rows {
		screens := stringSlice(row["screens_viewed"])

		furthest := 0
		for _, screen := range screens {
			if stage := funnel.StageNumber(screen); stage > furthest {
				furthest = stage
			}
		}

		completed := row.Bool("completed") || furthest == funnel.StageCount
		screenViews := int(row.Int64("screen_views"))
		uniqueScreens := int(row.Int64("unique_screens"))
		revisits := screenViews - uniqueScreens
		if revisits < 0 {
			revisits = 0
		}

		duration := row.Float64("duration_seconds")
		score := scoring.Score(furthest, secondsToDuration(duration), revisits, completed)

		exitPoint := "completed"
		if !completed {
			if exitPoint = funnel.ScreenForStage(furthest); exitPoint == "" {
				exitPoint = "unknown"
			}
		}

		sessions = append(sessions, models.SessionSummary{
			SessionID:       row.String("sessionId"),
			UserID:          row.String("userId"),
			UserEmail:       row.String("userEmail"),
			SessionStart:    row.Time("session_start"),
			SessionEnd:      row.Time("session_end"),
			DurationSeconds: duration,
			EventCount:      int(row.Int64("event_count")),
			UniqueScreens:   uniqueScreens,
			ScreenViews:     screenViews,
			ScreensViewed:   screens,
			Completed:       completed,
			FurthestStage:   furthest,
			ExitPoint:       exitPoint,
			EngagementScore: score,
			EngagementLevel: scoring.Level(score).String(),
			Country:         row.String("country"),
			Region:          row.String("region"),
			City:            row.String("city"),
		})
	}
	return sessions
}

// ScreenFlow shapes transition rows into the flow analysis: connections,
// per-screen nodes, and the most common forward paths.
func ScreenFlow(rows []warehouse.Row) models.ScreenFlowAnalysis {
	connections := make([]models.FlowConnection, 0, len(rows))
	visitCounts := make(map[string]int)

	for _, row := range rows {
		conn := models.FlowConnection{
			From:       row.String("from_screen"),
			To:         row.String("to_screen"),
			Count:      int(row.Int64("transition_count")),
			Percentage: row.Float64("percentage"),
			IsBackward: row.Bool("is_backward"),
		}
		connections = append(connections, conn)
		visitCounts[conn.From] += conn.Count
	}

	screens := make([]models.ScreenNode, 0, len(visitCounts))
	for name, count := range visitCounts {
		screens = append(screens, models.ScreenNode{
			ScreenName:  name,
			DisplayName: funnel.ScreenDisplayName(name),
			VisitCount:  count,
		})
	}
	sort.Slice(screens, func(i, j int) bool {
		if screens[i].VisitCount != screens[j].VisitCount {
			return screens[i].VisitCount > screens[j].VisitCount
		}
		return screens[i].ScreenName < screens[j].ScreenName
	})

	var paths []string
	for _, conn := range connections {
		if !conn.IsBackward && conn.Count > 10 {
			paths = append(paths, conn.From+" -> "+conn.To)
		}
		if len(paths) == 5 {
			break
		}
	}

	return models.ScreenFlowAnalysis{
		Screens:         screens,
		Connections:     connections,
		MostCommonPaths: paths,
	}
}

// Journey rebuilds a user's cross-session history from raw event rows.
func Journey(rows []warehouse.Row, identifier string, scoring funnel.ScoringConfig) models.UserJourney {
	events := make([]funnel.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, funnel.Event{
			Timestamp:  row.Time("event_timestamp"),
			Name:       row.String("event_name"),
			SessionID:  row.String("sessionId"),
			UserID:     row.String("userId"),
			UserEmail:  row.String("userEmail"),
			ScreenName: row.String("screenName"),
			Country:    row.String("country"),
			Region:     row.String("region"),
			City:       row.String("city"),
		})
	}

	journey := models.UserJourney{UserID: identifier}
	if strings.Contains(identifier, "@") {
		journey.UserEmail = identifier
	}

	sessions := funnel.BuildSessions(events)
	summaries := make([]models.SessionSummary, 0, len(sessions))
	bestScore := -1

	for _, s := range sessions {
		score := s.Score(scoring)
		exitPoint := s.ExitScreen()
		if s.Completed() {
			exitPoint = "completed"
		}
		summary := models.SessionSummary{
			SessionID:       s.SessionID,
			UserID:          s.UserID,
			UserEmail:       s.UserEmail,
			SessionStart:    s.Start,
			SessionEnd:      s.End,
			DurationSeconds: s.Duration().Seconds(),
			EventCount:      len(s.Events),
			UniqueScreens:   s.UniqueScreens(),
			ScreenViews:     len(s.ScreenSequence),
			ScreensViewed:   s.ScreenSequence,
			Completed:       s.Completed(),
			FurthestStage:   s.FurthestStage(),
			ExitPoint:       exitPoint,
			EngagementScore: score,
			EngagementLevel: s.EngagementLevel(scoring).String(),
			Country:         s.Country,
			Region:          s.Region,
			City:            s.City,
		}
		summaries = append(summaries, summary)

		if journey.UserID == identifier && s.UserID != "" {
			journey.UserID = s.UserID
		}
		if journey.UserEmail == "" && s.UserEmail != "" {
			journey.UserEmail = s.UserEmail
		}
		if journey.FirstVisit.IsZero() || s.Start.Before(journey.FirstVisit) {
			journey.FirstVisit = s.Start
		}
		if s.End.After(journey.LastActivity) {
			journey.LastActivity = s.End
		}
		journey.TotalTimeInvestedSeconds += s.Duration().Seconds()
		if s.Completed() {
			journey.EverCompleted = true
		}
		if score > bestScore {
			bestScore = score
			journey.OverallEngagement = s.EngagementLevel(scoring).String()
		}
	}

	if len(sessions) == 0 {
		journey.OverallEngagement = funnel.MinimalEngagement.String()
	}
	journey.Sessions = summaries
	journey.TotalSessions = len(summaries)
	return journey
}

// Raw converts rows to plain maps for the generic query endpoint.
func Raw(rows []warehouse.Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any(row))
	}
	return out
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
