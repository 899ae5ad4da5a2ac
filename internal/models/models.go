// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package models holds the JSON shapes served by the HTTP API. Metric
// endpoints share the generic MetricResponse envelope; payload types mirror
// the rows their queries produce after shaping.
package models

import "time"

// MetricResponse is the common envelope for every metric endpoint. The
// payload type carries the metric-specific body.
type MetricResponse[T any] struct {
	Success    bool            `json:"success"`
	DateRange  DateRangeInfo   `json:"dateRange"`
	TablesUsed []TableUsedInfo `json:"tablesUsed"`
	Payload    T               `json:"payload"`
	Message    string          `json:"message"`
}

// DateRangeInfo echoes the requested range back to the client.
type DateRangeInfo struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	TotalDays int    `json:"totalDays"`
}

// TableUsedInfo identifies one shard consulted for a response.
type TableUsedInfo struct {
	TableID    string `json:"tableId"`
	Date       string `json:"date,omitempty"`
	IsIntraday bool   `json:"isIntraday"`
	RowCount   int64  `json:"rowCount,omitempty"`
}

// ErrorBody is the JSON error shape returned by every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// DateRangesResponse describes the span of data available in the catalog.
type DateRangesResponse struct {
	Available      bool   `json:"available"`
	EarliestDate   string `json:"earliestDate,omitempty"`
	LatestDate     string `json:"latestDate,omitempty"`
	TotalDays      int    `json:"totalDays,omitempty"`
	DailyTables    int    `json:"dailyTables,omitempty"`
	IntradayTables int    `json:"intradayTables,omitempty"`
	Message        string `json:"message,omitempty"`
}

// AnalyticsQueryResponse wraps raw row output from the generic query
// endpoint. Data is capped; RowCount reports the uncapped total.
type AnalyticsQueryResponse struct {
	Success    bool             `json:"success"`
	QueryType  string           `json:"queryType"`
	DateRange  DateRangeInfo    `json:"dateRange"`
	TablesUsed []TableUsedInfo  `json:"tablesUsed"`
	RowCount   int              `json:"rowCount"`
	Data       []map[string]any `json:"data"`
	Message    string           `json:"message"`
}

// EngagementMetrics is the overall per-user engagement rollup plus the
// high/medium/low distribution.
type EngagementMetrics struct {
	TotalUsers                    int                      `json:"totalUsers"`
	AverageSessionsPerUser        float64                  `json:"averageSessionsPerUser"`
	AverageEventsPerUser          float64                  `json:"averageEventsPerUser"`
	AverageUniqueEventsPerUser    float64                  `json:"averageUniqueEventsPerUser"`
	AveragePagesPerUser           float64                  `json:"averagePagesPerUser"`
	AverageSessionDurationSeconds float64                  `json:"averageSessionDurationSeconds"`
	AverageEngagementTimeSeconds  float64                  `json:"averageEngagementTimeSeconds"`
	AverageScreenViewsPerUser     float64                  `json:"averageScreenViewsPerUser"`
	AverageFunnelEventsPerUser    float64                  `json:"averageFunnelEventsPerUser"`
	EngagementDistribution        []EngagementDistribution `json:"engagementDistribution"`
}

// EngagementDistribution is one bucket of the engagement-level histogram.
type EngagementDistribution struct {
	Level     string `json:"level"`
	UserCount int    `json:"userCount"`
}

// DeviceMetrics groups device, OS, and browser breakdowns.
type DeviceMetrics struct {
	TotalUsers               int               `json:"totalUsers"`
	DeviceBreakdown          []DeviceBreakdown `json:"deviceBreakdown"`
	OperatingSystemBreakdown []DeviceBreakdown `json:"operatingSystemBreakdown"`
	BrowserBreakdown         []DeviceBreakdown `json:"browserBreakdown"`
}

// DeviceBreakdown is one row of a device/OS/browser breakdown, sorted
// descending by unique users. Percentage is of the device-level user total.
type DeviceBreakdown struct {
	Category                      string  `json:"category"`
	UniqueUsers                   int     `json:"uniqueUsers"`
	TotalSessions                 int     `json:"totalSessions,omitempty"`
	TotalEvents                   int64   `json:"totalEvents"`
	AverageEventsPerSession       float64 `json:"averageEventsPerSession,omitempty"`
	AverageSessionDurationSeconds float64 `json:"averageSessionDurationSeconds,omitempty"`
	Percentage                    float64 `json:"percentage"`
}

// StageMetrics is the funnel progression payload: per-stage summary,
// drop-off points, and overall completion stats.
type StageMetrics struct {
	TotalUsers                    int           `json:"totalUsers"`
	CompletedUsers                int           `json:"completedUsers"`
	CompletionRate                float64       `json:"completionRate"`
	AverageStagesVisited          float64       `json:"averageStagesVisited"`
	AverageJourneyDurationSeconds float64       `json:"averageJourneyDurationSeconds"`
	StagesSummary                 []StageInfo   `json:"stagesSummary"`
	DropOffPoints                 []DropOffInfo `json:"dropOffPoints"`
}

// StageInfo aggregates one funnel stage. RetentionRate is the percentage
// of all users who reached the stage.
type StageInfo struct {
	StageNumber             int     `json:"stageNumber"`
	StageName               string  `json:"stageName"`
	UsersReached            int     `json:"usersReached"`
	TotalVisits             int     `json:"totalVisits"`
	AverageTimeSpentSeconds float64 `json:"averageTimeSpentSeconds"`
	RetentionRate           float64 `json:"retentionRate"`
}

// DropOffInfo counts users whose journey ended at a given stage.
type DropOffInfo struct {
	StageNumber  int    `json:"stageNumber"`
	StageName    string `json:"stageName"`
	UsersDropped int    `json:"usersDropped"`
}

// TimeInvestmentMetrics summarizes session durations: overall stats plus
// a bucketed distribution in canonical bucket order.
type TimeInvestmentMetrics struct {
	TotalSessions          int                      `json:"totalSessions"`
	TotalUsers             int                      `json:"totalUsers"`
	AverageSessionDuration float64                  `json:"averageSessionDuration"`
	MedianSessionDuration  float64                  `json:"medianSessionDuration"`
	P75SessionDuration     float64                  `json:"p75SessionDuration"`
	P90SessionDuration     float64                  `json:"p90SessionDuration"`
	MinDuration            float64                  `json:"minDuration"`
	MaxDuration            float64                  `json:"maxDuration"`
	Distribution           []TimeDistributionBucket `json:"distribution"`
}

// TimeDistributionBucket is one duration bucket. Percentage is of total
// sessions.
type TimeDistributionBucket struct {
	DurationBucket          string  `json:"durationBucket"`
	SessionCount            int     `json:"sessionCount"`
	UniqueUsers             int     `json:"uniqueUsers"`
	AverageDurationInBucket float64 `json:"averageDurationInBucket"`
	AverageEventsInBucket   float64 `json:"averageEventsInBucket"`
	Percentage              float64 `json:"percentage"`
}

// WelcomeMetrics describes what users did on the welcome screen and
// whether they progressed into the funnel.
type WelcomeMetrics struct {
	TotalUsers           int                      `json:"totalUsers"`
	TotalProgressed      int                      `json:"totalProgressed"`
	TotalExited          int                      `json:"totalExited"`
	ProgressionRate      float64                  `json:"progressionRate"`
	ExitRate             float64                  `json:"exitRate"`
	AverageEventsPerUser float64                  `json:"averageEventsPerUser"`
	ActionBreakdown      []WelcomeActionBreakdown `json:"actionBreakdown"`
}

// WelcomeActionBreakdown is one destination-after-welcome row.
type WelcomeActionBreakdown struct {
	Action          string  `json:"action"`
	UserCount       int     `json:"userCount"`
	UsersProgressed int     `json:"usersProgressed"`
	UsersExited     int     `json:"usersExited"`
	ProgressionRate float64 `json:"progressionRate"`
	ExitRate        float64 `json:"exitRate"`
}

// SessionSummary is one reconstructed onboarding session.
type SessionSummary struct {
	SessionID       string    `json:"sessionId"`
	UserID          string    `json:"userId"`
	UserEmail       string    `json:"userEmail,omitempty"`
	SessionStart    time.Time `json:"sessionStart"`
	SessionEnd      time.Time `json:"sessionEnd"`
	DurationSeconds float64   `json:"durationSeconds"`
	EventCount      int       `json:"eventCount"`
	UniqueScreens   int       `json:"uniqueScreens"`
	ScreenViews     int       `json:"screenViews"`
	ScreensViewed   []string  `json:"screensViewed"`
	Completed       bool      `json:"completed"`
	FurthestStage   int       `json:"furthestStage"`
	ExitPoint       string    `json:"exitPoint"`
	EngagementScore int       `json:"engagementScore"`
	EngagementLevel string    `json:"engagementLevel"`
	Country         string    `json:"country,omitempty"`
	Region          string    `json:"region,omitempty"`
	City            string    `json:"city,omitempty"`
}

// UserSessionsPayload carries the session list plus its size.
type UserSessionsPayload struct {
	Sessions      []SessionSummary `json:"sessions"`
	TotalSessions int              `json:"totalSessions"`
}

// ScreenFlowAnalysis is the screen-transition payload: directed
// connections between screens, per-screen nodes, and the most common
// forward paths.
type ScreenFlowAnalysis struct {
	Screens         []ScreenNode     `json:"screens"`
	Connections     []FlowConnection `json:"connections"`
	MostCommonPaths []string         `json:"mostCommonPaths"`
}

// ScreenNode aggregates one screen across all transitions.
type ScreenNode struct {
	ScreenName  string `json:"screenName"`
	DisplayName string `json:"displayName"`
	VisitCount  int    `json:"visitCount"`
}

// FlowConnection is one directed screen transition.
type FlowConnection struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	IsBackward bool    `json:"isBackward"`
}

// UserJourney is the cross-session view of a single user, found by id or
// email.
type UserJourney struct {
	UserID                   string           `json:"userId"`
	UserEmail                string           `json:"userEmail,omitempty"`
	Sessions                 []SessionSummary `json:"sessions"`
	TotalSessions            int              `json:"totalSessions"`
	FirstVisit               time.Time        `json:"firstVisit"`
	LastActivity             time.Time        `json:"lastActivity"`
	TotalTimeInvestedSeconds float64          `json:"totalTimeInvestedSeconds"`
	EverCompleted            bool             `json:"everCompleted"`
	OverallEngagement        string           `json:"overallEngagement"`
}

// TablesOverview is the catalog summary returned by the tables endpoint.
type TablesOverview struct {
	TotalTables      int          `json:"totalTables"`
	EventTables      int          `json:"eventTables"`
	UserTables       int          `json:"userTables"`
	LatestEventTable *TableDetail `json:"latestEventTable"`
	LatestUserTable  *TableDetail `json:"latestUserTable"`
	DateRange        *CatalogSpan `json:"dateRange"`
	RefreshedAt      time.Time    `json:"refreshedAt"`
}

// CatalogSpan is the earliest/latest shard dates present in the catalog.
type CatalogSpan struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// TableDetail is the full per-shard view for the details endpoint.
type TableDetail struct {
	TableID    string   `json:"tableId"`
	Type       string   `json:"type"`
	Date       string   `json:"date,omitempty"`
	IsIntraday bool     `json:"isIntraday"`
	RowCount   *int64   `json:"rowCount"`
	SizeMB     *float64 `json:"sizeMB"`
}

// TablesForRangeResponse lists the shards covering a requested range.
type TablesForRangeResponse struct {
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	TableType  string          `json:"tableType"`
	TableCount int             `json:"tableCount"`
	Tables     []TableUsedInfo `json:"tables"`
}

// RefreshResponse reports the outcome of a forced catalog refresh.
type RefreshResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	TableCount int    `json:"tableCount"`
}

// HealthResponse is the liveness/readiness body.
type HealthResponse struct {
	Status             string    `json:"status"`
	Version            string    `json:"version,omitempty"`
	UptimeSeconds      float64   `json:"uptimeSeconds"`
	WarehouseAvailable bool      `json:"warehouseAvailable"`
	CatalogTables      int       `json:"catalogTables"`
	CatalogRefreshedAt time.Time `json:"catalogRefreshedAt"`
}
