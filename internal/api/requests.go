// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package api

import "github.com/anshulvish/ob-reports/internal/query"

// RequestFilters carries optional row filters shared by the data endpoints.
// Filter values are always bound as query parameters, never interpolated.
type RequestFilters struct {
	ExcludeTestUsers bool     `json:"excludeTestUsers"`
	SchemaVersion    string   `json:"schemaVersion" validate:"omitempty,max=32"`
	Country          string   `json:"country" validate:"omitempty,max=64"`
	EventNames       []string `json:"eventNames" validate:"omitempty,max=20,dive,max=64"`
}

func (f *RequestFilters) toQueryFilters() query.Filters {
	if f == nil {
		return query.Filters{}
	}
	return query.Filters{
		ExcludeTestUsers: f.ExcludeTestUsers,
		SchemaVersion:    f.SchemaVersion,
		Country:          f.Country,
		EventNames:       f.EventNames,
	}
}

// DateRangeRequest is the common body for the engagement endpoints.
type DateRangeRequest struct {
	StartDate string          `json:"startDate" validate:"required,shortdate"`
	EndDate   string          `json:"endDate" validate:"required,shortdate"`
	Filters   *RequestFilters `json:"filters"`
}

// SessionsRequest adds a session cap to the common date-range body.
type SessionsRequest struct {
	StartDate string          `json:"startDate" validate:"required,shortdate"`
	EndDate   string          `json:"endDate" validate:"required,shortdate"`
	Limit     int             `json:"limit" validate:"omitempty,min=1,max=500"`
	Filters   *RequestFilters `json:"filters"`
}

// AnalyticsQueryRequest is the body for the raw query endpoint.
type AnalyticsQueryRequest struct {
	StartDate string          `json:"startDate" validate:"required,shortdate"`
	EndDate   string          `json:"endDate" validate:"required,shortdate"`
	QueryType string          `json:"queryType" validate:"required,oneof=sample engagement user_journeys"`
	Limit     int             `json:"limit" validate:"omitempty,min=1,max=1000"`
	Filters   *RequestFilters `json:"filters"`
}
