// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

// rangeRequest mirrors the shape of the metric request structs.
type rangeRequest struct {
	StartDate string `validate:"required,shortdate"`
	EndDate   string `validate:"required,shortdate"`
	Limit     int    `validate:"min=0,max=1000"`
	QueryType string `validate:"omitempty,oneof=sample engagement user_journeys"`
}

func TestValidateStruct_Valid(t *testing.T) {
	req := rangeRequest{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		Limit:     100,
		QueryType: "engagement",
	}

	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid struct, got: %v", err)
	}
}

func TestValidateStruct_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   rangeRequest
		wantMsg string
	}{
		{
			name:    "missing dates",
			input:   rangeRequest{},
			wantMsg: "StartDate is required",
		},
		{
			name:    "malformed date",
			input:   rangeRequest{StartDate: "01/15/2024", EndDate: "2024-01-31"},
			wantMsg: "StartDate must be a calendar date in YYYY-MM-DD format",
		},
		{
			name:    "impossible date",
			input:   rangeRequest{StartDate: "2024-02-31", EndDate: "2024-03-01"},
			wantMsg: "StartDate must be a calendar date",
		},
		{
			name:    "limit too high",
			input:   rangeRequest{StartDate: "2024-01-01", EndDate: "2024-01-31", Limit: 5000},
			wantMsg: "Limit must be at most 1000",
		},
		{
			name:    "bad query type",
			input:   rangeRequest{StartDate: "2024-01-01", EndDate: "2024-01-31", QueryType: "drop table"},
			wantMsg: "QueryType must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&rangeRequest{Limit: -1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(err.Errors()), err)
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("expected combined message, got %q", err.Error())
	}
}

func TestValidationErrorAccessors(t *testing.T) {
	err := ValidateStruct(&rangeRequest{StartDate: "2024-01-01", EndDate: "2024-01-31", Limit: 5000})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fe := err.Errors()[0]
	if fe.Field() != "Limit" {
		t.Errorf("Field() = %q, want Limit", fe.Field())
	}
	if fe.Tag() != "max" {
		t.Errorf("Tag() = %q, want max", fe.Tag())
	}
	if fe.Param() != "1000" {
		t.Errorf("Param() = %q, want 1000", fe.Param())
	}
	if fe.Value() != 5000 {
		t.Errorf("Value() = %v, want 5000", fe.Value())
	}
}
