// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package warehouse

import (
	"math/big"
	"testing"
	"time"
)

func TestRowString(t *testing.T) {
	t.Parallel()

	row := Row{
		"s":     "hello",
		"bytes": []byte("raw"),
		"null":  nil,
		"n":     int64(5),
	}

	tests := []struct {
		col  string
		want string
	}{
		{"s", "hello"},
		{"bytes", "raw"},
		{"null", ""},
		{"missing", ""},
		{"n", ""}, // numbers do not silently stringify
	}

	for _, tt := range tests {
		if got := row.String(tt.col); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestRowInt64(t *testing.T) {
	t.Parallel()

	row := Row{
		"i64":  int64(42),
		"i":    7,
		"i32":  int32(9),
		"f":    3.9,
		"s":    "123",
		"bad":  "abc",
		"huge": big.NewInt(1234),
	}

	tests := []struct {
		col  string
		want int64
	}{
		{"i64", 42},
		{"i", 7},
		{"i32", 9},
		{"f", 3}, // truncated
		{"s", 123},
		{"bad", 0},
		{"missing", 0},
		{"huge", 1234},
	}

	for _, tt := range tests {
		if got := row.Int64(tt.col); got != tt.want {
			t.Errorf("Int64(%q) = %d, want %d", tt.col, got, tt.want)
		}
	}
}

func TestRowFloat64(t *testing.T) {
	t.Parallel()

	row := Row{
		"f":    2.5,
		"f32":  float32(1.5),
		"i":    int64(4),
		"s":    "0.25",
		"huge": big.NewInt(8),
	}

	tests := []struct {
		col  string
		want float64
	}{
		{"f", 2.5},
		{"f32", 1.5},
		{"i", 4},
		{"s", 0.25},
		{"missing", 0},
		{"huge", 8},
	}

	for _, tt := range tests {
		if got := row.Float64(tt.col); got != tt.want {
			t.Errorf("Float64(%q) = %v, want %v", tt.col, got, tt.want)
		}
	}
}

func TestRowBool(t *testing.T) {
	t.Parallel()

	row := Row{
		"b":    true,
		"i":    int64(1),
		"zero": int64(0),
		"s":    "true",
	}

	if !row.Bool("b") || !row.Bool("i") || !row.Bool("s") {
		t.Error("expected truthy values to coerce to true")
	}
	if row.Bool("zero") || row.Bool("missing") {
		t.Error("expected zero and missing values to coerce to false")
	}
}

func TestRowTime(t *testing.T) {
	t.Parallel()

	instant := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	micros := instant.UnixMicro()

	row := Row{
		"t":      instant,
		"micros": micros,
		"str":    "1705314600000000",
		"rfc":    "2024-01-15T10:30:00Z",
		"junk":   "not a time",
	}

	if got := row.Time("t"); !got.Equal(instant) {
		t.Errorf("Time(t) = %v, want %v", got, instant)
	}
	if got := row.Time("micros"); !got.Equal(instant) {
		t.Errorf("Time(micros) = %v, want %v", got, instant)
	}
	if got := row.Time("rfc"); !got.Equal(instant) {
		t.Errorf("Time(rfc) = %v, want %v", got, instant)
	}
	if got := row.Time("junk"); !got.IsZero() {
		t.Errorf("Time(junk) = %v, want zero", got)
	}
	if got := row.Time("missing"); !got.IsZero() {
		t.Errorf("Time(missing) = %v, want zero", got)
	}
}

func TestRowHas(t *testing.T) {
	t.Parallel()

	row := Row{"present": int64(1), "null": nil}

	if !row.Has("present") {
		t.Error("expected Has(present) = true")
	}
	if row.Has("null") {
		t.Error("expected Has(null) = false")
	}
	if row.Has("absent") {
		t.Error("expected Has(absent) = false")
	}
}
