// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package funnel

import "time"

// Level classifies how engaged a session was, from its score.
type Level int

const (
	MinimalEngagement Level = iota
	LightlyEngaged
	ModeratelyEngaged
	HighlyEngaged
)

// String returns the level name used in API payloads.
func (l Level) String() string {
	switch l {
	case HighlyEngaged:
		return "HighlyEngaged"
	case ModeratelyEngaged:
		return "ModeratelyEngaged"
	case LightlyEngaged:
		return "LightlyEngaged"
	default:
		return "MinimalEngagement"
	}
}

// MarshalText implements encoding.TextMarshaler so levels serialize as
// their names in JSON.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ScoringConfig holds the engagement score weights and level thresholds.
// All values are configurable; DefaultScoringConfig gives the standard set.
type ScoringConfig struct {
	// StageWeight is points per furthest stage reached.
	StageWeight int `koanf:"stage_weight"`

	// MinutesWeight is points per minute of session time, capped at TimeCap.
	MinutesWeight float64 `koanf:"minutes_weight"`
	TimeCap       int     `koanf:"time_cap"`

	// RevisitWeight is points per screen revisit, capped at RevisitCap.
	RevisitWeight int `koanf:"revisit_weight"`
	RevisitCap    int `koanf:"revisit_cap"`

	// CompletionBonus is added once when the session completed onboarding.
	CompletionBonus int `koanf:"completion_bonus"`

	// Level thresholds: score >= HighThreshold is HighlyEngaged, and so on
	// down to MinimalEngagement below LightThreshold.
	HighThreshold     int `koanf:"high_threshold"`
	ModerateThreshold int `koanf:"moderate_threshold"`
	LightThreshold    int `koanf:"light_threshold"`
}

// DefaultScoringConfig returns the standard weights: 5 points per stage,
// half a point per minute capped at 30, 3 per revisit capped at 20, and a
// 20-point completion bonus, with levels at 80/50/20.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		StageWeight:       5,
		MinutesWeight:     0.5,
		TimeCap:           30,
		RevisitWeight:     3,
		RevisitCap:        20,
		CompletionBonus:   20,
		HighThreshold:     80,
		ModerateThreshold: 50,
		LightThreshold:    20,
	}
}

// Score computes the engagement score for a session. The time component
// uses whole points only: fractional products are truncated.
func (c ScoringConfig) Score(furthestStage int, invested time.Duration, revisits int, completed bool) int {
	score := furthestStage * c.StageWeight

	timePoints := int(invested.Minutes() * c.MinutesWeight)
	if timePoints > c.TimeCap {
		timePoints = c.TimeCap
	}
	if timePoints > 0 {
		score += timePoints
	}

	revisitPoints := revisits * c.RevisitWeight
	if revisitPoints > c.RevisitCap {
		revisitPoints = c.RevisitCap
	}
	if revisitPoints > 0 {
		score += revisitPoints
	}

	if completed {
		score += c.CompletionBonus
	}

	return score
}

// Level maps a score to its engagement level.
func (c ScoringConfig) Level(score int) Level {
	switch {
	case score >= c.HighThreshold:
		return HighlyEngaged
	case score >= c.ModerateThreshold:
		return ModeratelyEngaged
	case score >= c.LightThreshold:
		return LightlyEngaged
	default:
		return MinimalEngagement
	}
}
