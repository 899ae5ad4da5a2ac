// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package funnel

import (
	"testing"
	"time"
)

func TestScoreComponents(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()

	tests := []struct {
		name      string
		stage     int
		invested  time.Duration
		revisits  int
		completed bool
		want      int
	}{
		{"empty session", 0, 0, 0, false, 0},
		{"stage only", 3, 0, 0, false, 15},
		{"all stages", 9, 0, 0, false, 45},
		{"time truncates", 2, 3 * time.Minute, 0, false, 10 + 1}, // 1.5 -> 1
		{"time capped at 30", 0, 2 * time.Hour, 0, false, 30},
		{"revisits", 0, 0, 4, false, 12},
		{"revisits capped at 20", 0, 0, 50, false, 20},
		{"completion bonus", 9, 0, 0, true, 65},
		{"full session", 9, 10 * time.Minute, 2, true, 45 + 5 + 6 + 20},
		{"maximum score", 9, 2 * time.Hour, 100, true, 45 + 30 + 20 + 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := cfg.Score(tt.stage, tt.invested, tt.revisits, tt.completed)
			if got != tt.want {
				t.Errorf("Score(%d, %v, %d, %v) = %d, want %d",
					tt.stage, tt.invested, tt.revisits, tt.completed, got, tt.want)
			}
		})
	}
}

func TestScoreMonotonicInStage(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()
	prev := -1
	for stage := 0; stage <= StageCount; stage++ {
		score := cfg.Score(stage, 5*time.Minute, 1, false)
		if score <= prev {
			t.Errorf("score at stage %d (%d) not greater than stage %d (%d)", stage, score, stage-1, prev)
		}
		prev = score
	}
}

func TestLevelThresholds(t *testing.T) {
	t.Parallel()

	cfg := DefaultScoringConfig()

	tests := []struct {
		score int
		want  Level
	}{
		{0, MinimalEngagement},
		{19, MinimalEngagement},
		{20, LightlyEngaged},
		{49, LightlyEngaged},
		{50, ModeratelyEngaged},
		{76, ModeratelyEngaged},
		{79, ModeratelyEngaged},
		{80, HighlyEngaged},
		{115, HighlyEngaged},
	}

	for _, tt := range tests {
		if got := cfg.Level(tt.score); got != tt.want {
			t.Errorf("Level(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level Level
		want  string
	}{
		{MinimalEngagement, "MinimalEngagement"},
		{LightlyEngaged, "LightlyEngaged"},
		{ModeratelyEngaged, "ModeratelyEngaged"},
		{HighlyEngaged, "HighlyEngaged"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
		text, err := tt.level.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		if string(text) != tt.want {
			t.Errorf("MarshalText = %q, want %q", text, tt.want)
		}
	}
}

func TestCustomScoringConfig(t *testing.T) {
	t.Parallel()

	cfg := ScoringConfig{
		StageWeight:       10,
		MinutesWeight:     1,
		TimeCap:           60,
		RevisitWeight:     1,
		RevisitCap:        5,
		CompletionBonus:   0,
		HighThreshold:     100,
		ModerateThreshold: 60,
		LightThreshold:    30,
	}

	got := cfg.Score(5, 12*time.Minute, 10, true)
	want := 50 + 12 + 5 // revisits capped, no bonus
	if got != want {
		t.Errorf("Score = %d, want %d", got, want)
	}
	if lvl := cfg.Level(got); lvl != ModeratelyEngaged {
		t.Errorf("Level(%d) = %v, want ModeratelyEngaged", got, lvl)
	}
}
