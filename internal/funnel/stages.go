// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

// Package funnel defines the onboarding funnel: the ordered screen stages,
// engagement scoring, and session derivation from raw analytics events.
//
// The funnel has nine stages. Screen names arriving in events map to stage
// numbers 1-9; anything else is stage 0 (unknown) and never counts as
// progress.
package funnel

// Event names emitted by the onboarding client.
const (
	EventScreenView         = "aifp_screen_view"
	EventExitOnboarding     = "aifp_exit_onboarding"
	EventCompleteOnboarding = "aifp_complete_onboarding"
	EventAPICall            = "aifp_api_call"
)

// ParamScreenName is the event parameter carrying the screen identifier.
const ParamScreenName = "screenName"

// StageCount is the number of ordered funnel stages.
const StageCount = 9

// screensInOrder lists the funnel screens by ascending stage number.
// Index i holds the screen for stage i+1.
var screensInOrder = [StageCount]string{
	"welcome",
	"dy-quiz/1",
	"dy-quiz/2",
	"step/1",
	"step/2",
	"step/3",
	"job-suggestions/1",
	"job-suggestions/2",
	"outro",
}

// stageNames maps stage numbers to human-readable names.
var stageNames = [StageCount]string{
	"Welcome Screen",
	"DY Quiz Step 1",
	"DY Quiz Step 2",
	"Job Desires Step 1",
	"Job Desires Step 2",
	"Job Desires Step 3",
	"Job Suggestions Step 1",
	"Job Suggestions Step 2",
	"Outro/Complete",
}

// stageOrder is the reverse lookup from screen name to stage number.
var stageOrder = func() map[string]int {
	m := make(map[string]int, StageCount)
	for i, screen := range screensInOrder {
		m[screen] = i + 1
	}
	return m
}()

// StageNumber returns the 1-based stage number for a screen name, or 0 for
// screens that are not part of the funnel.
func StageNumber(screen string) int {
	return stageOrder[screen]
}

// StageName returns the display name for a stage number, or "Unknown" for
// numbers outside 1..StageCount.
func StageName(stage int) string {
	if stage < 1 || stage > StageCount {
		return "Unknown"
	}
	return stageNames[stage-1]
}

// ScreenForStage returns the screen name for a stage number, or "" for
// numbers outside 1..StageCount.
func ScreenForStage(stage int) string {
	if stage < 1 || stage > StageCount {
		return ""
	}
	return screensInOrder[stage-1]
}

// Screens returns the funnel screens in stage order.
func Screens() []string {
	out := make([]string, StageCount)
	copy(out, screensInOrder[:])
	return out
}

// ScreenDisplayName returns a short label for a screen for flow displays.
// Funnel screens use their stage name; anything else passes through as-is.
func ScreenDisplayName(screen string) string {
	if n := stageOrder[screen]; n > 0 {
		return stageNames[n-1]
	}
	return screen
}

// IsBackwardTransition reports whether moving from one screen to another
// goes against funnel order. Transitions involving unknown screens are
// never backward.
func IsBackwardTransition(from, to string) bool {
	fromStage := stageOrder[from]
	toStage := stageOrder[to]
	if fromStage == 0 || toStage == 0 {
		return false
	}
	return toStage < fromStage
}
