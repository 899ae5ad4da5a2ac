// ob-reports - Onboarding Funnel Analytics over BigQuery Event Exports
// Copyright 2026 Anshul Vish (anshulvish)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/anshulvish/ob-reports

package funnel

import (
	"sort"
	"time"
)

// Event is a single analytics event attributed to a session.
type Event struct {
	Timestamp  time.Time
	Name       string
	SessionID  string
	UserID     string
	UserEmail  string
	ScreenName string

	Country string
	Region  string
	City    string

	DeviceCategory  string
	OperatingSystem string
	Browser         string
}

// Transition is one screen-to-screen move inside a session.
type Transition struct {
	From string
	To   string
	At   time.Time
	// Dwell is how long the session stayed on From before moving.
	Dwell    time.Duration
	Backward bool
}

// Session is a user's onboarding session reconstructed from its events,
// ordered by timestamp.
type Session struct {
	SessionID string
	UserID    string
	UserEmail string
	Start     time.Time
	End       time.Time

	Country string
	Region  string
	City    string

	Events []Event

	// ScreenSequence holds every funnel-relevant screen view in order,
	// repeats included.
	ScreenSequence []string

	visitCounts map[string]int
	completed   bool
}

// BuildSession reconstructs a session from its events. Events are sorted by
// timestamp; identity and geo fields come from the first event carrying them.
func BuildSession(events []Event) *Session {
	s := &Session{visitCounts: make(map[string]int)}
	if len(events) == 0 {
		return s
	}

	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s.Events = sorted
	s.SessionID = sorted[0].SessionID
	s.Start = sorted[0].Timestamp
	s.End = sorted[len(sorted)-1].Timestamp

	for _, ev := range sorted {
		if s.UserID == "" && ev.UserID != "" {
			s.UserID = ev.UserID
		}
		if s.UserEmail == "" && ev.UserEmail != "" {
			s.UserEmail = ev.UserEmail
		}
		if s.Country == "" && ev.Country != "" {
			s.Country, s.Region, s.City = ev.Country, ev.Region, ev.City
		}

		switch ev.Name {
		case EventScreenView:
			if ev.ScreenName != "" {
				s.ScreenSequence = append(s.ScreenSequence, ev.ScreenName)
				s.visitCounts[ev.ScreenName]++
			}
		case EventCompleteOnboarding:
			s.completed = true
		}
	}

	return s
}

// BuildSessions groups events by session ID and reconstructs each session,
// ordered by start time descending (most recent first).
func BuildSessions(events []Event) []*Session {
	byID := make(map[string][]Event)
	order := make([]string, 0)
	for _, ev := range events {
		if _, seen := byID[ev.SessionID]; !seen {
			order = append(order, ev.SessionID)
		}
		byID[ev.SessionID] = append(byID[ev.SessionID], ev)
	}

	sessions := make([]*Session, 0, len(order))
	for _, id := range order {
		sessions = append(sessions, BuildSession(byID[id]))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Start.After(sessions[j].Start)
	})
	return sessions
}

// Duration is the wall time between the first and last event.
func (s *Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// FurthestStage returns the highest funnel stage number viewed, 0 when no
// funnel screen was seen.
func (s *Session) FurthestStage() int {
	furthest := 0
	for _, screen := range s.ScreenSequence {
		if n := StageNumber(screen); n > furthest {
			furthest = n
		}
	}
	return furthest
}

// Completed reports whether the session finished onboarding, either by the
// explicit completion event or by reaching the final stage.
func (s *Session) Completed() bool {
	return s.completed || s.FurthestStage() == StageCount
}

// ExitScreen is the last screen viewed, "" when no screens were seen.
func (s *Session) ExitScreen() string {
	if len(s.ScreenSequence) == 0 {
		return ""
	}
	return s.ScreenSequence[len(s.ScreenSequence)-1]
}

// VisitCount returns how many times a screen was viewed.
func (s *Session) VisitCount(screen string) int {
	return s.visitCounts[screen]
}

// UniqueScreens returns the number of distinct screens viewed.
func (s *Session) UniqueScreens() int {
	return len(s.visitCounts)
}

// TotalRevisits counts screen views beyond the first visit, summed over all
// screens.
func (s *Session) TotalRevisits() int {
	revisits := 0
	for _, count := range s.visitCounts {
		if count > 1 {
			revisits += count - 1
		}
	}
	return revisits
}

// Transitions returns the screen-to-screen moves in order. Consecutive
// views of the same screen are not transitions.
func (s *Session) Transitions() []Transition {
	var out []Transition
	var prevScreen string
	var prevAt time.Time

	for _, ev := range s.Events {
		if ev.Name != EventScreenView || ev.ScreenName == "" {
			continue
		}
		if prevScreen != "" && ev.ScreenName != prevScreen {
			out = append(out, Transition{
				From:     prevScreen,
				To:       ev.ScreenName,
				At:       ev.Timestamp,
				Dwell:    ev.Timestamp.Sub(prevAt),
				Backward: IsBackwardTransition(prevScreen, ev.ScreenName),
			})
		}
		prevScreen = ev.ScreenName
		prevAt = ev.Timestamp
	}
	return out
}

// HasNonLinearFlow reports whether the session ever moved backward through
// the funnel.
func (s *Session) HasNonLinearFlow() bool {
	for _, t := range s.Transitions() {
		if t.Backward {
			return true
		}
	}
	return false
}

// Score computes the session's engagement score under the given config.
func (s *Session) Score(cfg ScoringConfig) int {
	return cfg.Score(s.FurthestStage(), s.Duration(), s.TotalRevisits(), s.Completed())
}

// EngagementLevel classifies the session under the given config.
func (s *Session) EngagementLevel(cfg ScoringConfig) Level {
	return cfg.Level(s.Score(cfg))
}
