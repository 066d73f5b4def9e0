package seasons

import (
	"errors"
	"time"
)

// Module-level sentinel errors.
var (
	ErrNotFound          = errors.New("seasons: not found")
	ErrInvalidTransition = errors.New("seasons: status transition invalid")
)

// Status tracks the season lifecycle.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusRegistration Status = "registration"
	StatusActive       Status = "active"
	StatusCompleted    Status = "completed"
	StatusArchived     Status = "archived"
)

// ValidateTransition checks lifecycle changes. Reopening a completed season
// needs the override flag; archived is terminal.
func ValidateTransition(current, target Status, hasOverride bool) error {
	if current == target {
		return nil
	}
	switch current {
	case StatusDraft:
		if target == StatusRegistration {
			return nil
		}
	case StatusRegistration:
		if target == StatusDraft || target == StatusActive {
			return nil
		}
	case StatusActive:
		if target == StatusCompleted {
			return nil
		}
	case StatusCompleted:
		if target == StatusArchived {
			return nil
		}
		if target == StatusActive && hasOverride {
			return nil
		}
	}
	return ErrInvalidTransition
}

// Season is one competitive run of a league, played in numbered weeks.
type Season struct {
	ID                   int64     `json:"id"`
	LeagueID             int64     `json:"league_id"`
	Name                 string    `json:"name"`
	Status               Status    `json:"status"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Week is a scheduling block within a season.
type Week struct {
	Number int       `json:"number"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// WeekCount returns how many 7-day blocks fit between start and end dates,
// counting a trailing partial week as a full one.
func (s Season) WeekCount() int {
	if !s.EndDate.After(s.StartDate) {
		return 0
	}
	days := int(s.EndDate.Sub(s.StartDate).Hours() / 24)
	return (days + 6) / 7
}

// Weeks expands the season into its scheduling blocks. The final week is
// clipped to the season end date.
func (s Season) Weeks() []Week {
	count := s.WeekCount()
	if count == 0 {
		return nil
	}
	weeks := make([]Week, 0, count)
	for i := 0; i < count; i++ {
		start := s.StartDate.AddDate(0, 0, i*7)
		end := start.AddDate(0, 0, 7)
		if end.After(s.EndDate) {
			end = s.EndDate
		}
		weeks = append(weeks, Week{Number: i + 1, Start: start, End: end})
	}
	return weeks
}

// WeekOf maps a timestamp to its season week, or 0 when out of range.
func (s Season) WeekOf(t time.Time) int {
	if t.Before(s.StartDate) || !t.Before(s.EndDate) {
		return 0
	}
	days := int(t.Sub(s.StartDate).Hours() / 24)
	return days/7 + 1
}
