package games

import (
	"errors"
	"fmt"
	"time"
)

// Module-level sentinel errors.
var (
	ErrNotFound           = errors.New("games: not found")
	ErrAssignmentNotFound = errors.New("games: assignment not found")
)

// Status tracks a game through its lifecycle.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusFinal      Status = "final"
	StatusPostponed  Status = "postponed"
	StatusCanceled   Status = "canceled"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusFinal, StatusPostponed, StatusCanceled:
		return true
	}
	return false
}

// ValidateTransition checks a status change. Allowed moves:
// scheduled -> in_progress -> final, scheduled -> final (score posted
// without a live update), scheduled <-> postponed, and
// scheduled|postponed -> canceled. Final and canceled are terminal.
func ValidateTransition(current, target Status) error {
	if current == target {
		return nil
	}
	ok := false
	switch current {
	case StatusScheduled:
		ok = target == StatusInProgress || target == StatusFinal || target == StatusPostponed || target == StatusCanceled
	case StatusInProgress:
		ok = target == StatusFinal
	case StatusPostponed:
		ok = target == StatusScheduled || target == StatusCanceled
	}
	if !ok {
		return fmt.Errorf("games: cannot move %s to %s", current, target)
	}
	return nil
}

// Game is one fixture between two teams in a division.
type Game struct {
	ID          int64     `json:"id"`
	DivisionID  int64     `json:"division_id"`
	HomeTeamID  int64     `json:"home_team_id"`
	AwayTeamID  int64     `json:"away_team_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    string    `json:"location"`
	Status      Status    `json:"status"`
	HomeScore   int       `json:"home_score"`
	AwayScore   int       `json:"away_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Assignment is a referee posting on a game. These rows are the source of
// the assigned-game facts used by score submission checks.
type Assignment struct {
	GameID    int64     `json:"game_id"`
	UserID    int64     `json:"user_id"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name"`
}
