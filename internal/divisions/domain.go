package divisions

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("divisions: not found")

// SkillLevel buckets teams of comparable strength.
type SkillLevel string

const (
	SkillRecreational SkillLevel = "recreational"
	SkillIntermediate SkillLevel = "intermediate"
	SkillCompetitive  SkillLevel = "competitive"
)

// Valid reports whether the level is known.
func (l SkillLevel) Valid() bool {
	switch l {
	case SkillRecreational, SkillIntermediate, SkillCompetitive:
		return true
	}
	return false
}

// Division partitions a season into groups that play each other.
type Division struct {
	ID         int64      `json:"id"`
	SeasonID   int64      `json:"season_id"`
	Name       string     `json:"name"`
	SkillLevel SkillLevel `json:"skill_level"`
	MaxTeams   int        `json:"max_teams"`
	TeamCount  int        `json:"team_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
