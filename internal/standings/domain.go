package standings

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/teams"
)

// Points awarded per result.
const (
	winPoints = 3
	tiePoints = 1
)

// Standing is one team's row in a division table.
type Standing struct {
	Rank          int    `json:"rank"`
	TeamID        int64  `json:"team_id"`
	TeamName      string `json:"team_name"`
	Played        int    `json:"played"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	Ties          int    `json:"ties"`
	PointsFor     int    `json:"points_for"`
	PointsAgainst int    `json:"points_against"`
	PointDiff     int    `json:"point_diff"`
	Points        int    `json:"points"`
}

// Table is a division's computed standings.
type Table struct {
	DivisionID int64      `json:"division_id"`
	Standings  []Standing `json:"standings"`
	ComputedAt time.Time  `json:"computed_at"`
}

// Compute builds standings rows from final results. Every team in teamList
// gets a row, so sides that have not played yet still show up with zeros.
// Ordering is points, then point differential, then points scored, then
// team name under locale-aware case-insensitive collation.
func Compute(finals []games.Game, teamList []teams.Team) []Standing {
	byTeam := make(map[int64]*Standing, len(teamList))
	for _, t := range teamList {
		byTeam[t.ID] = &Standing{TeamID: t.ID, TeamName: t.Name}
	}
	for _, g := range finals {
		home, away := byTeam[g.HomeTeamID], byTeam[g.AwayTeamID]
		if home == nil || away == nil {
			// Result against a team no longer in the division.
			continue
		}
		home.Played++
		away.Played++
		home.PointsFor += g.HomeScore
		home.PointsAgainst += g.AwayScore
		away.PointsFor += g.AwayScore
		away.PointsAgainst += g.HomeScore
		switch {
		case g.HomeScore > g.AwayScore:
			home.Wins++
			away.Losses++
		case g.HomeScore < g.AwayScore:
			away.Wins++
			home.Losses++
		default:
			home.Ties++
			away.Ties++
		}
	}

	rows := make([]Standing, 0, len(teamList))
	for _, t := range teamList {
		row := byTeam[t.ID]
		row.Points = row.Wins*winPoints + row.Ties*tiePoints
		row.PointDiff = row.PointsFor - row.PointsAgainst
		rows = append(rows, *row)
	}

	coll := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.PointDiff != b.PointDiff {
			return a.PointDiff > b.PointDiff
		}
		if a.PointsFor != b.PointsFor {
			return a.PointsFor > b.PointsFor
		}
		return coll.CompareString(a.TeamName, b.TeamName) < 0
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}
