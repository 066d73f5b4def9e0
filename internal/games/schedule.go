package games

// Pairing is one generated fixture slot. Week numbers start at 1 and line
// up with the season's week calendar.
type Pairing struct {
	Week       int
	HomeTeamID int64
	AwayTeamID int64
}

// RoundRobin pairs every team against every other exactly once using the
// circle method: one slot stays fixed while the rest rotate each week. With
// an odd team count a bye slot is added and its fixtures dropped, so every
// team sits out exactly one week. Home and away alternate for the fixed
// slot to keep venues roughly balanced. Deterministic in the input order.
func RoundRobin(teamIDs []int64) []Pairing {
	if len(teamIDs) < 2 {
		return nil
	}
	slots := make([]int64, len(teamIDs))
	copy(slots, teamIDs)
	if len(slots)%2 != 0 {
		slots = append(slots, 0) // bye
	}
	n := len(slots)
	rounds := n - 1

	var out []Pairing
	for round := 0; round < rounds; round++ {
		for i := 0; i < n/2; i++ {
			home, away := slots[i], slots[n-1-i]
			if home == 0 || away == 0 {
				continue
			}
			if i == 0 && round%2 == 1 {
				home, away = away, home
			}
			out = append(out, Pairing{Week: round + 1, HomeTeamID: home, AwayTeamID: away})
		}
		// Rotate all slots but the first one position clockwise.
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}
	return out
}

// WeeksNeeded reports how many weeks a full round-robin takes.
func WeeksNeeded(teamCount int) int {
	if teamCount < 2 {
		return 0
	}
	if teamCount%2 == 0 {
		return teamCount - 1
	}
	return teamCount
}
