package brackets

import (
	"errors"
	"math/bits"
	"time"
)

var (
	ErrNotFound      = errors.New("brackets: not found")
	ErrMatchNotFound = errors.New("brackets: match not found")
)

// Status tracks a bracket's lifecycle.
type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
)

// Bracket is a single-elimination playoff for one division.
type Bracket struct {
	ID         int64     `json:"id"`
	DivisionID int64     `json:"division_id"`
	Name       string    `json:"name"`
	Size       int       `json:"size"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Match is one bracket pairing. Zero team IDs mean the slot is still waiting
// on an earlier round; a zero AwayTeamID in round one is a bye.
type Match struct {
	ID         int64     `json:"id"`
	BracketID  int64     `json:"bracket_id"`
	Round      int       `json:"round"`
	Slot       int       `json:"slot"`
	HomeTeamID int64     `json:"home_team_id,omitempty"`
	AwayTeamID int64     `json:"away_team_id,omitempty"`
	WinnerID   int64     `json:"winner_id,omitempty"`
	GameID     int64     `json:"game_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NextSlot returns where this match's winner plays next.
func (m Match) NextSlot() (round, slot int) {
	return m.Round + 1, (m.Slot + 1) / 2
}

// HomeSideNext reports whether the winner takes the home side of the next
// match. Odd slots feed home, even slots feed away.
func (m Match) HomeSideNext() bool {
	return m.Slot%2 == 1
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// totalRounds returns how many rounds a bracket of the given size plays.
func totalRounds(size int) int {
	if size < 2 {
		return 0
	}
	return bits.Len(uint(size)) - 1
}

// seedOrder lays out seed numbers in bracket order, so the top two seeds
// land in opposite halves and can only meet in the final. Built by the
// usual doubling: each seed is joined by its complement in the next larger
// bracket.
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		sum := len(order)*2 + 1
		for _, s := range order {
			next = append(next, s, sum-s)
		}
		order = next
	}
	return order
}

// BuildMatches lays out a full bracket for the seeded team IDs, best seed
// first. Seeds beyond the field size become byes; bye winners are advanced
// into round two before the bracket is returned. Later rounds start empty.
func BuildMatches(seeds []int64) []Match {
	if len(seeds) < 2 {
		return nil
	}
	size := nextPowerOfTwo(len(seeds))
	order := seedOrder(size)
	rounds := totalRounds(size)

	var matches []Match
	offsets := make([]int, rounds+2)
	count := size / 2
	for r := 1; r <= rounds; r++ {
		offsets[r] = len(matches)
		for slot := 1; slot <= count; slot++ {
			matches = append(matches, Match{Round: r, Slot: slot})
		}
		count /= 2
	}

	for i := 0; i < size/2; i++ {
		m := &matches[i]
		seedA, seedB := order[2*i], order[2*i+1]
		if seedA <= len(seeds) {
			m.HomeTeamID = seeds[seedA-1]
		}
		if seedB <= len(seeds) {
			m.AwayTeamID = seeds[seedB-1]
		}
	}

	// Byes only occur on the away side: the home side of every first-round
	// match holds one of the top half of seeds, which always exist.
	for i := 0; i < size/2; i++ {
		m := &matches[i]
		if m.AwayTeamID != 0 || m.HomeTeamID == 0 {
			continue
		}
		m.WinnerID = m.HomeTeamID
		if rounds == 1 {
			continue
		}
		round, slot := m.NextSlot()
		next := &matches[offsets[round]+slot-1]
		if m.HomeSideNext() {
			next.HomeTeamID = m.WinnerID
		} else {
			next.AwayTeamID = m.WinnerID
		}
	}
	return matches
}
