package brackets

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/standings"
)

type mockRepository struct {
	brackets    map[int64]Bracket
	matches     map[int64]Match
	nextBracket int64
	nextMatch   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		brackets:    make(map[int64]Bracket),
		matches:     make(map[int64]Match),
		nextBracket: 1,
		nextMatch:   1,
	}
}

func (m *mockRepository) Create(ctx context.Context, b Bracket, matches []Match) (Bracket, []Match, error) {
	for _, existing := range m.brackets {
		if existing.DivisionID == b.DivisionID {
			return Bracket{}, nil, httpx.ErrDuplicate
		}
	}
	b.ID = m.nextBracket
	m.nextBracket++
	m.brackets[b.ID] = b
	saved := make([]Match, 0, len(matches))
	for _, match := range matches {
		match.ID = m.nextMatch
		match.BracketID = b.ID
		m.nextMatch++
		m.matches[match.ID] = match
		saved = append(saved, match)
	}
	return b, saved, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Bracket, error) {
	b, ok := m.brackets[id]
	if !ok {
		return Bracket{}, ErrNotFound
	}
	return b, nil
}

func (m *mockRepository) ByDivision(ctx context.Context, divisionID int64) (Bracket, error) {
	for _, b := range m.brackets {
		if b.DivisionID == divisionID {
			return b, nil
		}
	}
	return Bracket{}, ErrNotFound
}

func (m *mockRepository) Matches(ctx context.Context, bracketID int64) ([]Match, error) {
	var out []Match
	for id := int64(1); id < m.nextMatch; id++ {
		if match, ok := m.matches[id]; ok && match.BracketID == bracketID {
			out = append(out, match)
		}
	}
	return out, nil
}

func (m *mockRepository) Match(ctx context.Context, id int64) (Match, error) {
	match, ok := m.matches[id]
	if !ok {
		return Match{}, ErrMatchNotFound
	}
	return match, nil
}

func (m *mockRepository) MatchBySlot(ctx context.Context, bracketID int64, round, slot int) (Match, error) {
	for id := int64(1); id < m.nextMatch; id++ {
		match, ok := m.matches[id]
		if ok && match.BracketID == bracketID && match.Round == round && match.Slot == slot {
			return match, nil
		}
	}
	return Match{}, ErrMatchNotFound
}

func (m *mockRepository) UpdateMatchTeams(ctx context.Context, id, homeID, awayID int64) (Match, error) {
	match, ok := m.matches[id]
	if !ok {
		return Match{}, ErrMatchNotFound
	}
	match.HomeTeamID = homeID
	match.AwayTeamID = awayID
	m.matches[id] = match
	return match, nil
}

func (m *mockRepository) SetWinner(ctx context.Context, id, winnerID int64) (Match, error) {
	match, ok := m.matches[id]
	if !ok {
		return Match{}, ErrMatchNotFound
	}
	match.WinnerID = winnerID
	m.matches[id] = match
	return match, nil
}

func (m *mockRepository) SetGame(ctx context.Context, id, gameID int64) (Match, error) {
	match, ok := m.matches[id]
	if !ok {
		return Match{}, ErrMatchNotFound
	}
	match.GameID = gameID
	m.matches[id] = match
	return match, nil
}

func (m *mockRepository) SetStatus(ctx context.Context, bracketID int64, status Status) (Bracket, error) {
	b, ok := m.brackets[bracketID]
	if !ok {
		return Bracket{}, ErrNotFound
	}
	b.Status = status
	m.brackets[bracketID] = b
	return b, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.brackets[id]; !ok {
		return ErrNotFound
	}
	delete(m.brackets, id)
	for matchID, match := range m.matches {
		if match.BracketID == id {
			delete(m.matches, matchID)
		}
	}
	return nil
}

type stubStandings struct {
	tables map[int64]standings.Table
}

func (s stubStandings) Table(ctx context.Context, divisionID int64) (standings.Table, error) {
	tbl, ok := s.tables[divisionID]
	if !ok {
		return standings.Table{}, divisions.ErrNotFound
	}
	return tbl, nil
}

type stubGames struct {
	games map[int64]games.Game
}

func (s stubGames) Get(ctx context.Context, id int64) (games.Game, error) {
	g, ok := s.games[id]
	if !ok {
		return games.Game{}, games.ErrNotFound
	}
	return g, nil
}

type recordingAudit struct {
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func rankedTable(divisionID int64, teamIDs ...int64) standings.Table {
	tbl := standings.Table{DivisionID: divisionID}
	for i, id := range teamIDs {
		tbl.Standings = append(tbl.Standings, standings.Standing{Rank: i + 1, TeamID: id})
	}
	return tbl
}

type fixture struct {
	repo  *mockRepository
	audit *recordingAudit
	svc   *Service
}

// newFixture seeds division 1 with four ranked teams and division 2 with
// five, plus a couple of fixtures for link tests.
func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := newMockRepository()
	audit := &recordingAudit{}
	standingsPort := stubStandings{tables: map[int64]standings.Table{
		1: rankedTable(1, 10, 20, 30, 40),
		2: rankedTable(2, 10, 20, 30, 40, 50),
	}}
	gamesPort := stubGames{games: map[int64]games.Game{
		100: {ID: 100, DivisionID: 1, HomeTeamID: 20, AwayTeamID: 40, Status: games.StatusScheduled},
		101: {ID: 101, DivisionID: 1, HomeTeamID: 10, AwayTeamID: 30, Status: games.StatusScheduled},
	}}
	svc := NewService(repo, standingsPort, gamesPort, audit, nil)
	return fixture{repo: repo, audit: audit, svc: svc}
}

func TestGenerateSeedsFromStandings(t *testing.T) {
	f := newFixture(t)

	detail, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 2, ActorID: 3})
	require.NoError(t, err)
	assert.Equal(t, "Playoffs", detail.Bracket.Name)
	assert.Equal(t, 8, detail.Bracket.Size)
	assert.Equal(t, StatusActive, detail.Bracket.Status)
	require.Len(t, detail.Rounds, 3)
	require.Len(t, detail.Rounds[0], 4)
	assert.Equal(t, int64(10), detail.Rounds[0][0].WinnerID, "top seed byes through")
	assert.Zero(t, detail.ChampionID)

	_, err = f.svc.Generate(context.Background(), GenerateInput{DivisionID: 2, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGenerateUnknownDivision(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 9, ActorID: 3})
	assert.ErrorIs(t, err, divisions.ErrNotFound)
}

func TestAdvanceMovesWinnerThroughBracket(t *testing.T) {
	f := newFixture(t)
	detail, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 1, Name: "Cup", ActorID: 3})
	require.NoError(t, err)
	semi1 := detail.Rounds[0][0]
	semi2 := detail.Rounds[0][1]
	final := detail.Rounds[1][0]

	// The final cannot be reported before its feeders.
	_, err = f.svc.Advance(context.Background(), AdvanceInput{MatchID: final.ID, WinnerID: 10, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.Advance(context.Background(), AdvanceInput{MatchID: semi1.ID, WinnerID: 40, ActorID: 3})
	require.NoError(t, err)
	_, err = f.svc.Advance(context.Background(), AdvanceInput{MatchID: semi2.ID, WinnerID: 20, ActorID: 3})
	require.NoError(t, err)

	updated, err := f.repo.Match(context.Background(), final.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), updated.HomeTeamID)
	assert.Equal(t, int64(20), updated.AwayTeamID)

	_, err = f.svc.Advance(context.Background(), AdvanceInput{MatchID: final.ID, WinnerID: 20, ActorID: 3})
	require.NoError(t, err)

	done, err := f.svc.Get(context.Background(), detail.Bracket.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, done.Bracket.Status)
	assert.Equal(t, int64(20), done.ChampionID)
}

func TestAdvanceValidations(t *testing.T) {
	f := newFixture(t)
	detail, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	require.NoError(t, err)
	semi1 := detail.Rounds[0][0]

	_, err = f.svc.Advance(context.Background(), AdvanceInput{MatchID: semi1.ID, WinnerID: 99, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.Advance(context.Background(), AdvanceInput{MatchID: semi1.ID, WinnerID: 10, ActorID: 3})
	require.NoError(t, err)

	// Same winner again is a quiet no-op; a different one is refused.
	match, err := f.svc.Advance(context.Background(), AdvanceInput{MatchID: semi1.ID, WinnerID: 10, ActorID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(10), match.WinnerID)
	_, err = f.svc.Advance(context.Background(), AdvanceInput{MatchID: semi1.ID, WinnerID: 40, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestLinkGameChecksTeams(t *testing.T) {
	f := newFixture(t)
	detail, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	require.NoError(t, err)
	semi2 := detail.Rounds[0][1] // 20 vs 30

	_, err = f.svc.LinkGame(context.Background(), LinkInput{MatchID: semi2.ID, GameID: 100, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation, "teams differ")

	_, err = f.svc.LinkGame(context.Background(), LinkInput{MatchID: semi2.ID, GameID: 999, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation, "missing game")

	semi1 := detail.Rounds[0][0] // 10 vs 40
	_, err = f.svc.LinkGame(context.Background(), LinkInput{MatchID: semi1.ID, GameID: 101, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation, "game 101 pairs 10 with 30")
}

func TestLinkGameAcceptsEitherOrientation(t *testing.T) {
	f := newFixture(t)
	detail, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	require.NoError(t, err)
	semi2 := detail.Rounds[0][1] // 20 vs 30

	f.svc.games = stubGames{games: map[int64]games.Game{
		200: {ID: 200, DivisionID: 1, HomeTeamID: 30, AwayTeamID: 20, Status: games.StatusScheduled},
	}}
	match, err := f.svc.LinkGame(context.Background(), LinkInput{MatchID: semi2.ID, GameID: 200, ActorID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(200), match.GameID)
}

func TestDeleteAllowsRedraw(t *testing.T) {
	f := newFixture(t)
	detail, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), detail.Bracket.ID, 3))
	_, err = f.svc.ByDivision(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Generate(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	require.NoError(t, err)
}

func TestGenerateRefusesWhileLocked(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.locks = shared.NewMutex(client, time.Minute)

	require.NoError(t, f.svc.locks.Acquire(context.Background(), shared.BracketLockKey(1)))
	_, err := f.svc.Generate(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}
