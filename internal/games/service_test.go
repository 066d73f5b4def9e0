package games

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/teams"
	"github.com/openleague/openleague/internal/users"
)

type mockRepository struct {
	games       map[int64]Game
	assignments map[int64][]Assignment
	reminded    map[int64]bool
	nextID      int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		games:       make(map[int64]Game),
		assignments: make(map[int64][]Assignment),
		reminded:    make(map[int64]bool),
		nextID:      1,
	}
}

func (m *mockRepository) List(ctx context.Context, f Filter) ([]Game, error) {
	var out []Game
	for id := int64(1); id < m.nextID; id++ {
		g, ok := m.games[id]
		if !ok {
			continue
		}
		if f.DivisionID > 0 && g.DivisionID != f.DivisionID {
			continue
		}
		if f.TeamID > 0 && g.HomeTeamID != f.TeamID && g.AwayTeamID != f.TeamID {
			continue
		}
		if f.Status != "" && g.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && g.ScheduledAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !g.ScheduledAt.Before(f.To) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (Game, error) {
	g, ok := m.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	return g, nil
}

func (m *mockRepository) Create(ctx context.Context, g Game) (Game, error) {
	g.ID = m.nextID
	m.games[g.ID] = g
	m.nextID++
	return g, nil
}

func (m *mockRepository) CreateBatch(ctx context.Context, gs []Game) error {
	for _, g := range gs {
		if _, err := m.Create(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockRepository) Reschedule(ctx context.Context, id int64, at time.Time, location string) (Game, error) {
	g, ok := m.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	g.ScheduledAt = at
	g.Location = location
	m.games[id] = g
	return g, nil
}

func (m *mockRepository) SetStatus(ctx context.Context, id int64, status Status) (Game, error) {
	g, ok := m.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	g.Status = status
	m.games[id] = g
	return g, nil
}

func (m *mockRepository) SetScore(ctx context.Context, id int64, home, away int, status Status) (Game, error) {
	g, ok := m.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	g.HomeScore = home
	g.AwayScore = away
	g.Status = status
	m.games[id] = g
	return g, nil
}

func (m *mockRepository) CountByDivision(ctx context.Context, divisionID int64) (int, error) {
	n := 0
	for _, g := range m.games {
		if g.DivisionID == divisionID {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.games[id]; !ok {
		return ErrNotFound
	}
	delete(m.games, id)
	return nil
}

func (m *mockRepository) Assignments(ctx context.Context, gameID int64) ([]Assignment, error) {
	return m.assignments[gameID], nil
}

func (m *mockRepository) Assign(ctx context.Context, gameID, userID int64, position string) error {
	for _, a := range m.assignments[gameID] {
		if a.UserID == userID {
			return httpx.ErrDuplicate
		}
	}
	m.assignments[gameID] = append(m.assignments[gameID], Assignment{GameID: gameID, UserID: userID, Position: position})
	return nil
}

func (m *mockRepository) Unassign(ctx context.Context, gameID, userID int64) error {
	list := m.assignments[gameID]
	for i, a := range list {
		if a.UserID == userID {
			m.assignments[gameID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrAssignmentNotFound
}

func (m *mockRepository) DueForReminder(ctx context.Context, from, to time.Time) ([]Game, error) {
	var out []Game
	for id := int64(1); id < m.nextID; id++ {
		g, ok := m.games[id]
		if !ok || g.Status != StatusScheduled || m.reminded[id] {
			continue
		}
		if g.ScheduledAt.Before(from) || !g.ScheduledAt.Before(to) {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (m *mockRepository) MarkReminded(ctx context.Context, id int64) error {
	m.reminded[id] = true
	return nil
}

type stubTeams struct {
	teams map[int64]teams.Team
}

func (s stubTeams) Get(ctx context.Context, id int64) (teams.Team, error) {
	t, ok := s.teams[id]
	if !ok {
		return teams.Team{}, teams.ErrNotFound
	}
	return t, nil
}

func (s stubTeams) ListByDivision(ctx context.Context, divisionID int64, status teams.Status) ([]teams.Team, error) {
	var out []teams.Team
	for id := int64(1); id <= int64(len(s.teams)); id++ {
		t, ok := s.teams[id]
		if !ok || t.DivisionID != divisionID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type stubDivisions struct {
	divisions map[int64]divisions.Division
}

func (s stubDivisions) Get(ctx context.Context, id int64) (divisions.Division, error) {
	d, ok := s.divisions[id]
	if !ok {
		return divisions.Division{}, divisions.ErrNotFound
	}
	return d, nil
}

type stubSeasons struct {
	seasons map[int64]seasons.Season
}

func (s stubSeasons) Get(ctx context.Context, id int64) (seasons.Season, error) {
	season, ok := s.seasons[id]
	if !ok {
		return seasons.Season{}, seasons.ErrNotFound
	}
	return season, nil
}

type stubUsers struct {
	accounts map[int64]users.User
}

func (s stubUsers) Get(ctx context.Context, id int64) (users.User, error) {
	u, ok := s.accounts[id]
	if !ok {
		return users.User{}, httpx.ErrNotFound
	}
	return u, nil
}

type recordingStandings struct {
	invalidated []int64
}

func (r *recordingStandings) Invalidate(ctx context.Context, divisionID int64) error {
	r.invalidated = append(r.invalidated, divisionID)
	return nil
}

type recordingAudit struct {
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func (a *recordingAudit) List(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error) {
	var out []shared.AuditLog
	for _, e := range a.entries {
		if e.Entity == entity && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fixture struct {
	repo      *mockRepository
	audit     *recordingAudit
	standings *recordingStandings
	season    seasons.Season
	svc       *Service
}

// seasonStart is a Monday; the fixture season spans six full weeks.
var seasonStart = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

// newFixture wires division 1 (season 10) with four approved teams and one
// pending team, plus a referee and a player account.
func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := newMockRepository()
	audit := &recordingAudit{}
	standings := &recordingStandings{}
	season := seasons.Season{
		ID:        10,
		LeagueID:  1,
		Status:    seasons.StatusActive,
		StartDate: seasonStart,
		EndDate:   seasonStart.AddDate(0, 0, 42),
	}
	teamsPort := stubTeams{teams: map[int64]teams.Team{
		1: {ID: 1, DivisionID: 1, Name: "Thunder", Status: teams.StatusApproved},
		2: {ID: 2, DivisionID: 1, Name: "Lightning", Status: teams.StatusApproved},
		3: {ID: 3, DivisionID: 1, Name: "Storm", Status: teams.StatusApproved},
		4: {ID: 4, DivisionID: 1, Name: "Cyclone", Status: teams.StatusApproved},
		5: {ID: 5, DivisionID: 1, Name: "Drizzle", Status: teams.StatusPending},
		6: {ID: 6, DivisionID: 2, Name: "Outsiders", Status: teams.StatusApproved},
	}}
	divisionsPort := stubDivisions{divisions: map[int64]divisions.Division{
		1: {ID: 1, SeasonID: 10, Name: "East", MaxTeams: 8},
	}}
	seasonsPort := stubSeasons{seasons: map[int64]seasons.Season{10: season}}
	usersPort := stubUsers{accounts: map[int64]users.User{
		20: {ID: 20, Name: "Riley", Role: authz.RoleReferee},
		21: {ID: 21, Name: "Pat", Role: authz.RolePlayer},
	}}
	svc := NewService(repo, teamsPort, divisionsPort, seasonsPort, usersPort, standings, audit, nil, nil)
	return fixture{repo: repo, audit: audit, standings: standings, season: season, svc: svc}
}

func (f fixture) seed(t *testing.T, g Game) Game {
	t.Helper()
	if g.Status == "" {
		g.Status = StatusScheduled
	}
	if g.ScheduledAt.IsZero() {
		g.ScheduledAt = seasonStart.Add(18 * time.Hour)
	}
	created, err := f.repo.Create(context.Background(), g)
	require.NoError(t, err)
	return created
}

func TestCreateGameValidatesTeams(t *testing.T) {
	f := newFixture(t)
	at := seasonStart.Add(18 * time.Hour)

	_, err := f.svc.Create(context.Background(), CreateInput{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 1, ScheduledAt: at})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.Create(context.Background(), CreateInput{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 6, ScheduledAt: at})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.Create(context.Background(), CreateInput{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 5, ScheduledAt: at})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	game, err := f.svc.Create(context.Background(), CreateInput{
		DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2, ScheduledAt: at, Location: " Field A ", ActorID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, game.Status)
	assert.Equal(t, "Field A", game.Location)
	require.NotEmpty(t, f.audit.entries)
	assert.Equal(t, "game.create", f.audit.entries[0].Action)
}

func TestSubmitScoreFinalizesGame(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t, Game{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2})

	got, err := f.svc.SubmitScore(context.Background(), SubmitScoreInput{
		GameID: game.ID, HomeScore: 3, AwayScore: 1, ActorID: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFinal, got.Status)
	assert.Equal(t, 3, got.HomeScore)
	assert.Equal(t, 1, got.AwayScore)
	assert.Equal(t, []int64{1}, f.standings.invalidated)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "game.score", f.audit.entries[0].Action)
}

func TestSubmitScoreAllowsCorrections(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t, Game{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2})

	_, err := f.svc.SubmitScore(context.Background(), SubmitScoreInput{GameID: game.ID, HomeScore: 3, AwayScore: 1, ActorID: 20})
	require.NoError(t, err)

	got, err := f.svc.SubmitScore(context.Background(), SubmitScoreInput{GameID: game.ID, HomeScore: 3, AwayScore: 2, ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, got.AwayScore)

	history, err := f.svc.ScoreHistory(context.Background(), game.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[1].Meta["prev_away_score"])

	assert.Equal(t, []int64{1, 1}, f.standings.invalidated)
}

func TestSubmitScoreRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t, Game{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2})

	_, err := f.svc.SubmitScore(context.Background(), SubmitScoreInput{GameID: game.ID, HomeScore: -1, AwayScore: 0})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	canceled := f.seed(t, Game{DivisionID: 1, HomeTeamID: 3, AwayTeamID: 4, Status: StatusCanceled})
	_, err = f.svc.SubmitScore(context.Background(), SubmitScoreInput{GameID: canceled.ID, HomeScore: 1, AwayScore: 0})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, f.standings.invalidated)
}

func TestTransitionEnforcesStatusMachine(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t, Game{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2})

	got, err := f.svc.Transition(context.Background(), game.ID, StatusInProgress, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)

	_, err = f.svc.Transition(context.Background(), game.ID, StatusScheduled, 3)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.Transition(context.Background(), game.ID, "archived", 3)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRescheduleRevivesPostponedGame(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t, Game{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2, Status: StatusPostponed})

	at := seasonStart.AddDate(0, 0, 14).Add(19 * time.Hour)
	got, err := f.svc.Reschedule(context.Background(), game.ID, at, "Field B", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
	assert.True(t, got.ScheduledAt.Equal(at))

	done := f.seed(t, Game{DivisionID: 1, HomeTeamID: 3, AwayTeamID: 4, Status: StatusFinal})
	_, err = f.svc.Reschedule(context.Background(), done.ID, at, "", 3)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAssignRequiresRefereeRole(t *testing.T) {
	f := newFixture(t)
	game := f.seed(t, Game{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2})

	err := f.svc.Assign(context.Background(), game.ID, 21, "", 3)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	require.NoError(t, f.svc.Assign(context.Background(), game.ID, 20, "", 3))
	list, err := f.svc.Assignments(context.Background(), game.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "referee", list[0].Position)

	require.NoError(t, f.svc.Unassign(context.Background(), game.ID, 20, 3))
	err = f.svc.Unassign(context.Background(), game.ID, 20, 3)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestGenerateScheduleBuildsFullRoundRobin(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.GenerateSchedule(context.Background(), GenerateInput{DivisionID: 1, Location: "Main Park", ActorID: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, created)

	games, err := f.svc.List(context.Background(), Filter{DivisionID: 1})
	require.NoError(t, err)
	require.Len(t, games, 6)
	weeks := f.season.Weeks()
	for _, g := range games {
		assert.Equal(t, StatusScheduled, g.Status)
		assert.Equal(t, "Main Park", g.Location)
		assert.False(t, g.ScheduledAt.Before(weeks[0].Start))
		assert.True(t, g.ScheduledAt.Before(weeks[len(weeks)-1].End))
		assert.NotEqual(t, int64(5), g.HomeTeamID, "pending team scheduled")
		assert.NotEqual(t, int64(5), g.AwayTeamID, "pending team scheduled")
	}

	// A second run refuses instead of doubling the fixtures.
	_, err = f.svc.GenerateSchedule(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGenerateScheduleRequiresEnoughWeeks(t *testing.T) {
	f := newFixture(t)
	short := seasons.Season{
		ID: 10, LeagueID: 1, Status: seasons.StatusActive,
		StartDate: seasonStart, EndDate: seasonStart.AddDate(0, 0, 7),
	}
	f.svc.seasons = stubSeasons{seasons: map[int64]seasons.Season{10: short}}

	_, err := f.svc.GenerateSchedule(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGenerateScheduleRefusesWhileLocked(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.locks = shared.NewMutex(client, time.Minute)

	require.NoError(t, f.svc.locks.Acquire(context.Background(), shared.ScheduleLockKey(1)))
	_, err := f.svc.GenerateSchedule(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	// Released locks let generation proceed.
	require.NoError(t, f.svc.locks.Release(context.Background(), shared.ScheduleLockKey(1)))
	created, err := f.svc.GenerateSchedule(context.Background(), GenerateInput{DivisionID: 1, ActorID: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, created)
}

func TestListWeekUsesSeasonCalendar(t *testing.T) {
	f := newFixture(t)
	first := f.seed(t, Game{DivisionID: 1, HomeTeamID: 1, AwayTeamID: 2, ScheduledAt: seasonStart.Add(18 * time.Hour)})
	f.seed(t, Game{DivisionID: 1, HomeTeamID: 3, AwayTeamID: 4, ScheduledAt: seasonStart.AddDate(0, 0, 9)})

	games, err := f.svc.ListWeek(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, first.ID, games[0].ID)

	games, err = f.svc.ListWeek(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, games, 1)

	_, err = f.svc.ListWeek(context.Background(), 1, 0)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = f.svc.ListWeek(context.Background(), 1, 7)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}
