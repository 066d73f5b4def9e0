package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/standings"
	"github.com/openleague/openleague/internal/teams"
)

type stubStandings struct {
	table standings.Table
}

func (s *stubStandings) Table(_ context.Context, divisionID int64) (standings.Table, error) {
	return s.table, nil
}

type stubGames struct {
	list []games.Game
}

func (s *stubGames) List(_ context.Context, _ games.Filter) ([]games.Game, error) {
	return s.list, nil
}

type stubTeams struct {
	list []teams.Team
}

func (s *stubTeams) ListByDivision(_ context.Context, _ int64, _ teams.Status) ([]teams.Team, error) {
	return s.list, nil
}

type stubDivisions struct {
	divisions map[int64]divisions.Division
}

func (s *stubDivisions) Get(_ context.Context, id int64) (divisions.Division, error) {
	division, ok := s.divisions[id]
	if !ok {
		return divisions.Division{}, divisions.ErrNotFound
	}
	return division, nil
}

type stubSeasons struct {
	seasons map[int64]seasons.Season
}

func (s *stubSeasons) Get(_ context.Context, id int64) (seasons.Season, error) {
	season, ok := s.seasons[id]
	if !ok {
		return seasons.Season{}, seasons.ErrNotFound
	}
	return season, nil
}

var reportSeason = seasons.Season{
	ID:        10,
	Name:      "Winter 2026",
	StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	EndDate:   time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
}

func newReportFixture(t *testing.T, gotenbergURL string) *Handler {
	t.Helper()
	handler, err := NewHandler(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewClient(gotenbergURL),
		&stubStandings{table: standings.Table{
			DivisionID: 1,
			Standings: []standings.Standing{
				{Rank: 1, TeamID: 2, TeamName: "Thunder", Played: 2, Wins: 2, Points: 6},
				{Rank: 2, TeamID: 3, TeamName: "Lightning", Played: 2, Losses: 2},
			},
		}},
		&stubGames{},
		&stubTeams{},
		&stubDivisions{divisions: map[int64]divisions.Division{
			1: {ID: 1, SeasonID: 10, Name: "Division A", SkillLevel: divisions.SkillRecreational},
		}},
		&stubSeasons{seasons: map[int64]seasons.Season{10: reportSeason}},
		authz.Middleware{},
	)
	require.NoError(t, err)
	return handler
}

func TestStandingsPDFRendersThroughGotenberg(t *testing.T) {
	var rendered string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, _, err := r.FormFile("files")
		require.NoError(t, err)
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		rendered = string(body)
		_, _ = w.Write([]byte("%PDF-fake"))
	}))
	defer srv.Close()

	handler := newReportFixture(t, srv.URL)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/report/standings?division_id=1", nil)
	handler.standingsPDF(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-fake", rr.Body.String())
	assert.Contains(t, rendered, "Thunder")
	assert.Contains(t, rendered, "Division A Standings")
	assert.Contains(t, rendered, "Winter 2026")
	assert.Contains(t, rendered, "Recreational")
}

func TestStandingsPDFValidatesDivision(t *testing.T) {
	handler := newReportFixture(t, "http://gotenberg.invalid")

	rr := httptest.NewRecorder()
	handler.standingsPDF(rr, httptest.NewRequest(http.MethodGet, "/report/standings", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	handler.standingsPDF(rr, httptest.NewRequest(http.MethodGet, "/report/standings?division_id=99", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGroupByWeekBucketsGames(t *testing.T) {
	names := map[int64]string{2: "Thunder", 3: "Lightning"}
	schedule := []games.Game{
		{ID: 1, HomeTeamID: 2, AwayTeamID: 3, ScheduledAt: reportSeason.StartDate.Add(18 * time.Hour), Location: "Field A", Status: games.StatusFinal, HomeScore: 3, AwayScore: 1},
		{ID: 2, HomeTeamID: 3, AwayTeamID: 2, ScheduledAt: reportSeason.StartDate.AddDate(0, 0, 8), Location: "Field B", Status: games.StatusScheduled},
		// Rescheduled past the season end; still reported.
		{ID: 3, HomeTeamID: 2, AwayTeamID: 99, ScheduledAt: reportSeason.EndDate.AddDate(0, 0, 3), Location: "Field A", Status: games.StatusScheduled},
	}

	weeks := groupByWeek(reportSeason, schedule, names)
	require.Len(t, weeks, 3)

	assert.Equal(t, 1, weeks[0].Number)
	assert.Equal(t, "Jan 5", weeks[0].Start)
	require.Len(t, weeks[0].Games, 1)
	assert.Equal(t, "Thunder", weeks[0].Games[0].Home)
	assert.Equal(t, "3-1", weeks[0].Games[0].Score)

	assert.Equal(t, 2, weeks[1].Number)
	assert.Empty(t, weeks[1].Games[0].Score)

	assert.Equal(t, 7, weeks[2].Number)
	assert.Equal(t, "Team 99", weeks[2].Games[0].Away)
}
