package standings

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/teams"
)

// GamesPort supplies final results.
type GamesPort interface {
	List(ctx context.Context, f games.Filter) ([]games.Game, error)
}

// TeamsPort supplies the division's approved teams.
type TeamsPort interface {
	ListByDivision(ctx context.Context, divisionID int64, status teams.Status) ([]teams.Team, error)
}

// DivisionsPort confirms the division exists.
type DivisionsPort interface {
	Get(ctx context.Context, id int64) (divisions.Division, error)
}

// Service computes and caches division standings. Concurrent cache misses
// for the same division collapse into a single rebuild.
type Service struct {
	games     GamesPort
	teams     TeamsPort
	divisions DivisionsPort
	cache     *Cache
	group     singleflight.Group
}

var _ games.StandingsPort = (*Service)(nil)

// NewService constructs the service.
func NewService(gamesPort GamesPort, teamsPort TeamsPort, divisionsPort DivisionsPort, cache *Cache) *Service {
	return &Service{games: gamesPort, teams: teamsPort, divisions: divisionsPort, cache: cache}
}

// Table returns a division's standings, serving from cache when fresh.
func (s *Service) Table(ctx context.Context, divisionID int64) (Table, error) {
	if _, err := s.divisions.Get(ctx, divisionID); err != nil {
		return Table{}, err
	}
	key, err := s.cache.BuildKey(ctx, divisionID)
	if err != nil {
		return Table{}, err
	}
	resultChan := s.group.DoChan(key, func() (any, error) {
		var table Table
		err := s.cache.FetchJSON(ctx, key, &table, func(ctx context.Context) (any, error) {
			return s.build(ctx, divisionID)
		})
		return table, err
	})
	select {
	case <-ctx.Done():
		return Table{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Table{}, res.Err
		}
		return res.Val.(Table), nil
	}
}

// Invalidate bumps the division's cache version after results change.
func (s *Service) Invalidate(ctx context.Context, divisionID int64) error {
	return s.cache.Bump(ctx, divisionID)
}

// Refresh drops the division's cached table and rebuilds it, so the next
// read is served warm.
func (s *Service) Refresh(ctx context.Context, divisionID int64) error {
	if err := s.cache.Bump(ctx, divisionID); err != nil {
		return err
	}
	_, err := s.Table(ctx, divisionID)
	return err
}

// ListenForInvalidation relays cache bumps between instances.
func (s *Service) ListenForInvalidation(ctx context.Context) error {
	return s.cache.ListenForInvalidation(ctx, "")
}

func (s *Service) build(ctx context.Context, divisionID int64) (Table, error) {
	approved, err := s.teams.ListByDivision(ctx, divisionID, teams.StatusApproved)
	if err != nil {
		return Table{}, err
	}
	finals, err := s.games.List(ctx, games.Filter{DivisionID: divisionID, Status: games.StatusFinal})
	if err != nil {
		return Table{}, err
	}
	return Table{
		DivisionID: divisionID,
		Standings:  Compute(finals, approved),
		ComputedAt: time.Now().UTC(),
	}, nil
}
