package brackets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/standings"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, b Bracket, matches []Match) (Bracket, []Match, error)
	Get(ctx context.Context, id int64) (Bracket, error)
	ByDivision(ctx context.Context, divisionID int64) (Bracket, error)
	Matches(ctx context.Context, bracketID int64) ([]Match, error)
	Match(ctx context.Context, id int64) (Match, error)
	MatchBySlot(ctx context.Context, bracketID int64, round, slot int) (Match, error)
	UpdateMatchTeams(ctx context.Context, id, homeID, awayID int64) (Match, error)
	SetWinner(ctx context.Context, id, winnerID int64) (Match, error)
	SetGame(ctx context.Context, id, gameID int64) (Match, error)
	SetStatus(ctx context.Context, bracketID int64, status Status) (Bracket, error)
	Delete(ctx context.Context, id int64) error
}

// StandingsPort supplies the seeding order.
type StandingsPort interface {
	Table(ctx context.Context, divisionID int64) (standings.Table, error)
}

// GamesPort validates fixtures linked to bracket matches.
type GamesPort interface {
	Get(ctx context.Context, id int64) (games.Game, error)
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages playoff brackets.
type Service struct {
	repo      RepositoryPort
	standings StandingsPort
	games     GamesPort
	audit     AuditPort
	locks     *shared.Mutex
}

// NewService constructs the service.
func NewService(repo RepositoryPort, standingsPort StandingsPort, gamesPort GamesPort, audit AuditPort, locks *shared.Mutex) *Service {
	return &Service{repo: repo, standings: standingsPort, games: gamesPort, audit: audit, locks: locks}
}

// Detail is a bracket with its matches grouped by round.
type Detail struct {
	Bracket    Bracket   `json:"bracket"`
	Rounds     [][]Match `json:"rounds"`
	ChampionID int64     `json:"champion_id,omitempty"`
}

func newDetail(b Bracket, matches []Match) Detail {
	rounds := make([][]Match, totalRounds(b.Size))
	for _, m := range matches {
		if m.Round >= 1 && m.Round <= len(rounds) {
			rounds[m.Round-1] = append(rounds[m.Round-1], m)
		}
	}
	d := Detail{Bracket: b, Rounds: rounds}
	if n := len(rounds); n > 0 && len(rounds[n-1]) == 1 {
		d.ChampionID = rounds[n-1][0].WinnerID
	}
	return d
}

// GenerateInput describes a bracket generation request.
type GenerateInput struct {
	DivisionID int64
	Name       string
	ActorID    int64
}

// Generate seeds a single-elimination bracket from the division's current
// standings. One bracket per division; delete it to redo the draw.
func (s *Service) Generate(ctx context.Context, input GenerateInput) (Detail, error) {
	if err := s.locks.Acquire(ctx, shared.BracketLockKey(input.DivisionID)); err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return Detail{}, fmt.Errorf("%w: bracket generation already running", httpx.ErrDuplicate)
		}
		return Detail{}, err
	}
	defer func() { _ = s.locks.Release(ctx, shared.BracketLockKey(input.DivisionID)) }()

	if _, err := s.repo.ByDivision(ctx, input.DivisionID); err == nil {
		return Detail{}, fmt.Errorf("%w: division already has a bracket", httpx.ErrValidation)
	} else if !errors.Is(err, ErrNotFound) {
		return Detail{}, err
	}

	table, err := s.standings.Table(ctx, input.DivisionID)
	if err != nil {
		return Detail{}, err
	}
	if len(table.Standings) < 2 {
		return Detail{}, fmt.Errorf("%w: at least two teams required", httpx.ErrValidation)
	}
	seeds := make([]int64, 0, len(table.Standings))
	for _, row := range table.Standings {
		seeds = append(seeds, row.TeamID)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Playoffs"
	}
	bracket, matches, err := s.repo.Create(ctx, Bracket{
		DivisionID: input.DivisionID,
		Name:       name,
		Size:       nextPowerOfTwo(len(seeds)),
		Status:     StatusActive,
	}, BuildMatches(seeds))
	if err != nil {
		return Detail{}, err
	}
	s.recordAudit(ctx, input.ActorID, "bracket.generate", bracket.ID, map[string]any{
		"division_id": input.DivisionID,
		"teams":       len(seeds),
	})
	return newDetail(bracket, matches), nil
}

// Get returns a bracket with its match grid.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	bracket, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	matches, err := s.repo.Matches(ctx, bracket.ID)
	if err != nil {
		return Detail{}, err
	}
	return newDetail(bracket, matches), nil
}

// ByDivision returns the division's bracket.
func (s *Service) ByDivision(ctx context.Context, divisionID int64) (Detail, error) {
	bracket, err := s.repo.ByDivision(ctx, divisionID)
	if err != nil {
		return Detail{}, err
	}
	matches, err := s.repo.Matches(ctx, bracket.ID)
	if err != nil {
		return Detail{}, err
	}
	return newDetail(bracket, matches), nil
}

// AdvanceInput records a match result.
type AdvanceInput struct {
	MatchID  int64
	WinnerID int64
	ActorID  int64
}

// Advance records the winner and moves them into the next round's slot.
// Repeating the same winner is a no-op; changing a decided match is refused.
func (s *Service) Advance(ctx context.Context, input AdvanceInput) (Match, error) {
	match, err := s.repo.Match(ctx, input.MatchID)
	if err != nil {
		return Match{}, err
	}
	if match.HomeTeamID == 0 || match.AwayTeamID == 0 {
		return Match{}, fmt.Errorf("%w: match is waiting on an earlier round", httpx.ErrValidation)
	}
	if input.WinnerID != match.HomeTeamID && input.WinnerID != match.AwayTeamID {
		return Match{}, fmt.Errorf("%w: winner must be one of the match teams", httpx.ErrValidation)
	}
	if match.WinnerID != 0 {
		if match.WinnerID == input.WinnerID {
			return match, nil
		}
		return Match{}, fmt.Errorf("%w: match already decided", httpx.ErrValidation)
	}
	bracket, err := s.repo.Get(ctx, match.BracketID)
	if err != nil {
		return Match{}, err
	}
	match, err = s.repo.SetWinner(ctx, match.ID, input.WinnerID)
	if err != nil {
		return Match{}, err
	}
	if match.Round == totalRounds(bracket.Size) {
		if _, err := s.repo.SetStatus(ctx, bracket.ID, StatusComplete); err != nil {
			return Match{}, err
		}
	} else {
		round, slot := match.NextSlot()
		next, err := s.repo.MatchBySlot(ctx, bracket.ID, round, slot)
		if err != nil {
			return Match{}, err
		}
		home, away := next.HomeTeamID, next.AwayTeamID
		if match.HomeSideNext() {
			home = input.WinnerID
		} else {
			away = input.WinnerID
		}
		if _, err := s.repo.UpdateMatchTeams(ctx, next.ID, home, away); err != nil {
			return Match{}, err
		}
	}
	s.recordAudit(ctx, input.ActorID, "bracket.advance", bracket.ID, map[string]any{
		"match_id":  match.ID,
		"winner_id": input.WinnerID,
	})
	return match, nil
}

// LinkInput ties a scheduled fixture to a bracket match.
type LinkInput struct {
	MatchID int64
	GameID  int64
	ActorID int64
}

// LinkGame attaches a fixture to a match after checking the sides agree.
func (s *Service) LinkGame(ctx context.Context, input LinkInput) (Match, error) {
	match, err := s.repo.Match(ctx, input.MatchID)
	if err != nil {
		return Match{}, err
	}
	if match.HomeTeamID == 0 || match.AwayTeamID == 0 {
		return Match{}, fmt.Errorf("%w: match is waiting on an earlier round", httpx.ErrValidation)
	}
	game, err := s.games.Get(ctx, input.GameID)
	if err != nil {
		if errors.Is(err, games.ErrNotFound) {
			return Match{}, fmt.Errorf("%w: game %d not found", httpx.ErrValidation, input.GameID)
		}
		return Match{}, err
	}
	sameTeams := (game.HomeTeamID == match.HomeTeamID && game.AwayTeamID == match.AwayTeamID) ||
		(game.HomeTeamID == match.AwayTeamID && game.AwayTeamID == match.HomeTeamID)
	if !sameTeams {
		return Match{}, fmt.Errorf("%w: game teams do not match this pairing", httpx.ErrValidation)
	}
	match, err = s.repo.SetGame(ctx, match.ID, game.ID)
	if err != nil {
		return Match{}, err
	}
	s.recordAudit(ctx, input.ActorID, "bracket.link_game", match.BracketID, map[string]any{
		"match_id": match.ID,
		"game_id":  game.ID,
	})
	return match, nil
}

// Delete removes a bracket so the draw can be redone.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	bracket, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, bracket.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "bracket.delete", bracket.ID, map[string]any{
		"division_id": bracket.DivisionID,
	})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, bracketID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "bracket",
		EntityID: strconv.FormatInt(bracketID, 10),
		Meta:     meta,
	})
}
