package games

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/teams"
	"github.com/openleague/openleague/internal/users"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context, f Filter) ([]Game, error)
	Get(ctx context.Context, id int64) (Game, error)
	Create(ctx context.Context, g Game) (Game, error)
	CreateBatch(ctx context.Context, gs []Game) error
	Reschedule(ctx context.Context, id int64, at time.Time, location string) (Game, error)
	SetStatus(ctx context.Context, id int64, status Status) (Game, error)
	SetScore(ctx context.Context, id int64, home, away int, status Status) (Game, error)
	CountByDivision(ctx context.Context, divisionID int64) (int, error)
	Delete(ctx context.Context, id int64) error
	Assignments(ctx context.Context, gameID int64) ([]Assignment, error)
	Assign(ctx context.Context, gameID, userID int64, position string) error
	Unassign(ctx context.Context, gameID, userID int64) error
	DueForReminder(ctx context.Context, from, to time.Time) ([]Game, error)
	MarkReminded(ctx context.Context, id int64) error
}

// TeamsPort exposes required team integration.
type TeamsPort interface {
	Get(ctx context.Context, id int64) (teams.Team, error)
	ListByDivision(ctx context.Context, divisionID int64, status teams.Status) ([]teams.Team, error)
}

// DivisionsPort exposes required division integration.
type DivisionsPort interface {
	Get(ctx context.Context, id int64) (divisions.Division, error)
}

// SeasonsPort exposes required season integration.
type SeasonsPort interface {
	Get(ctx context.Context, id int64) (seasons.Season, error)
}

// UsersPort exposes required account lookups.
type UsersPort interface {
	Get(ctx context.Context, id int64) (users.User, error)
}

// StandingsPort invalidates cached standings after results change.
type StandingsPort interface {
	Invalidate(ctx context.Context, divisionID int64) error
}

// AuditPort reused from shared. List feeds the score history endpoint.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
	List(ctx context.Context, entity, entityID string) ([]shared.AuditLog, error)
}

// Service orchestrates fixtures, referee assignments, and scores.
type Service struct {
	repo        RepositoryPort
	teams       TeamsPort
	divisions   DivisionsPort
	seasons     SeasonsPort
	users       UsersPort
	standings   StandingsPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	locks       *shared.Mutex
}

// NewService constructs the service.
func NewService(repo RepositoryPort, teamsPort TeamsPort, divisionsPort DivisionsPort, seasonsPort SeasonsPort, usersPort UsersPort, standings StandingsPort, audit AuditPort, idem *shared.IdempotencyStore, locks *shared.Mutex) *Service {
	return &Service{
		repo:        repo,
		teams:       teamsPort,
		divisions:   divisionsPort,
		seasons:     seasonsPort,
		users:       usersPort,
		standings:   standings,
		audit:       audit,
		idempotency: idem,
		locks:       locks,
	}
}

// List returns games matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]Game, error) {
	return s.repo.List(ctx, f)
}

// ListWeek returns a division's games inside one season week.
func (s *Service) ListWeek(ctx context.Context, divisionID int64, weekNumber int) ([]Game, error) {
	division, err := s.divisions.Get(ctx, divisionID)
	if err != nil {
		return nil, err
	}
	season, err := s.seasons.Get(ctx, division.SeasonID)
	if err != nil {
		return nil, err
	}
	weeks := season.Weeks()
	if weekNumber < 1 || weekNumber > len(weeks) {
		return nil, fmt.Errorf("%w: season has %d weeks", httpx.ErrValidation, len(weeks))
	}
	week := weeks[weekNumber-1]
	return s.repo.List(ctx, Filter{DivisionID: divisionID, From: week.Start, To: week.End})
}

// Get fetches one game.
func (s *Service) Get(ctx context.Context, id int64) (Game, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput describes a manually scheduled fixture.
type CreateInput struct {
	DivisionID  int64
	HomeTeamID  int64
	AwayTeamID  int64
	ScheduledAt time.Time
	Location    string
	ActorID     int64
}

// Create schedules a fixture between two approved teams of one division.
func (s *Service) Create(ctx context.Context, input CreateInput) (Game, error) {
	if input.HomeTeamID == input.AwayTeamID {
		return Game{}, fmt.Errorf("%w: a team cannot play itself", httpx.ErrValidation)
	}
	if input.ScheduledAt.IsZero() {
		return Game{}, fmt.Errorf("%w: scheduled_at required", httpx.ErrValidation)
	}
	for _, teamID := range []int64{input.HomeTeamID, input.AwayTeamID} {
		team, err := s.teams.Get(ctx, teamID)
		if err != nil {
			if errors.Is(err, teams.ErrNotFound) {
				return Game{}, fmt.Errorf("%w: team %d not found", httpx.ErrValidation, teamID)
			}
			return Game{}, err
		}
		if team.DivisionID != input.DivisionID {
			return Game{}, fmt.Errorf("%w: team %s is not in this division", httpx.ErrValidation, team.Name)
		}
		if team.Status != teams.StatusApproved {
			return Game{}, fmt.Errorf("%w: team %s is not approved", httpx.ErrValidation, team.Name)
		}
	}
	game, err := s.repo.Create(ctx, Game{
		DivisionID:  input.DivisionID,
		HomeTeamID:  input.HomeTeamID,
		AwayTeamID:  input.AwayTeamID,
		ScheduledAt: input.ScheduledAt,
		Location:    strings.TrimSpace(input.Location),
		Status:      StatusScheduled,
	})
	if err != nil {
		return Game{}, err
	}
	s.recordAudit(ctx, input.ActorID, "game.create", game.ID, map[string]any{
		"home_team_id": game.HomeTeamID,
		"away_team_id": game.AwayTeamID,
	})
	return game, nil
}

// Reschedule moves a fixture to a new time or venue. Postponed games move
// back to scheduled.
func (s *Service) Reschedule(ctx context.Context, id int64, at time.Time, location string, actorID int64) (Game, error) {
	game, err := s.repo.Get(ctx, id)
	if err != nil {
		return Game{}, err
	}
	if game.Status != StatusScheduled && game.Status != StatusPostponed {
		return Game{}, fmt.Errorf("%w: only scheduled or postponed games can move", httpx.ErrValidation)
	}
	if at.IsZero() {
		return Game{}, fmt.Errorf("%w: scheduled_at required", httpx.ErrValidation)
	}
	game, err = s.repo.Reschedule(ctx, id, at, strings.TrimSpace(location))
	if err != nil {
		return Game{}, err
	}
	if game.Status == StatusPostponed {
		game, err = s.repo.SetStatus(ctx, id, StatusScheduled)
		if err != nil {
			return Game{}, err
		}
	}
	s.recordAudit(ctx, actorID, "game.reschedule", id, map[string]any{"scheduled_at": at})
	return game, nil
}

// Transition applies a status change after validating the move.
func (s *Service) Transition(ctx context.Context, id int64, target Status, actorID int64) (Game, error) {
	if !target.Valid() {
		return Game{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, target)
	}
	game, err := s.repo.Get(ctx, id)
	if err != nil {
		return Game{}, err
	}
	if err := ValidateTransition(game.Status, target); err != nil {
		return Game{}, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	if game.Status == target {
		return game, nil
	}
	game, err = s.repo.SetStatus(ctx, id, target)
	if err != nil {
		return Game{}, err
	}
	s.recordAudit(ctx, actorID, "game.status", id, map[string]any{"status": string(target)})
	return game, nil
}

// Assignments lists a game's referee postings.
func (s *Service) Assignments(ctx context.Context, gameID int64) ([]Assignment, error) {
	if _, err := s.repo.Get(ctx, gameID); err != nil {
		return nil, err
	}
	return s.repo.Assignments(ctx, gameID)
}

// Assign posts a referee to a game.
func (s *Service) Assign(ctx context.Context, gameID, userID int64, position string, actorID int64) error {
	if _, err := s.repo.Get(ctx, gameID); err != nil {
		return err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return fmt.Errorf("%w: user %d not found", httpx.ErrValidation, userID)
		}
		return err
	}
	if user.Role != authz.RoleReferee {
		return fmt.Errorf("%w: %s is not a referee", httpx.ErrValidation, user.Name)
	}
	position = strings.TrimSpace(position)
	if position == "" {
		position = "referee"
	}
	if err := s.repo.Assign(ctx, gameID, userID, position); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "game.assign", gameID, map[string]any{"user_id": userID, "position": position})
	return nil
}

// Unassign removes a referee posting.
func (s *Service) Unassign(ctx context.Context, gameID, userID, actorID int64) error {
	if err := s.repo.Unassign(ctx, gameID, userID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "game.unassign", gameID, map[string]any{"user_id": userID})
	return nil
}

// SubmitScoreInput describes a score submission.
type SubmitScoreInput struct {
	GameID         int64
	HomeScore      int
	AwayScore      int
	IdempotencyKey string
	ActorID        int64
}

// SubmitScore records a final score and moves the game to final. Replays of
// the same idempotency key return the stored result without re-applying.
// Staff may resubmit against a final game to correct a score; the audit
// trail keeps every submission.
func (s *Service) SubmitScore(ctx context.Context, input SubmitScoreInput) (Game, error) {
	if input.HomeScore < 0 || input.AwayScore < 0 {
		return Game{}, fmt.Errorf("%w: scores cannot be negative", httpx.ErrValidation)
	}
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "game-score"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return s.repo.Get(ctx, input.GameID)
			}
			return Game{}, err
		}
	}
	game, err := s.repo.Get(ctx, input.GameID)
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Game{}, err
	}
	if err := ValidateTransition(game.Status, StatusFinal); err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Game{}, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	prevHome, prevAway := game.HomeScore, game.AwayScore
	game, err = s.repo.SetScore(ctx, input.GameID, input.HomeScore, input.AwayScore, StatusFinal)
	if err != nil {
		s.releaseKey(ctx, input.IdempotencyKey)
		return Game{}, err
	}
	s.recordAudit(ctx, input.ActorID, "game.score", game.ID, map[string]any{
		"home_score":      game.HomeScore,
		"away_score":      game.AwayScore,
		"prev_home_score": prevHome,
		"prev_away_score": prevAway,
	})
	if s.standings != nil {
		_ = s.standings.Invalidate(ctx, game.DivisionID)
	}
	return game, nil
}

// ScoreHistory returns the audited score submissions for a game, oldest
// first.
func (s *Service) ScoreHistory(ctx context.Context, gameID int64) ([]shared.AuditLog, error) {
	if _, err := s.repo.Get(ctx, gameID); err != nil {
		return nil, err
	}
	entries, err := s.audit.List(ctx, "game", strconv.FormatInt(gameID, 10))
	if err != nil {
		return nil, err
	}
	var scores []shared.AuditLog
	for _, e := range entries {
		if e.Action == "game.score" {
			scores = append(scores, e)
		}
	}
	return scores, nil
}

// GenerateInput describes a schedule generation request.
type GenerateInput struct {
	DivisionID int64
	Location   string
	ActorID    int64
}

// defaultKickoff offsets game times from the start of their week.
const defaultKickoff = 18 * time.Hour

// GenerateSchedule builds a full round-robin for a division's approved
// teams across the season's weeks. Refuses when games already exist or the
// season is too short. The Redis lock keeps concurrent generations out.
func (s *Service) GenerateSchedule(ctx context.Context, input GenerateInput) (int, error) {
	if err := s.locks.Acquire(ctx, shared.ScheduleLockKey(input.DivisionID)); err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return 0, fmt.Errorf("%w: schedule generation already running", httpx.ErrDuplicate)
		}
		return 0, err
	}
	defer func() { _ = s.locks.Release(ctx, shared.ScheduleLockKey(input.DivisionID)) }()

	division, err := s.divisions.Get(ctx, input.DivisionID)
	if err != nil {
		return 0, err
	}
	season, err := s.seasons.Get(ctx, division.SeasonID)
	if err != nil {
		return 0, err
	}
	approved, err := s.teams.ListByDivision(ctx, input.DivisionID, teams.StatusApproved)
	if err != nil {
		return 0, err
	}
	if len(approved) < 2 {
		return 0, fmt.Errorf("%w: at least two approved teams required", httpx.ErrValidation)
	}
	existing, err := s.repo.CountByDivision(ctx, input.DivisionID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, fmt.Errorf("%w: division already has games", httpx.ErrValidation)
	}
	weeks := season.Weeks()
	if needed := WeeksNeeded(len(approved)); len(weeks) < needed {
		return 0, fmt.Errorf("%w: need %d weeks, season has %d", httpx.ErrValidation, needed, len(weeks))
	}

	ids := make([]int64, 0, len(approved))
	for _, team := range approved {
		ids = append(ids, team.ID)
	}
	pairings := RoundRobin(ids)
	batch := make([]Game, 0, len(pairings))
	for _, p := range pairings {
		week := weeks[p.Week-1]
		batch = append(batch, Game{
			DivisionID:  input.DivisionID,
			HomeTeamID:  p.HomeTeamID,
			AwayTeamID:  p.AwayTeamID,
			ScheduledAt: week.Start.Add(defaultKickoff),
			Location:    strings.TrimSpace(input.Location),
			Status:      StatusScheduled,
		})
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return 0, err
	}
	s.recordAudit(ctx, input.ActorID, "game.schedule_generate", input.DivisionID, map[string]any{"games": len(batch)})
	return len(batch), nil
}

// DueForReminder lists scheduled games starting inside the window that have
// not been reminded yet.
func (s *Service) DueForReminder(ctx context.Context, from, to time.Time) ([]Game, error) {
	return s.repo.DueForReminder(ctx, from, to)
}

// MarkReminded flags a game so the reminder sweep skips it next run.
func (s *Service) MarkReminded(ctx context.Context, id int64) error {
	return s.repo.MarkReminded(ctx, id)
}

// releaseKey rolls back an idempotency reservation after a failed apply so
// the client can retry with the same key.
func (s *Service) releaseKey(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	_ = s.idempotency.Delete(ctx, key)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, refID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entity := "game"
	if action == "game.schedule_generate" {
		entity = "division"
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(refID, 10),
		Meta:     meta,
	})
}
