package seasons

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListByLeague(ctx context.Context, leagueID int64) ([]Season, error)
	Get(ctx context.Context, id int64) (Season, error)
	Create(ctx context.Context, season Season) (Season, error)
	Update(ctx context.Context, season Season) (Season, error)
	SetStatus(ctx context.Context, id int64, status Status) (Season, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates season administration.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListByLeague returns the league's seasons.
func (s *Service) ListByLeague(ctx context.Context, leagueID int64) ([]Season, error) {
	return s.repo.ListByLeague(ctx, leagueID)
}

// Get fetches one season.
func (s *Service) Get(ctx context.Context, id int64) (Season, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput describes season creation payload.
type CreateInput struct {
	LeagueID             int64
	Name                 string
	StartDate            time.Time
	EndDate              time.Time
	RegistrationDeadline time.Time
	ActorID              int64
}

func validateDates(start, end, deadline time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates required", httpx.ErrValidation)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end date must fall after start date", httpx.ErrValidation)
	}
	if !deadline.IsZero() && deadline.After(start) {
		return fmt.Errorf("%w: registration deadline must not pass the start date", httpx.ErrValidation)
	}
	return nil
}

// Create validates and stores a new draft season.
func (s *Service) Create(ctx context.Context, input CreateInput) (Season, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Season{}, fmt.Errorf("%w: season name required", httpx.ErrValidation)
	}
	if input.LeagueID <= 0 {
		return Season{}, fmt.Errorf("%w: league required", httpx.ErrValidation)
	}
	if err := validateDates(input.StartDate, input.EndDate, input.RegistrationDeadline); err != nil {
		return Season{}, err
	}
	season, err := s.repo.Create(ctx, Season{
		LeagueID:             input.LeagueID,
		Name:                 name,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
	})
	if err != nil {
		return Season{}, err
	}
	s.recordAudit(ctx, input.ActorID, "season.create", season.ID, nil)
	return season, nil
}

// UpdateInput describes season update payload.
type UpdateInput struct {
	ID                   int64
	Name                 string
	StartDate            time.Time
	EndDate              time.Time
	RegistrationDeadline time.Time
	ActorID              int64
}

// Update rewrites dates and name. Only draft and registration seasons may be
// rescheduled.
func (s *Service) Update(ctx context.Context, input UpdateInput) (Season, error) {
	current, err := s.repo.Get(ctx, input.ID)
	if err != nil {
		return Season{}, err
	}
	if current.Status != StatusDraft && current.Status != StatusRegistration {
		return Season{}, fmt.Errorf("%w: season already started", httpx.ErrValidation)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Season{}, fmt.Errorf("%w: season name required", httpx.ErrValidation)
	}
	if err := validateDates(input.StartDate, input.EndDate, input.RegistrationDeadline); err != nil {
		return Season{}, err
	}
	season, err := s.repo.Update(ctx, Season{
		ID:                   input.ID,
		Name:                 name,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
	})
	if err != nil {
		return Season{}, err
	}
	s.recordAudit(ctx, input.ActorID, "season.update", season.ID, nil)
	return season, nil
}

// Transition moves the season through its lifecycle.
func (s *Service) Transition(ctx context.Context, id int64, target Status, override bool, actorID int64) (Season, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Season{}, err
	}
	if err := ValidateTransition(current.Status, target, override); err != nil {
		return Season{}, err
	}
	if current.Status == target {
		return current, nil
	}
	season, err := s.repo.SetStatus(ctx, id, target)
	if err != nil {
		return Season{}, err
	}
	s.recordAudit(ctx, actorID, "season.transition", season.ID, map[string]any{
		"from":     string(current.Status),
		"to":       string(target),
		"override": override,
	})
	return season, nil
}

// Weeks returns the season's scheduling blocks.
func (s *Service) Weeks(ctx context.Context, id int64) (Season, []Week, error) {
	season, err := s.repo.Get(ctx, id)
	if err != nil {
		return Season{}, nil, err
	}
	return season, season.Weeks(), nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, seasonID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "season",
		EntityID: strconv.FormatInt(seasonID, 10),
		Meta:     meta,
	})
}
