package divisions

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/openleague/openleague/internal/platform/httpx"
	"github.com/openleague/openleague/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	ListBySeason(ctx context.Context, seasonID int64) ([]Division, error)
	Get(ctx context.Context, id int64) (Division, error)
	Create(ctx context.Context, d Division) (Division, error)
	Update(ctx context.Context, d Division) (Division, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates division administration.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListBySeason returns the divisions of one season, ordered by name.
func (s *Service) ListBySeason(ctx context.Context, seasonID int64) ([]Division, error) {
	return s.repo.ListBySeason(ctx, seasonID)
}

// Get fetches one division.
func (s *Service) Get(ctx context.Context, id int64) (Division, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput describes division creation payload.
type CreateInput struct {
	SeasonID   int64
	Name       string
	SkillLevel SkillLevel
	MaxTeams   int
	ActorID    int64
}

// Create validates and stores a new division.
func (s *Service) Create(ctx context.Context, input CreateInput) (Division, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Division{}, fmt.Errorf("%w: division name required", httpx.ErrValidation)
	}
	if !input.SkillLevel.Valid() {
		return Division{}, fmt.Errorf("%w: unknown skill level %q", httpx.ErrValidation, input.SkillLevel)
	}
	if input.MaxTeams < 2 {
		return Division{}, fmt.Errorf("%w: max_teams must be at least 2", httpx.ErrValidation)
	}
	division, err := s.repo.Create(ctx, Division{
		SeasonID:   input.SeasonID,
		Name:       name,
		SkillLevel: input.SkillLevel,
		MaxTeams:   input.MaxTeams,
	})
	if err != nil {
		return Division{}, err
	}
	s.recordAudit(ctx, input.ActorID, "division.create", division.ID)
	return division, nil
}

// UpdateInput describes division update payload.
type UpdateInput struct {
	ID         int64
	Name       string
	SkillLevel SkillLevel
	MaxTeams   int
	ActorID    int64
}

// Update rewrites division fields. The team cap may not drop below the
// number of teams already approved into the division.
func (s *Service) Update(ctx context.Context, input UpdateInput) (Division, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Division{}, fmt.Errorf("%w: division name required", httpx.ErrValidation)
	}
	if !input.SkillLevel.Valid() {
		return Division{}, fmt.Errorf("%w: unknown skill level %q", httpx.ErrValidation, input.SkillLevel)
	}
	if input.MaxTeams < 2 {
		return Division{}, fmt.Errorf("%w: max_teams must be at least 2", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, input.ID)
	if err != nil {
		return Division{}, err
	}
	if input.MaxTeams < current.TeamCount {
		return Division{}, fmt.Errorf("%w: max_teams below current team count", httpx.ErrValidation)
	}
	division, err := s.repo.Update(ctx, Division{
		ID:         input.ID,
		Name:       name,
		SkillLevel: input.SkillLevel,
		MaxTeams:   input.MaxTeams,
	})
	if err != nil {
		return Division{}, err
	}
	s.recordAudit(ctx, input.ActorID, "division.update", division.ID)
	return division, nil
}

// Delete removes an empty division.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "division.delete", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, divisionID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "division",
		EntityID: strconv.FormatInt(divisionID, 10),
	})
}
