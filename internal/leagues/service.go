package leagues

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
	List(ctx context.Context, limit, offset int) ([]League, int, error)
	Get(ctx context.Context, id int64) (League, error)
	Create(ctx context.Context, league League) (League, error)
	Update(ctx context.Context, league League) (League, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates league administration.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns one page of leagues.
func (s *Service) List(ctx context.Context, limit, offset int) ([]League, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Get fetches one league.
func (s *Service) Get(ctx context.Context, id int64) (League, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput describes league creation payload.
type CreateInput struct {
	Name        string
	Sport       Sport
	Description string
	ActorID     int64
}

// Create validates and stores a new league.
func (s *Service) Create(ctx context.Context, input CreateInput) (League, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return League{}, fmt.Errorf("%w: league name required", httpx.ErrValidation)
	}
	if !input.Sport.Valid() {
		return League{}, fmt.Errorf("%w: unknown sport %q", httpx.ErrValidation, input.Sport)
	}
	league, err := s.repo.Create(ctx, League{
		Name:        name,
		Sport:       input.Sport,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   input.ActorID,
	})
	if err != nil {
		return League{}, err
	}
	s.recordAudit(ctx, input.ActorID, "league.create", league.ID)
	return league, nil
}

// UpdateInput describes league update payload.
type UpdateInput struct {
	ID          int64
	Name        string
	Sport       Sport
	Description string
	ActorID     int64
}

// Update rewrites league fields.
func (s *Service) Update(ctx context.Context, input UpdateInput) (League, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return League{}, fmt.Errorf("%w: league name required", httpx.ErrValidation)
	}
	if !input.Sport.Valid() {
		return League{}, fmt.Errorf("%w: unknown sport %q", httpx.ErrValidation, input.Sport)
	}
	league, err := s.repo.Update(ctx, League{
		ID:          input.ID,
		Name:        name,
		Sport:       input.Sport,
		Description: strings.TrimSpace(input.Description),
	})
	if err != nil {
		return League{}, err
	}
	s.recordAudit(ctx, input.ActorID, "league.update", league.ID)
	return league, nil
}

// Delete removes an empty league.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "league.delete", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, leagueID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "league",
		EntityID: strconv.FormatInt(leagueID, 10),
	})
}
