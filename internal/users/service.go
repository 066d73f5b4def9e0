package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/platform/httpx"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, role authz.Role, limit, offset int) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, email, name, passwordHash string, role authz.Role) (User, error)
	SetRole(ctx context.Context, id int64, role authz.Role) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns one page of users with the total count, optionally narrowed
// to one role.
func (s *Service) List(ctx context.Context, role authz.Role, limit, offset int) ([]User, int, error) {
	if role != "" && !role.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	return s.repo.List(ctx, role, limit, offset)
}

// Get fetches one user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new account with the given role.
func (s *Service) Create(ctx context.Context, email, name, password string, role authz.Role) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, email, strings.TrimSpace(name), string(hashed), role)
}

// ChangeRole assigns a different role to the user. A user holds exactly one
// role; granting another replaces the previous one.
func (s *Service) ChangeRole(ctx context.Context, id int64, role authz.Role) (User, error) {
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
	}
	return s.repo.SetRole(ctx, id, role)
}

// SetActive enables or disables the account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	return s.repo.SetActive(ctx, id, active)
}
