package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the user does not exist or is inactive.
var ErrNotFound = errors.New("authz: user not found")

// Service loads the relationship facts an evaluation Context needs: the
// user's role, active team memberships, and game assignments. Evaluation
// itself stays pure; this is the only place authz touches storage.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// ContextForUser assembles an evaluation Context for the user. The acted-upon
// TeamID/GameID stay zero; route middleware fills them in per request.
func (s *Service) ContextForUser(ctx context.Context, userID int64) (Context, error) {
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM users WHERE id = $1 AND is_active`, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Context{}, ErrNotFound
		}
		return Context{}, err
	}

	teamIDs, err := s.collectIDs(ctx,
		`SELECT team_id FROM team_members WHERE user_id = $1 AND status = 'active' ORDER BY team_id`, userID)
	if err != nil {
		return Context{}, err
	}
	gameIDs, err := s.collectIDs(ctx,
		`SELECT game_id FROM game_assignments WHERE user_id = $1 ORDER BY game_id`, userID)
	if err != nil {
		return Context{}, err
	}

	return Context{
		Role:            ParseRole(role),
		UserTeamIDs:     teamIDs,
		AssignedGameIDs: gameIDs,
	}, nil
}

func (s *Service) collectIDs(ctx context.Context, query string, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
