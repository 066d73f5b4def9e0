package leagues

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/openleague/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leagueColumns = `id, name, sport, description, created_by, created_at, updated_at`

// List returns a page of leagues plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]League, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leagues`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+leagueColumns+` FROM leagues ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var leagues []League
	for rows.Next() {
		league, err := scanLeague(rows)
		if err != nil {
			return nil, 0, err
		}
		leagues = append(leagues, league)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return leagues, total, nil
}

// Get fetches one league.
func (r *Repository) Get(ctx context.Context, id int64) (League, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leagueColumns+` FROM leagues WHERE id=$1`, id)
	league, err := scanLeague(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return League{}, ErrNotFound
		}
		return League{}, err
	}
	return league, nil
}

// Create inserts a league and returns the stored record.
func (r *Repository) Create(ctx context.Context, league League) (League, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO leagues (name, sport, description, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING `+leagueColumns, league.Name, string(league.Sport), league.Description, league.CreatedBy)
	stored, err := scanLeague(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return League{}, httpx.ErrDuplicate
		}
		return League{}, err
	}
	return stored, nil
}

// Update rewrites the mutable fields.
func (r *Repository) Update(ctx context.Context, league League) (League, error) {
	row := r.pool.QueryRow(ctx, `UPDATE leagues SET name=$2, sport=$3, description=$4, updated_at=NOW()
WHERE id=$1 RETURNING `+leagueColumns, league.ID, league.Name, string(league.Sport), league.Description)
	stored, err := scanLeague(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return League{}, ErrNotFound
		}
		return League{}, err
	}
	return stored, nil
}

// Delete removes a league without seasons.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var seasonCount int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seasons WHERE league_id=$1`, id).Scan(&seasonCount); err != nil {
		return err
	}
	if seasonCount > 0 {
		return ErrInUse
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM leagues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLeague(row pgx.Row) (League, error) {
	var league League
	var sport string
	if err := row.Scan(&league.ID, &league.Name, &sport, &league.Description, &league.CreatedBy, &league.CreatedAt, &league.UpdatedAt); err != nil {
		return League{}, err
	}
	league.Sport = Sport(sport)
	return league, nil
}
