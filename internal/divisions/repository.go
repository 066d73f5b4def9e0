package divisions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/openleague/internal/platform/httpx"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const divisionColumns = `d.id, d.season_id, d.name, d.skill_level, d.max_teams,
	(SELECT COUNT(*) FROM teams t WHERE t.division_id = d.id AND t.status = 'approved'),
	d.created_at, d.updated_at`

func (r *Repository) ListBySeason(ctx context.Context, seasonID int64) ([]Division, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+divisionColumns+`
		FROM divisions d
		WHERE d.season_id = $1
		ORDER BY d.name`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	defer rows.Close()

	var out []Division
	for rows.Next() {
		d, err := scanDivision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ActiveIDs lists division ids whose season is currently active. The
// standings refresh sweep uses it to bound its fan-out.
func (r *Repository) ActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id
		FROM divisions d
		JOIN seasons s ON s.id = d.season_id
		WHERE s.status = 'active'
		ORDER BY d.id`)
	if err != nil {
		return nil, fmt.Errorf("list active divisions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan division id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Division, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+divisionColumns+`
		FROM divisions d
		WHERE d.id = $1`, id)
	d, err := scanDivision(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Division{}, ErrNotFound
	}
	return d, err
}

func (r *Repository) Create(ctx context.Context, d Division) (Division, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO divisions (season_id, name, skill_level, max_teams)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		d.SeasonID, d.Name, d.SkillLevel, d.MaxTeams)
	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Division{}, httpx.ErrDuplicate
		}
		return Division{}, fmt.Errorf("create division: %w", err)
	}
	return d, nil
}

func (r *Repository) Update(ctx context.Context, d Division) (Division, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE divisions
		SET name = $2, skill_level = $3, max_teams = $4, updated_at = now()
		WHERE id = $1
		RETURNING season_id, created_at, updated_at`, d.ID, d.Name, d.SkillLevel, d.MaxTeams)
	if err := row.Scan(&d.SeasonID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Division{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Division{}, httpx.ErrDuplicate
		}
		return Division{}, fmt.Errorf("update division: %w", err)
	}
	return d, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	var teams int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM teams WHERE division_id = $1`, id).Scan(&teams); err != nil {
		return fmt.Errorf("count division teams: %w", err)
	}
	if teams > 0 {
		return fmt.Errorf("%w: division has teams", httpx.ErrValidation)
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM divisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete division: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDivision(row pgx.Row) (Division, error) {
	var d Division
	err := row.Scan(&d.ID, &d.SeasonID, &d.Name, &d.SkillLevel, &d.MaxTeams,
		&d.TeamCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Division{}, fmt.Errorf("scan division: %w", err)
	}
	return d, err
}
