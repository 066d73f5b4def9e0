package seasons

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const seasonColumns = `id, league_id, name, status, start_date, end_date, registration_deadline, created_at, updated_at`

// ListByLeague returns seasons of one league, newest first.
func (r *Repository) ListByLeague(ctx context.Context, leagueID int64) ([]Season, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+seasonColumns+` FROM seasons WHERE league_id=$1 ORDER BY start_date DESC, id DESC`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeasons(rows)
}

// Get fetches one season.
func (r *Repository) Get(ctx context.Context, id int64) (Season, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+seasonColumns+` FROM seasons WHERE id=$1`, id)
	season, err := scanSeason(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Season{}, ErrNotFound
		}
		return Season{}, err
	}
	return season, nil
}

// Create inserts a season in draft status.
func (r *Repository) Create(ctx context.Context, season Season) (Season, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO seasons (league_id, name, status, start_date, end_date, registration_deadline, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING `+seasonColumns,
		season.LeagueID, season.Name, string(StatusDraft), season.StartDate, season.EndDate, season.RegistrationDeadline)
	return scanSeason(row)
}

// Update rewrites the mutable fields.
func (r *Repository) Update(ctx context.Context, season Season) (Season, error) {
	row := r.pool.QueryRow(ctx, `UPDATE seasons SET name=$2, start_date=$3, end_date=$4, registration_deadline=$5, updated_at=NOW()
WHERE id=$1 RETURNING `+seasonColumns,
		season.ID, season.Name, season.StartDate, season.EndDate, season.RegistrationDeadline)
	stored, err := scanSeason(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Season{}, ErrNotFound
		}
		return Season{}, err
	}
	return stored, nil
}

// SetStatus stores the new lifecycle status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) (Season, error) {
	row := r.pool.QueryRow(ctx, `UPDATE seasons SET status=$2, updated_at=NOW() WHERE id=$1 RETURNING `+seasonColumns, id, string(status))
	stored, err := scanSeason(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Season{}, ErrNotFound
		}
		return Season{}, err
	}
	return stored, nil
}

func collectSeasons(rows pgx.Rows) ([]Season, error) {
	var seasons []Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, season)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seasons, nil
}

func scanSeason(row pgx.Row) (Season, error) {
	var season Season
	var status string
	if err := row.Scan(&season.ID, &season.LeagueID, &season.Name, &status, &season.StartDate, &season.EndDate, &season.RegistrationDeadline, &season.CreatedAt, &season.UpdatedAt); err != nil {
		return Season{}, err
	}
	season.Status = Status(status)
	return season, nil
}
