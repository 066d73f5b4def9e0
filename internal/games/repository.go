package games

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/openleague/internal/platform/db"
	"github.com/openleague/openleague/internal/platform/httpx"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const gameColumns = `id, division_id, home_team_id, away_team_id, scheduled_at,
	location, status, home_score, away_score, created_at, updated_at`

// Filter narrows game listings. Zero fields are ignored.
type Filter struct {
	DivisionID int64
	TeamID     int64
	Status     Status
	From       time.Time
	To         time.Time
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE 1=1`
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += " AND " + clause + "$" + strconv.Itoa(len(args))
	}
	if f.DivisionID > 0 {
		add("division_id = ", f.DivisionID)
	}
	if f.TeamID > 0 {
		args = append(args, f.TeamID)
		p := strconv.Itoa(len(args))
		query += " AND (home_team_id = $" + p + " OR away_team_id = $" + p + ")"
	}
	if f.Status != "" {
		add("status = ", string(f.Status))
	}
	if !f.From.IsZero() {
		add("scheduled_at >= ", f.From)
	}
	if !f.To.IsZero() {
		add("scheduled_at < ", f.To)
	}
	query += ` ORDER BY scheduled_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Game, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	return g, err
}

func (r *Repository) Create(ctx context.Context, g Game) (Game, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO games (division_id, home_team_id, away_team_id, scheduled_at, location, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		g.DivisionID, g.HomeTeamID, g.AwayTeamID, g.ScheduledAt, g.Location, string(g.Status))
	if err := row.Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return Game{}, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

// CreateBatch inserts a generated schedule in one transaction.
func (r *Repository) CreateBatch(ctx context.Context, gs []Game) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, g := range gs {
			_, err := tx.Exec(ctx, `
				INSERT INTO games (division_id, home_team_id, away_team_id, scheduled_at, location, status)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				g.DivisionID, g.HomeTeamID, g.AwayTeamID, g.ScheduledAt, g.Location, string(g.Status))
			if err != nil {
				return fmt.Errorf("insert game: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) Reschedule(ctx context.Context, id int64, at time.Time, location string) (Game, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE games SET scheduled_at = $2, location = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+gameColumns, id, at, location)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	return g, err
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) (Game, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE games SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+gameColumns, id, string(status))
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	return g, err
}

func (r *Repository) SetScore(ctx context.Context, id int64, home, away int, status Status) (Game, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE games SET home_score = $2, away_score = $3, status = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+gameColumns, id, home, away, string(status))
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	return g, err
}

func (r *Repository) CountByDivision(ctx context.Context, divisionID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM games WHERE division_id = $1`, divisionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Assignments(ctx context.Context, gameID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.game_id, a.user_id, a.position, a.created_at, u.name
		FROM game_assignments a
		JOIN users u ON u.id = a.user_id
		WHERE a.game_id = $1
		ORDER BY a.created_at, a.user_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.GameID, &a.UserID, &a.Position, &a.CreatedAt, &a.UserName); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) Assign(ctx context.Context, gameID, userID int64, position string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO game_assignments (game_id, user_id, position)
		VALUES ($1, $2, $3)`, gameID, userID, position)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("assign referee: %w", err)
	}
	return nil
}

func (r *Repository) Unassign(ctx context.Context, gameID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM game_assignments WHERE game_id = $1 AND user_id = $2`, gameID, userID)
	if err != nil {
		return fmt.Errorf("unassign referee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// DueForReminder returns scheduled games starting inside the window that
// have not been reminded yet.
func (r *Repository) DueForReminder(ctx context.Context, from, to time.Time) ([]Game, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE status = 'scheduled' AND reminded_at IS NULL
		  AND scheduled_at >= $1 AND scheduled_at < $2
		ORDER BY scheduled_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("games due for reminder: %w", err)
	}
	defer rows.Close()

	var out []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) MarkReminded(ctx context.Context, gameID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE games SET reminded_at = now() WHERE id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}

func scanGame(row pgx.Row) (Game, error) {
	var g Game
	var status string
	err := row.Scan(&g.ID, &g.DivisionID, &g.HomeTeamID, &g.AwayTeamID, &g.ScheduledAt,
		&g.Location, &status, &g.HomeScore, &g.AwayScore, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Game{}, err
		}
		return Game{}, fmt.Errorf("scan game: %w", err)
	}
	g.Status = Status(status)
	return g, nil
}
