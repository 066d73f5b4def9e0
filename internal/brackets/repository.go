package brackets

import (
	"context"
	"errors"
	"fmt"

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

const bracketColumns = `id, division_id, name, size, status, created_at, updated_at`

const matchColumns = `id, bracket_id, round, slot, COALESCE(home_team_id, 0),
	COALESCE(away_team_id, 0), COALESCE(winner_id, 0), COALESCE(game_id, 0), created_at, updated_at`

// Create persists the bracket and its full match grid in one transaction.
func (r *Repository) Create(ctx context.Context, b Bracket, matches []Match) (Bracket, []Match, error) {
	var created Bracket
	saved := make([]Match, 0, len(matches))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO brackets (division_id, name, size, status)
			VALUES ($1, $2, $3, $4)
			RETURNING `+bracketColumns, b.DivisionID, b.Name, b.Size, string(b.Status))
		var err error
		created, err = scanBracket(row)
		if err != nil {
			return err
		}
		for _, m := range matches {
			row := tx.QueryRow(ctx, `
				INSERT INTO bracket_matches (bracket_id, round, slot, home_team_id, away_team_id, winner_id)
				VALUES ($1, $2, $3, NULLIF($4, 0), NULLIF($5, 0), NULLIF($6, 0))
				RETURNING `+matchColumns,
				created.ID, m.Round, m.Slot, m.HomeTeamID, m.AwayTeamID, m.WinnerID)
			stored, err := scanMatch(row)
			if err != nil {
				return err
			}
			saved = append(saved, stored)
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Bracket{}, nil, httpx.ErrDuplicate
		}
		return Bracket{}, nil, fmt.Errorf("create bracket: %w", err)
	}
	return created, saved, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Bracket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bracketColumns+` FROM brackets WHERE id = $1`, id)
	return scanBracket(row)
}

func (r *Repository) ByDivision(ctx context.Context, divisionID int64) (Bracket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bracketColumns+` FROM brackets WHERE division_id = $1`, divisionID)
	return scanBracket(row)
}

func (r *Repository) Matches(ctx context.Context, bracketID int64) ([]Match, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+matchColumns+` FROM bracket_matches
		WHERE bracket_id = $1 ORDER BY round, slot`, bracketID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) Match(ctx context.Context, id int64) (Match, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM bracket_matches WHERE id = $1`, id)
	return scanMatch(row)
}

func (r *Repository) MatchBySlot(ctx context.Context, bracketID int64, round, slot int) (Match, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+matchColumns+` FROM bracket_matches
		WHERE bracket_id = $1 AND round = $2 AND slot = $3`, bracketID, round, slot)
	return scanMatch(row)
}

func (r *Repository) UpdateMatchTeams(ctx context.Context, id, homeID, awayID int64) (Match, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bracket_matches
		SET home_team_id = NULLIF($2, 0), away_team_id = NULLIF($3, 0), updated_at = now()
		WHERE id = $1
		RETURNING `+matchColumns, id, homeID, awayID)
	return scanMatch(row)
}

func (r *Repository) SetWinner(ctx context.Context, id, winnerID int64) (Match, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bracket_matches SET winner_id = NULLIF($2, 0), updated_at = now()
		WHERE id = $1
		RETURNING `+matchColumns, id, winnerID)
	return scanMatch(row)
}

func (r *Repository) SetGame(ctx context.Context, id, gameID int64) (Match, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bracket_matches SET game_id = NULLIF($2, 0), updated_at = now()
		WHERE id = $1
		RETURNING `+matchColumns, id, gameID)
	return scanMatch(row)
}

func (r *Repository) SetStatus(ctx context.Context, bracketID int64, status Status) (Bracket, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE brackets SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+bracketColumns, bracketID, string(status))
	return scanBracket(row)
}

// Delete removes the bracket; matches go with it via cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM brackets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bracket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBracket(row pgx.Row) (Bracket, error) {
	var b Bracket
	var status string
	err := row.Scan(&b.ID, &b.DivisionID, &b.Name, &b.Size, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bracket{}, ErrNotFound
		}
		return Bracket{}, fmt.Errorf("scan bracket: %w", err)
	}
	b.Status = Status(status)
	return b, nil
}

func scanMatch(row pgx.Row) (Match, error) {
	var m Match
	err := row.Scan(&m.ID, &m.BracketID, &m.Round, &m.Slot, &m.HomeTeamID,
		&m.AwayTeamID, &m.WinnerID, &m.GameID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrMatchNotFound
		}
		return Match{}, fmt.Errorf("scan match: %w", err)
	}
	return m, nil
}
