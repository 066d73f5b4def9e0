package teams

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const teamColumns = `id, division_id, name, color, status, captain_id, created_at, updated_at`

func (r *Repository) ListByDivision(ctx context.Context, divisionID int64, status Status) ([]Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE division_id = $1`
	args := []any{divisionID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()
	return collectTeams(rows)
}

func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams WHERE status = $1 ORDER BY created_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list teams by status: %w", err)
	}
	defer rows.Close()
	return collectTeams(rows)
}

func (r *Repository) Get(ctx context.Context, id int64) (Team, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	team, err := scanTeam(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	return team, err
}

func (r *Repository) Create(ctx context.Context, t Team) (Team, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO teams (division_id, name, color, status, captain_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		t.DivisionID, t.Name, t.Color, string(t.Status), t.CaptainID)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Team{}, httpx.ErrDuplicate
		}
		return Team{}, fmt.Errorf("create team: %w", err)
	}
	return t, nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id int64, name, color string) (Team, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE teams SET name = $2, color = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+teamColumns, id, name, color)
	team, err := scanTeam(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Team{}, httpx.ErrDuplicate
		}
	}
	return team, err
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) (Team, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE teams SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+teamColumns, id, string(status))
	team, err := scanTeam(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Team{}, ErrNotFound
	}
	return team, err
}

// ApprovedCount reports how many approved teams a division carries.
func (r *Repository) ApprovedCount(ctx context.Context, divisionID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM teams WHERE division_id = $1 AND status = 'approved'`, divisionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved teams: %w", err)
	}
	return n, nil
}

func (r *Repository) Members(ctx context.Context, teamID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.team_id, m.user_id, m.status, m.jersey_number, m.joined_at, u.name, u.email
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1 AND m.status <> 'removed'
		ORDER BY m.joined_at, m.user_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		var status string
		if err := rows.Scan(&m.TeamID, &m.UserID, &status, &m.JerseyNumber, &m.JoinedAt, &m.UserName, &m.UserEmail); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Status = MemberStatus(status)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) Member(ctx context.Context, teamID, userID int64) (Member, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT m.team_id, m.user_id, m.status, m.jersey_number, m.joined_at, u.name, u.email
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = $1 AND m.user_id = $2`, teamID, userID)
	var m Member
	var status string
	err := row.Scan(&m.TeamID, &m.UserID, &status, &m.JerseyNumber, &m.JoinedAt, &m.UserName, &m.UserEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrMemberNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("get member: %w", err)
	}
	m.Status = MemberStatus(status)
	return m, nil
}

func (r *Repository) AddMember(ctx context.Context, m Member) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO team_members (team_id, user_id, status, jersey_number, joined_at)
		VALUES ($1, $2, $3, $4, now())`,
		m.TeamID, m.UserID, string(m.Status), m.JerseyNumber)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *Repository) SetMemberStatus(ctx context.Context, teamID, userID int64, status MemberStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE team_members SET status = $3 WHERE team_id = $1 AND user_id = $2`,
		teamID, userID, string(status))
	if err != nil {
		return fmt.Errorf("set member status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *Repository) SetJersey(ctx context.Context, teamID, userID int64, number int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE team_members SET jersey_number = $3
		WHERE team_id = $1 AND user_id = $2 AND status = 'active'`,
		teamID, userID, number)
	if err != nil {
		return fmt.Errorf("set jersey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *Repository) DeleteMember(ctx context.Context, teamID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

const inviteColumns = `id, team_id, user_id, email, token, invited_by, expires_at, created_at`

func (r *Repository) CreateInvite(ctx context.Context, inv Invite) (Invite, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO team_invites (team_id, user_id, email, token, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		inv.TeamID, inv.UserID, inv.Email, inv.Token, inv.InvitedBy, inv.ExpiresAt)
	if err := row.Scan(&inv.ID, &inv.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Invite{}, httpx.ErrDuplicate
		}
		return Invite{}, fmt.Errorf("create invite: %w", err)
	}
	return inv, nil
}

func (r *Repository) InviteByToken(ctx context.Context, token string) (Invite, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM team_invites WHERE token = $1`, token)
	return scanInvite(row)
}

func (r *Repository) InviteByID(ctx context.Context, id int64) (Invite, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM team_invites WHERE id = $1`, id)
	return scanInvite(row)
}

func (r *Repository) DeleteInvite(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM team_invites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return nil
}

// DeleteExpiredInvites clears invites past their window, returning how many
// rows went away. Run from the worker's cleanup cron.
func (r *Repository) DeleteExpiredInvites(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM team_invites WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired invites: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectTeams(rows pgx.Rows) ([]Team, error) {
	var out []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTeam(row pgx.Row) (Team, error) {
	var t Team
	var status string
	err := row.Scan(&t.ID, &t.DivisionID, &t.Name, &t.Color, &status, &t.CaptainID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Team{}, err
		}
		return Team{}, fmt.Errorf("scan team: %w", err)
	}
	t.Status = Status(status)
	return t, nil
}

func scanInvite(row pgx.Row) (Invite, error) {
	var inv Invite
	err := row.Scan(&inv.ID, &inv.TeamID, &inv.UserID, &inv.Email, &inv.Token, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invite{}, ErrInviteNotFound
	}
	if err != nil {
		return Invite{}, fmt.Errorf("scan invite: %w", err)
	}
	return inv, nil
}
