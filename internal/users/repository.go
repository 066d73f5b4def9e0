package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openleague/openleague/internal/authz"
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

const userColumns = `id, email, name, role, is_active, created_at, updated_at`

// List returns a page of users plus the total count. An empty role matches
// every account.
func (r *Repository) List(ctx context.Context, role authz.Role, limit, offset int) ([]User, int, error) {
	countQuery := `SELECT COUNT(*) FROM users`
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	var countArgs []any
	args := []any{limit, offset}
	if role != "" {
		countQuery += ` WHERE role=$1`
		countArgs = append(countArgs, string(role))
		query = `SELECT ` + userColumns + ` FROM users WHERE role=$1 ORDER BY id LIMIT $2 OFFSET $3`
		args = []any{string(role), limit, offset}
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Get fetches one user.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// ByEmail fetches one user by email address.
func (r *Repository) ByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// Create inserts a user and returns the stored record.
func (r *Repository) Create(ctx context.Context, email, name, passwordHash string, role authz.Role) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, true, $5, $5)
RETURNING `+userColumns, email, name, passwordHash, string(role), time.Now().UTC())
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, httpx.ErrDuplicate
		}
		return User{}, err
	}
	return user, nil
}

// SetRole updates the user's role.
func (r *Repository) SetRole(ctx context.Context, id int64, role authz.Role) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET role=$2, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, id, string(role))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// SetActive toggles account availability.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET is_active=$2, updated_at=NOW() WHERE id=$1 RETURNING `+userColumns, id, active)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, httpx.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	user.Role = authz.ParseRole(role)
	return user, nil
}
