package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmorel/userhub/internal/domain/user"
)

const userColumns = `id, full_name, email, password_hash, role, status, last_login, created_at, updated_at`

// UsersRepo is the pgx-backed account store. A unique index on
// LOWER(email) is the authoritative duplicate guard; any handler-level
// pre-check only improves the common-case error message.
type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	return scanUser(row)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
		email,
	)

	return scanUser(row)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO users (id, full_name, email, password_hash, role, status, created_at, updated_at)
         VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $7)
         RETURNING `+userColumns,
		u.ID, u.FullName, u.Email, u.PasswordHash, u.Role, u.Status, now,
	)

	created, err := scanUser(row)

	if err != nil {
		return user.User{}, mapWriteError(err)
	}

	return created, nil
}

func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE users
         SET full_name = $2, email = LOWER($3), updated_at = $4
         WHERE id = $1
         RETURNING `+userColumns,
		u.ID, u.FullName, u.Email, time.Now().UTC(),
	)

	updated, err := scanUser(row)

	if err != nil {
		return user.User{}, mapWriteError(err)
	}

	return updated, nil
}

func (r *UsersRepo) UpdateStatus(ctx context.Context, id, status string) (user.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE users SET status = $2, updated_at = $3 WHERE id = $1 RETURNING `+userColumns,
		id, status, time.Now().UTC(),
	)

	return scanUser(row)
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id, role string) (user.User, error) {
	row := r.pool.QueryRow(
		ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1 RETURNING `+userColumns,
		id, role, time.Now().UTC(),
	)

	return scanUser(row)
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now().UTC(),
	)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(
		ctx,
		`UPDATE users SET last_login = $2 WHERE id = $1`,
		id, at,
	)

	return err
}

func (r *UsersRepo) List(ctx context.Context, offset, limit int) ([]user.User, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		limit, offset,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	users := make([]user.User, 0, limit)

	for rows.Next() {
		u, err := scanUserRow(rows)

		if err != nil {
			return nil, err
		}

		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var total int

	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)

	return total, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row pgx.Row) (user.User, error) {
	u, err := scanUserRow(row)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func scanUserRow(row rowScanner) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Status,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError

	// 23505 = unique_violation (the LOWER(email) index)
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return user.ErrEmailTaken
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return user.ErrNotFound
	}

	return err
}
