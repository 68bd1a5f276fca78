package user

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"task-tracker/pkg/storage"
)

const userColumns = `id, username, email, password_hash, created_at, updated_at, deleted_at`

// PgStore is a PostgreSQL-backed user store.
type PgStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool, opts ...Option) *PgStore {
	o := buildOptions(opts)
	return &PgStore{pool: pool, now: o.now}
}

// EnsureTable creates the users table if it doesn't exist. Usernames and
// emails are unique among live users only.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      VARCHAR(20) NOT NULL,
			email         VARCHAR(50) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at    TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_live ON users(username) WHERE deleted_at IS NULL`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_live ON users(email) WHERE deleted_at IS NULL`)
	return err
}

// Create inserts a user.
func (s *PgStore) Create(ctx context.Context, u *User) (*User, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	out, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash, now))
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", u.Username, storage.ClassifyPg(err))
	}
	return out, nil
}

// Get returns a live user by ID.
func (s *PgStore) Get(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, storage.ClassifyPg(err))
	}
	return u, nil
}

// ByUsername returns a live user by username.
func (s *PgStore) ByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 AND deleted_at IS NULL`, username))
	if err != nil {
		return nil, fmt.Errorf("user by name %s: %w", username, storage.ClassifyPg(err))
	}
	return u, nil
}

// List returns all live users.
func (s *PgStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", storage.ClassifyPg(err))
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", storage.ClassifyPg(err))
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", storage.ClassifyPg(err))
	}
	return users, nil
}

// Delete soft-deletes a live user.
func (s *PgStore) Delete(ctx context.Context, id int64) (*User, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+userColumns, id, now))
	if err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, storage.ClassifyPg(err))
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
