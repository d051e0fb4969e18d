// Package postgres は PostgreSQL による users.Repository 実装です。
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/passgate/internal/users"
)

// poolIface は pgxpool.Pool と pgxmock のどちらでも満たせる最小のインターフェースです。
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository は users テーブルを読み書きします。
type Repository struct {
	pool poolIface
}

// NewRepository は Repository を作成します。
func NewRepository(pool poolIface) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT id, username, password_hash, created_at FROM users`

// FindByUsername は同名ユーザーのうち最も古いレコードを返します。
func (r *Repository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	row := r.pool.QueryRow(ctx,
		selectUser+` WHERE username = $1 ORDER BY created_at, id LIMIT 1`,
		username)
	return scanUser(row, "find by username")
}

// FindByID は ID でユーザーを返します。
func (r *Repository) FindByID(ctx context.Context, id string) (*users.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		// UUID でない値は問い合わせるまでもなく存在しない
		return nil, users.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id)
	return scanUser(row, "find by id")
}

// Insert はユーザーを登録します。
func (r *Repository) Insert(ctx context.Context, username, passwordHash string) (*users.User, error) {
	user := &users.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: insert user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row, op string) (*users.User, error) {
	var u users.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %s: %w", op, err)
	}
	return &u, nil
}

var _ users.Repository = (*Repository)(nil)
