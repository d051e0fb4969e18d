// Package users はユーザーレコードと認証情報ストアを提供します。
package users

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound は該当するユーザーが存在しないことを表します。
var ErrNotFound = errors.New("user not found")

// User はユーザーレコードです。平文のパスワードは保持しません。
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository は認証情報ストアの契約です。
// username の一意性は保証しません。重複がある場合は最初に登録されたレコードを返します。
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Insert(ctx context.Context, username, passwordHash string) (*User, error)
}
