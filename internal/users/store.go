package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "users:by-username:"
)

// RedisStore はユーザーレコードを Redis に JSON で保存します。
// username ごとに登録順の ID リストを持ち、先頭を検索結果とします。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// FindByUsername はユーザー名で最初に登録されたユーザーを取得します。
func (s *RedisStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	id, err := s.rdb.LIndex(ctx, usernameKey(username), 0).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis: find by username: %w", err)
	}
	return s.FindByID(ctx, id)
}

// FindByID は ID でユーザーを取得します。
func (s *RedisStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis: find by id: %w", err)
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("redis: decode user %s: %w", id, err)
	}
	return &user, nil
}

// Insert はユーザーを登録します。レコードとインデックスは同じトランザクションで書き込みます。
func (s *RedisStore) Insert(ctx context.Context, username, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	tx := s.rdb.TxPipeline()
	tx.Set(ctx, userKey(user.ID), payload, 0)
	tx.RPush(ctx, usernameKey(username), user.ID)
	if _, err := tx.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis: insert user: %w", err)
	}
	return user, nil
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func usernameKey(username string) string {
	return usernameKeyPrefix + username
}

var _ Repository = (*RedisStore)(nil)
