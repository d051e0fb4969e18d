package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore はプロセス内メモリに保存する Repository 実装です。
// テストとローカル開発用です。
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string][]string
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string][]string),
	}
}

// FindByUsername は最初に登録された同名ユーザーを返します。
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUsername[username]
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	u := *s.byID[ids[0]]
	return &u, nil
}

// FindByID は ID でユーザーを返します。
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Insert はユーザーを登録します。
func (s *MemoryStore) Insert(ctx context.Context, username, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
	s.byUsername[username] = append(s.byUsername[username], u.ID)
	cp := *u
	return &cp, nil
}

// Len は登録済みユーザー数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

var _ Repository = (*MemoryStore)(nil)
