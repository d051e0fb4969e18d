package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/yourusername/passgate/internal/session"
	"github.com/yourusername/passgate/internal/users"
)

const (
	sessionKeyUser      = "auth_user"
	sessionKeyCreatedAt = "created_at"
)

// SessionManager はログイン済みユーザーとセッションの対応を管理します。
// セッションにはユーザーIDだけを保存します。
type SessionManager struct {
	users             users.Repository
	timeout           time.Duration
	saveUninitialized bool
	cookiePath        string
}

// NewSessionManager は SessionManager を作成します。
func NewSessionManager(repo users.Repository, timeout time.Duration, saveUninitialized bool) *SessionManager {
	return &SessionManager{
		users:             repo,
		timeout:           timeout,
		saveUninitialized: saveUninitialized,
		cookiePath:        "/",
	}
}

// Serialize はセッションに保存する値（ユーザーID）を返します。
func (m *SessionManager) Serialize(u *users.User) (string, error) {
	if u == nil || u.ID == "" {
		return "", oops.Code(CodeSerializationFailure).Errorf("identity has no id")
	}
	return u.ID, nil
}

// Deserialize はセッションの値からユーザーを復元します。
// 値が不正・ユーザーが存在しない場合は SerializationFailure、ストア障害は StoreFailure を返します。
func (m *SessionManager) Deserialize(ctx context.Context, token any) (*users.User, error) {
	id, ok := token.(string)
	if !ok || id == "" {
		return nil, oops.Code(CodeSerializationFailure).
			With("token_type", fmt.Sprintf("%T", token)).
			Errorf("malformed session payload")
	}

	lookupCtx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()
	u, err := m.users.FindByID(lookupCtx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, oops.Code(CodeSerializationFailure).
				With("user_id", id).
				Wrap(err)
		}
		return nil, storeFailure(err, "find user by id")
	}
	return u, nil
}

// Establish はログイン成功後にセッションへユーザーを書き込みます。
// ログイン前に発行されたセッションIDは破棄し、新しいIDで保存します。
func (m *SessionManager) Establish(c *gin.Context, u *users.User) error {
	token, err := m.Serialize(u)
	if err != nil {
		return err
	}
	s := sessions.Default(c)
	s.Set(session.KeyRegenerate, true)
	s.Set(sessionKeyUser, token)
	if err := s.Save(); err != nil {
		return storeFailure(err, "save session")
	}
	return nil
}

// Destroy はセッションを破棄し、Cookie を失効させます。
func (m *SessionManager) Destroy(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{Path: m.cookiePath, MaxAge: -1})
	if err := s.Save(); err != nil {
		return storeFailure(err, "destroy session")
	}
	return nil
}
