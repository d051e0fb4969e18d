package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/passgate/internal/users"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

type identityKey struct{}

// WithIdentity はリクエストの context にユーザーを載せます。
func WithIdentity(ctx context.Context, u *users.User) context.Context {
	return context.WithValue(ctx, identityKey{}, u)
}

// IdentityFromContext は context からユーザーを取り出します。未認証なら nil です。
func IdentityFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(identityKey{}).(*users.User)
	return u
}

// CurrentUser は現在のリクエストのユーザーを返します。未認証なら nil です。
func CurrentUser(c *gin.Context) *users.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*users.User)
	return u
}
