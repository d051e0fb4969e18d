package auth

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/passgate/internal/logutil"
	"github.com/yourusername/passgate/internal/session"
)

// LoadIdentity はセッションからユーザーを復元してリクエストに載せるミドルウェアです。
// 復元できない場合は未認証のまま次のハンドラーへ進みます。
func (m *Manager) LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logutil.GetOrDefault(c.Request.Context())
		s := sessions.Default(c)

		if s.Get(session.KeyLoadFailed) != nil {
			// 保存済みのセッションを新しいIDで上書きしない
			logger.Warn().Msg("session store unavailable, continuing unauthenticated")
			m.metrics.sessionLookup("error")
			c.Next()
			return
		}

		token := s.Get(sessionKeyUser)
		if token == nil {
			if m.sessions.saveUninitialized && s.Get(sessionKeyCreatedAt) == nil {
				s.Set(sessionKeyCreatedAt, time.Now().Unix())
				if err := s.Save(); err != nil {
					logutil.Error(logger, storeFailure(err, "save uninitialized session")).
						Msg("failed to save new session")
				}
			}
			c.Next()
			return
		}

		u, err := m.sessions.Deserialize(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(ContextUserKey, u)
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), u))
			m.metrics.sessionLookup("resolved")
		case IsStoreFailure(err):
			logutil.Error(logger, err).Msg("session identity lookup failed, continuing unauthenticated")
			m.metrics.sessionLookup("error")
		default:
			logger.Debug().Err(err).Msg("discarding unresolvable session identity")
			m.metrics.sessionLookup("unresolved")
			s.Delete(sessionKeyUser)
			if err := s.Save(); err != nil {
				logutil.Error(logger, storeFailure(err, "save session")).Msg("failed to drop stale identity")
			}
		}
		c.Next()
	}
}
