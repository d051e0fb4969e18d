package logutil

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Middleware はリクエストごとのロガーを context に載せ、完了時に1行のアクセスログを出力します。
func Middleware(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := base.With().
			Str("http.method", c.Request.Method).
			Str("http.path", c.Request.URL.Path).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), logger))

		c.Next()

		status := c.Writer.Status()
		ev := logger.Info()
		if status >= 500 {
			ev = logger.Error()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Int("http.status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request completed")
	}
}
