package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/passgate/internal/logutil"
	"github.com/yourusername/passgate/internal/users"
)

// テンプレート名
const (
	templateIndex  = "index.html"
	templateSignUp = "sign-up-form.html"
	templateError  = "error.html"
)

type credentialsForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Home は GET / のハンドラーです。
func (m *Manager) Home(c *gin.Context) {
	u := CurrentUser(c)
	c.HTML(http.StatusOK, templateIndex, gin.H{
		"user":        u,
		"currentUser": u,
	})
}

// SignUpForm は GET /sign-up のハンドラーです。
func (m *Manager) SignUpForm(c *gin.Context) {
	c.HTML(http.StatusOK, templateSignUp, gin.H{
		"currentUser": CurrentUser(c),
	})
}

// SignUp は POST /sign-up のハンドラーです。
// ハッシュ化に成功してからレコードを保存するため、失敗時に中途半端なレコードは残りません。
func (m *Manager) SignUp(c *gin.Context) {
	logger := logutil.GetOrDefault(c.Request.Context())

	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		m.metrics.signUp("invalid")
		c.HTML(http.StatusBadRequest, templateSignUp, gin.H{
			"currentUser": CurrentUser(c),
			"username":    form.Username,
			"error":       "ユーザー名とパスワードを入力してください",
		})
		return
	}

	hash, err := m.hasher.Hash(form.Password)
	if err != nil {
		logutil.Error(logger, err).Msg("sign-up aborted: password hashing failed")
		m.metrics.signUp("error")
		m.renderError(c)
		return
	}

	m.warnDuplicateUsername(c, form.Username)

	ctx, cancel := withTimeout(c.Request.Context(), m.timeout)
	defer cancel()
	u, err := m.users.Insert(ctx, form.Username, hash)
	if err != nil {
		logutil.Error(logger, storeFailure(err, "insert user")).Msg("sign-up aborted: store failure")
		m.metrics.signUp("error")
		m.renderError(c)
		return
	}

	logger.Info().Str("user_id", u.ID).Msg("user signed up")
	m.metrics.signUp("created")
	c.Redirect(http.StatusFound, "/")
}

// warnDuplicateUsername は同名ユーザーが既にいれば警告を出します。
// username の一意性は強制しない（ログイン時は最初のレコードが優先される）ため、登録自体は止めません。
func (m *Manager) warnDuplicateUsername(c *gin.Context, username string) {
	logger := logutil.GetOrDefault(c.Request.Context())

	ctx, cancel := withTimeout(c.Request.Context(), m.timeout)
	defer cancel()
	_, err := m.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		logger.Warn().Str("username", username).Msg("username already registered, creating duplicate record")
	case !errors.Is(err, users.ErrNotFound):
		logger.Warn().Err(storeFailure(err, "find user by username")).
			Str("username", username).
			Msg("duplicate username check failed, continuing sign-up")
	}
}

// LogIn は POST /log-in のハンドラーです。
// 成功・失敗どちらも / へリダイレクトし、失敗理由は利用者に返しません。
func (m *Manager) LogIn(c *gin.Context) {
	logger := logutil.GetOrDefault(c.Request.Context())

	result := m.strategy.Authenticate(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
	m.metrics.login(result)

	switch result.Outcome {
	case OutcomeSuccess:
		if err := m.sessions.Establish(c, result.Identity); err != nil {
			logutil.Error(logger, err).Msg("login aborted: session could not be established")
			m.renderError(c)
			return
		}
		logger.Info().Str("user_id", result.Identity.ID).Msg("user logged in")
	case OutcomeFailure:
		logger.Info().Str("reason", string(result.Reason)).Msg("login rejected")
	default:
		logutil.Error(logger, result.Err).Msg("login aborted")
		m.renderError(c)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// LogOut は GET /log-out のハンドラーです。
func (m *Manager) LogOut(c *gin.Context) {
	if err := m.sessions.Destroy(c); err != nil {
		logutil.Error(logutil.GetOrDefault(c.Request.Context()), err).Msg("logout failed")
		m.renderError(c)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (m *Manager) renderError(c *gin.Context) {
	c.HTML(http.StatusInternalServerError, templateError, gin.H{
		"message": "サーバーでエラーが発生しました。時間をおいて再度お試しください。",
	})
}
