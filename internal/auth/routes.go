package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes は認証まわりのルートを登録します。
// sessions.Sessions ミドルウェアが先に登録されている必要があります。
func (m *Manager) RegisterRoutes(r gin.IRoutes) {
	r.Use(m.LoadIdentity())
	r.GET("/", m.Home)
	r.GET("/sign-up", m.SignUpForm)
	r.POST("/sign-up", m.SignUp)
	r.POST("/log-in", m.LogIn)
	r.GET("/log-out", m.LogOut)
}
