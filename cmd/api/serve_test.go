package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/passgate/internal/config"
	"github.com/yourusername/passgate/internal/users"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                     "0",
		GinMode:                  gin.TestMode,
		LogLevel:                 "disabled",
		SessionSecret:            "cats",
		SessionCookieName:        "passgate.sid",
		SessionMaxAge:            3600,
		SessionSaveUninitialized: true,
		CredentialStore:          config.StoreMemory,
		StoreTimeout:             time.Second,
		BcryptCost:               4,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	router, err := newRouter(cfg, zerolog.Nop(), rdb, users.NewMemoryStore(), prometheus.NewRegistry())
	require.NoError(t, err)
	return router
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t, testConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRouterServesHomeWithSessionCookie(t *testing.T) {
	router := newTestRouter(t, testConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/log-in"`)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "passgate.sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestRouterExposesMetrics(t *testing.T) {
	router := newTestRouter(t, testConfig())

	form := strings.NewReader("username=alice&password=nope")
	req := httptest.NewRequest(http.MethodPost, "/log-in", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `passgate_login_attempts_total{outcome="incorrect_username"} 1`)
}

func TestRouterCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSAllowedOrigins = "http://localhost:3000"
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
