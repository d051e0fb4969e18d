package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/passgate/internal/logutil"
	"github.com/yourusername/passgate/internal/password"
	"github.com/yourusername/passgate/internal/session"
	"github.com/yourusername/passgate/internal/users"
	"github.com/yourusername/passgate/internal/views"
)

const testCookieName = "passgate.sid"

var errStoreDown = errors.New("store down")

// stubRepo は MemoryStore に障害を注入するためのラッパーです。
type stubRepo struct {
	*users.MemoryStore

	mu               sync.Mutex
	failByUsername   bool
	failByID         bool
	failInsert       bool
	hideByID         bool
	blockByUsername  bool
	findByIDCalls    int
	byUsernameCalled int
}

func newStubRepo() *stubRepo {
	return &stubRepo{MemoryStore: users.NewMemoryStore()}
}

func (r *stubRepo) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	r.mu.Lock()
	r.byUsernameCalled++
	fail, block := r.failByUsername, r.blockByUsername
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fail {
		return nil, errStoreDown
	}
	return r.MemoryStore.FindByUsername(ctx, username)
}

func (r *stubRepo) FindByID(ctx context.Context, id string) (*users.User, error) {
	r.mu.Lock()
	r.findByIDCalls++
	fail, hide := r.failByID, r.hideByID
	r.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	if hide {
		return nil, users.ErrNotFound
	}
	return r.MemoryStore.FindByID(ctx, id)
}

func (r *stubRepo) Insert(ctx context.Context, username, passwordHash string) (*users.User, error) {
	r.mu.Lock()
	fail := r.failInsert
	r.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return r.MemoryStore.Insert(ctx, username, passwordHash)
}

func (r *stubRepo) set(fn func(r *stubRepo)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func testHasher() password.Hasher {
	return password.NewBcryptHasher(bcrypt.MinCost)
}

type testEnv struct {
	router  *gin.Engine
	manager *Manager
	repo    *stubRepo
	redis   *miniredis.Miniredis
	logs    *bytes.Buffer
}

func newTestEnv(t *testing.T, metrics *Metrics) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := newStubRepo()
	manager := NewManager(repo, testHasher(), Options{
		StoreTimeout:      time.Second,
		SaveUninitialized: true,
		Metrics:           metrics,
	})

	tmpl, err := views.Load()
	require.NoError(t, err)

	store := session.NewRedisStore(rdb, []byte("cats"), sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true})
	logs := &bytes.Buffer{}
	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(logutil.Middleware(zerolog.New(logs)))
	router.Use(sessions.Sessions(testCookieName, store))
	manager.RegisterRoutes(router)

	return &testEnv{router: router, manager: manager, repo: repo, redis: mr, logs: logs}
}

// browser は Cookie を保持しながらリクエストを送ります。
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, handler: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) cookie(name string) *http.Cookie {
	c, ok := b.cookies[name]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func credentials(username, pass string) url.Values {
	return url.Values{"username": {username}, "password": {pass}}
}
