package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/yourusername/passgate/internal/auth"
	"github.com/yourusername/passgate/internal/config"
	"github.com/yourusername/passgate/internal/httpserver"
	"github.com/yourusername/passgate/internal/logutil"
	"github.com/yourusername/passgate/internal/password"
	"github.com/yourusername/passgate/internal/session"
	"github.com/yourusername/passgate/internal/users"
	"github.com/yourusername/passgate/internal/users/postgres"
	"github.com/yourusername/passgate/internal/views"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP server",
		Action: func(ctx *cli.Context) error {
			return serve(ctx.Context)
		},
	}
}

func serve(ctx context.Context) error {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logutil.New(cfg.LogLevel, cfg.GinMode != gin.ReleaseMode)
	ctx = logutil.WithLogger(ctx, logger)

	// セッションは常に Redis に置く
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	repo, closeRepo, err := openCredentialStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeRepo()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router, err := newRouter(cfg, logger, rdb, repo, reg)
	if err != nil {
		return err
	}

	logger.Info().
		Str("gin.mode", cfg.GinMode).
		Str("credential_store", cfg.CredentialStore).
		Msg("Starting passgate")
	return httpserver.Serve(ctx, ":"+cfg.Port, router)
}

// openCredentialStore は CREDENTIAL_STORE に応じたユーザーリポジトリを返します。
func openCredentialStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (users.Repository, func(), error) {
	switch cfg.CredentialStore {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewRepository(pool), pool.Close, nil
	case config.StoreMemory:
		return users.NewMemoryStore(), func() {}, nil
	default:
		return users.NewRedisStore(rdb), func() {}, nil
	}
}

// newRouter はミドルウェアとルーティングを組み立てます。
func newRouter(cfg *config.Config, logger zerolog.Logger, rdb *redis.Client, repo users.Repository, reg *prometheus.Registry) (*gin.Engine, error) {
	gin.SetMode(cfg.GinMode)

	router := gin.New()
	router.Use(gin.Recovery(), logutil.Middleware(logger))

	// CORSミドルウェアの設定（オリジン未指定なら無効）
	if cfg.CORSAllowedOrigins != "" {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		router.Use(cors.New(corsConfig))
	}

	store := session.NewRedisStore(rdb, []byte(cfg.SessionSecret), sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(cfg.SessionCookieName, store))

	tmpl, err := views.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/health", handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	manager := auth.NewManager(repo, password.NewBcryptHasher(cfg.BcryptCost), auth.Options{
		StoreTimeout:      cfg.StoreTimeout,
		SaveUninitialized: cfg.SessionSaveUninitialized,
		Metrics:           auth.NewMetrics(reg),
	})
	manager.RegisterRoutes(router)

	return router, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "passgate",
		"version": "0.1.0",
	})
}
