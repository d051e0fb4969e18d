// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 認証情報ストアの種類
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// devSessionSecret は debug/test モードで SESSION_SECRET が未設定のときだけ使います。
const devSessionSecret = "passgate-dev-secret-do-not-use-in-production"

// Config はアプリケーションの設定を保持する構造体です。
// Load 後は書き換えずに各コンポーネントへ明示的に渡します。
type Config struct {
	// サーバー設定
	Port     string // HTTPサーバーのポート番号
	GinMode  string // Ginの実行モード (debug, release, test)
	LogLevel string // zerolog のログレベル

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り、空なら無効）

	// セッション設定
	SessionSecret            string // セッションCookie署名用の秘密鍵
	SessionCookieName        string // セッションCookie名
	SessionMaxAge            int    // セッションの有効期間（秒）
	SessionSaveUninitialized bool   // 未認証のセッションも保存するか

	// 認証情報ストア設定
	CredentialStore string        // redis, postgres, memory
	RedisURL        string        // Redis接続URL（セッションストアと共用）
	DatabaseURL     string        // PostgreSQL接続URL
	StoreTimeout    time.Duration // ストア呼び出し1回あたりのタイムアウト

	// パスワード設定
	BcryptCost int // bcrypt のコスト
}

// Load は環境変数から設定を読み込みます。
// .env.local / .env ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		SessionSecret:            getEnv("SESSION_SECRET", ""),
		SessionCookieName:        getEnv("SESSION_COOKIE_NAME", "passgate.sid"),
		SessionMaxAge:            getEnvAsInt("SESSION_MAX_AGE_SECONDS", 86400),
		SessionSaveUninitialized: getEnvAsBool("SESSION_SAVE_UNINITIALIZED", true),

		CredentialStore: strings.ToLower(getEnv("CREDENTIAL_STORE", StoreRedis)),
		RedisURL:        getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		DatabaseURL:     databaseURL(),
		StoreTimeout:    time.Duration(getEnvAsInt("STORE_TIMEOUT_SECONDS", 5)) * time.Second,

		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
	}

	if config.SessionSecret == "" && config.GinMode != "release" {
		config.SessionSecret = devSessionSecret
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	// 先に読んだファイルの値が優先される
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// databaseURL は DATABASE_URL を優先し、なければ DB_USER / DB_PASS / DB_HOST / DB_NAME から組み立てます。
func databaseURL() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	user := getEnv("DB_USER", "")
	if user == "" {
		return ""
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, getEnv("DB_PASS", "")),
		Host:   getEnv("DB_HOST", "127.0.0.1:5432"),
		Path:   "/" + getEnv("DB_NAME", "user_authentication"),
	}
	if mode := getEnv("DB_SSLMODE", ""); mode != "" {
		u.RawQuery = url.Values{"sslmode": {mode}}.Encode()
	}
	return u.String()
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in release mode")
	}
	if c.GinMode == "release" && c.SessionSecret == devSessionSecret {
		return fmt.Errorf("SESSION_SECRET must not use the development default in release mode")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_SECONDS must be positive")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_SECONDS must be positive")
	}

	switch c.CredentialStore {
	case StoreRedis, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL (or DB_USER/DB_PASS) is required when CREDENTIAL_STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown CREDENTIAL_STORE %q", c.CredentialStore)
	}

	// セッションは常に Redis に保存する
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
