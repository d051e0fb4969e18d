// Package auth はユーザー登録・ログイン・ログアウトとセッション認証を提供します。
package auth

import (
	"time"

	"github.com/yourusername/passgate/internal/password"
	"github.com/yourusername/passgate/internal/users"
)

// Options は Manager の設定です。
type Options struct {
	StoreTimeout      time.Duration // ストア呼び出しごとのタイムアウト
	SaveUninitialized bool          // 未認証のセッションも保存する
	Metrics           *Metrics      // nil なら記録しない
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users    users.Repository
	hasher   password.Hasher
	strategy *Strategy
	sessions *SessionManager
	metrics  *Metrics
	timeout  time.Duration
}

// NewManager は認証マネージャーを作成します。
func NewManager(repo users.Repository, hasher password.Hasher, opts Options) *Manager {
	return &Manager{
		users:    repo,
		hasher:   hasher,
		strategy: NewStrategy(repo, hasher, opts.StoreTimeout),
		sessions: NewSessionManager(repo, opts.StoreTimeout, opts.SaveUninitialized),
		metrics:  opts.Metrics,
		timeout:  opts.StoreTimeout,
	}
}

