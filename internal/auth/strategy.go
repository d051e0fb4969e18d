package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yourusername/passgate/internal/password"
	"github.com/yourusername/passgate/internal/users"
)

// Outcome は認証結果の種類です。
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeFailure
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// FailureReason は認証に失敗した内部的な理由です。利用者には区別して見せません。
type FailureReason string

const (
	ReasonMissingCredentials FailureReason = "missing_credentials"
	ReasonIncorrectUsername  FailureReason = "incorrect_username"
	ReasonIncorrectPassword  FailureReason = "incorrect_password"
)

// Result は Authenticate の結果です。Outcome に応じて Identity / Reason / Err のいずれか1つだけが意味を持ちます。
type Result struct {
	Outcome  Outcome
	Identity *users.User
	Reason   FailureReason
	Err      error
}

func succeeded(u *users.User) Result {
	return Result{Outcome: OutcomeSuccess, Identity: u}
}

func failed(reason FailureReason) Result {
	return Result{Outcome: OutcomeFailure, Reason: reason}
}

func errored(err error) Result {
	return Result{Outcome: OutcomeError, Err: err}
}

// Label はメトリクスやログ用の短い名前を返します。
func (r Result) Label() string {
	if r.Outcome == OutcomeFailure {
		return string(r.Reason)
	}
	return r.Outcome.String()
}

// Strategy はユーザー名とパスワードによる認証を行います。
type Strategy struct {
	users   users.Repository
	hasher  password.Hasher
	timeout time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// NewStrategy は Strategy を作成します。timeout はストア呼び出しごとの上限です（0 なら無制限）。
func NewStrategy(repo users.Repository, hasher password.Hasher, timeout time.Duration) *Strategy {
	return &Strategy{
		users:   repo,
		hasher:  hasher,
		timeout: timeout,
	}
}

// Authenticate は username のユーザーを1件検索し、パスワードを検証します。
// 1回の呼び出しにつき結果は必ず1つです。
func (s *Strategy) Authenticate(ctx context.Context, username, plaintext string) Result {
	if username == "" || plaintext == "" {
		return failed(ReasonMissingCredentials)
	}

	lookupCtx, cancel := withTimeout(ctx, s.timeout)
	user, err := s.users.FindByUsername(lookupCtx, username)
	cancel()
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			// 存在しないユーザーでも検証を1回行い、応答時間で存在有無が分からないようにする
			s.verifyDummy(plaintext)
			return failed(ReasonIncorrectUsername)
		}
		return errored(storeFailure(err, "find user by username"))
	}

	ok, err := s.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return errored(err)
	}
	if !ok {
		return failed(ReasonIncorrectPassword)
	}
	return succeeded(user)
}

func (s *Strategy) verifyDummy(plaintext string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("passgate-dummy-credential")
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(plaintext, s.dummyHash)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
