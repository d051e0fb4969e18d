// Package password はパスワードのハッシュ化と検証を提供します。
package password

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// CodeHashingFailed はハッシュ化・検証そのものが失敗したことを表すエラーコードです。
const CodeHashingFailed = "PASSWORD_HASHING_FAILED"

// DefaultCost は bcrypt のデフォルトコストです。
const DefaultCost = 10

// Hasher はパスワードのハッシュ化と検証を行います。
type Hasher interface {
	// Hash はソルト付きの一方向ハッシュを返します。
	Hash(plaintext string) (string, error)

	// Verify は一致すれば (true, nil)、不一致なら (false, nil) を返します。
	// ハッシュが壊れている場合などはエラーを返します。
	Verify(plaintext, hash string) (bool, error)
}

// BcryptHasher は bcrypt による Hasher 実装です。並行に呼び出しても安全です。
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher は BcryptHasher を作成します。cost が範囲外なら DefaultCost を使います。
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash は bcrypt ハッシュを返します。72バイトを超えるパスワードはエラーになります。
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", oops.Code(CodeHashingFailed).
			With("operation", "hash password").
			Wrap(err)
	}
	return string(hashed), nil
}

// Verify は平文とハッシュを定数時間で比較します。
func (h *BcryptHasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.Code(CodeHashingFailed).
		With("operation", "verify password").
		Wrap(err)
}

// IsHashingFailure は err がハッシュ処理の失敗かどうかを判定します。
func IsHashingFailure(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == CodeHashingFailed
}

var _ Hasher = (*BcryptHasher)(nil)
