package auth

import "github.com/samber/oops"

// エラーコード
const (
	CodeStoreFailure         = "AUTH_STORE_FAILURE"
	CodeSerializationFailure = "SESSION_SERIALIZATION_FAILED"
)

func storeFailure(err error, operation string) error {
	return oops.Code(CodeStoreFailure).
		With("operation", operation).
		Wrap(err)
}

// IsStoreFailure は認証情報ストアまたはセッションストアの障害かどうかを判定します。
func IsStoreFailure(err error) bool {
	return hasCode(err, CodeStoreFailure)
}

// IsSerializationFailure はセッションの内容からユーザーを復元できなかったかどうかを判定します。
func IsSerializationFailure(err error) bool {
	return hasCode(err, CodeSerializationFailure)
}

func hasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
