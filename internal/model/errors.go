// Package model はドメインモデルを定義する。
package model

import "fmt"

// AuthError は認証・認可の失敗を分類済みのエラー種別として表す。
// 暗号処理やパース処理の生のエラーメッセージをクライアントに
// 漏らさないため、すべての失敗はこの分類を通して表現する。
type AuthError struct {
	Kind    string // エラー種別コード
	Message string // クライアントに返すメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// 定義済みエラー種別
const (
	KindInvalidCredentials    = "INVALID_CREDENTIALS"
	KindMalformedCredential   = "MALFORMED_CREDENTIAL"
	KindTokenExpired          = "TOKEN_EXPIRED"
	KindTokenInvalidSignature = "TOKEN_INVALID_SIGNATURE"
	KindTokenUnsupported      = "TOKEN_UNSUPPORTED"
	KindPrincipalNotFound     = "PRINCIPAL_NOT_FOUND"
	KindUsernameTaken         = "USERNAME_TAKEN"
	KindValidationFailed      = "VALIDATION_FAILED"
	KindInternalError         = "INTERNAL_ERROR"
)

// ErrInvalidCredentials はユーザー名不存在とパスワード不一致を区別せずに返す。
// ユーザー名の存在推測（username enumeration）を防ぐため、呼び出し側でも
// この2つを区別してはならない。
var ErrInvalidCredentials = &AuthError{
	Kind:    KindInvalidCredentials,
	Message: "Invalid credentials",
}

// ErrUsernameTaken は登録時のユーザー名重複を表す。
var ErrUsernameTaken = &AuthError{
	Kind:    KindUsernameTaken,
	Message: "Username already exists",
}

// ErrPrincipalNotFound はトークンの主体に対応するユーザーが
// 既に存在しない場合を表す。
var ErrPrincipalNotFound = &AuthError{
	Kind:    KindPrincipalNotFound,
	Message: "User associated with token not found",
}

// NewValidationError は入力検証の失敗を生成する。
func NewValidationError(message string) *AuthError {
	return &AuthError{
		Kind:    KindValidationFailed,
		Message: message,
	}
}
