// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// パスワード・ハッシュ・プロバイダートークンをメッセージに含めてはならない。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePasswordMismatch    = "PASSWORD_MISMATCH"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeProviderDenied      = "PROVIDER_DENIED"
	ErrCodeProviderUnreachable = "PROVIDER_UNREACHABLE"
	ErrCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
)

// NewPasswordMismatchError はパスワード確認不一致エラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "パスワードと確認用パスワードが一致しません。",
		Category: "validation",
		Action:   "同じパスワードを2回入力してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名で登録するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー名列挙攻撃を防ぐため、「ユーザーが存在しない」と
// 「パスワードが違う」を呼び出し側で区別させない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewProviderDeniedError はユーザーが同意を拒否した場合のエラーを生成する。
func NewProviderDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderDenied,
		Message:  "外部プロバイダーでの認証がキャンセルされました。",
		Category: "provider",
		Action:   "通常のログインを利用するか、再度お試しください。",
	}
}

// NewProviderUnreachableError はプロバイダーへの通信失敗エラーを生成する。
// タイムアウトも同一のエラーとして扱う。
func NewProviderUnreachableError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderUnreachable,
		Message:  "外部プロバイダーとの通信に失敗しました。",
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewStoreUnavailableError はストレージ障害エラーを生成する。
// 自動リトライは行わず、対象リクエストのみ失敗させる。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データストアにアクセスできません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnauthenticatedError は未認証アクセスを表すエラーを生成する。
// 障害ではなく、ログインページへの誘導が正常な処理となる。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}
