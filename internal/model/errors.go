// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, google, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeSessionExpired    = "SESSION_EXPIRED"
	ErrCodeStateMismatch     = "STATE_MISMATCH"
	ErrCodeNotLinked         = "GOOGLE_NOT_LINKED"
	ErrCodeReauthRequired    = "REAUTH_REQUIRED"
	ErrCodeRefreshRejected   = "REFRESH_REJECTED"
	ErrCodeInsufficientScope = "INSUFFICIENT_PERMISSIONS"
	ErrCodeResourceNotFound  = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeGoogleAPIError    = "GOOGLE_API_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証失敗エラーを生成する。
// セッショントークンの欠落・不正・期限切れの場合に使用する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewSessionExpiredError はセッション期限切れエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewStateMismatchError はOAuth stateパラメータ不一致エラーを生成する。
func NewStateMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeStateMismatch,
		Message:  "OAuth stateパラメータが一致しません。",
		Category: "auth",
		Action:   "ログインを最初からやり直してください。",
	}
}

// NewNotLinkedError はGoogleアカウント未連携エラーを生成する。
func NewNotLinkedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotLinked,
		Message:  "Googleアカウントのトークンが見つかりません。",
		Category: "auth",
		Action:   "Googleで再認証してください。",
	}
}

// NewReauthRequiredError は再認証必須エラーを生成する。
// リフレッシュトークンなしで期限切れになった場合、
// またはリフレッシュトークンが無効・失効した場合に使用する。
func NewReauthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeReauthRequired,
		Message:  "Googleトークンの有効期限が切れており、更新できません。",
		Category: "auth",
		Action:   "Googleで再認証してください。",
	}
}

// NewRefreshRejectedError はリフレッシュトークン拒否エラーを生成する。
func NewRefreshRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeRefreshRejected,
		Message:  "リフレッシュトークンが無効化または失効しています。",
		Category: "auth",
		Action:   "Googleで再認証してください。",
	}
}

// NewInsufficientScopeError は権限不足エラーを生成する。
func NewInsufficientScopeError() *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientScope,
		Message:  "この操作に必要な権限が付与されていません。",
		Category: "google",
		Action:   "必要なスコープを許可して再認証してください。",
	}
}

// NewResourceNotFoundError はGoogle側リソース未検出エラーを生成する。
func NewResourceNotFoundError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeResourceNotFound,
		Message:  fmt.Sprintf("指定されたリソースが見つかりません: %s", resource),
		Category: "google",
		Action:   "IDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewGoogleAPIError はその他のGoogle APIエラーを生成する。
// 生のベンダーメッセージを添付する。
func NewGoogleAPIError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeGoogleAPIError,
		Message:  fmt.Sprintf("Google APIエラー: %s", detail),
		Category: "google",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
