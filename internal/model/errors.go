// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: credential, conflict, validation, system
	Action   string // ユーザー向け対処方法
	Field    string // 入力フォーム上の対象フィールド（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryCredential = "credential"
	CategoryConflict   = "conflict"
	CategoryValidation = "validation"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeUserNotRegistered  = "USER_NOT_REGISTERED"
	ErrCodeWrongProvider      = "WRONG_PROVIDER"
	ErrCodeIncorrectSecret    = "INCORRECT_SECRET"
	ErrCodeNotRegistered      = "NOT_REGISTERED"
	ErrCodeWrongAccountType   = "WRONG_ACCOUNT_TYPE"
	ErrCodeAlreadyRegistered  = "ALREADY_REGISTERED"
	ErrCodeSecretMismatch     = "SECRET_MISMATCH"
	ErrCodeMissingCredentials = "MISSING_CREDENTIALS"
	ErrCodeSecretTooLong      = "SECRET_TOO_LONG"
	ErrCodeProviderDenied     = "PROVIDER_DENIED"
	ErrCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewUserNotRegisteredError はローカルログインで未登録のメールアドレスが指定された場合のエラーを生成する。
func NewUserNotRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotRegistered,
		Message:  "このメールアドレスは登録されていません。",
		Category: CategoryCredential,
		Action:   "メールアドレスを確認するか、新規登録してください。",
		Field:    "email",
	}
}

// NewWrongProviderError はGoogle連携アカウントにパスワードでログインしようとした場合のエラーを生成する。
func NewWrongProviderError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongProvider,
		Message:  "このメールアドレスはGoogleアカウントで登録されています。",
		Category: CategoryCredential,
		Action:   "「Googleでログイン」を使用してください。",
		Field:    "email",
	}
}

// NewIncorrectSecretError はパスワードが一致しない場合のエラーを生成する。
func NewIncorrectSecretError() *APIError {
	return &APIError{
		Code:     ErrCodeIncorrectSecret,
		Message:  "パスワードが正しくありません。",
		Category: CategoryCredential,
		Action:   "パスワードを確認して再度お試しください。",
		Field:    "password",
	}
}

// NewNotRegisteredError はGoogleログインで未登録のアカウントが指定された場合のエラーを生成する。
func NewNotRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeNotRegistered,
		Message:  "このGoogleアカウントは登録されていません。",
		Category: CategoryCredential,
		Action:   "「Googleで登録」から新規登録してください。",
	}
}

// NewWrongAccountTypeError はローカルアカウントにGoogleでログインしようとした場合のエラーを生成する。
func NewWrongAccountTypeError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongAccountType,
		Message:  "このメールアドレスはローカルアカウントとして登録されています。",
		Category: CategoryCredential,
		Action:   "メールアドレスとパスワードでログインしてください。",
	}
}

// NewAlreadyRegisteredError は登録済みのメールアドレスで再登録しようとした場合のエラーを生成する。
// existingは既存アカウントの認証方式で、メッセージの出し分けに使う。
func NewAlreadyRegisteredError(existing SecretMode) *APIError {
	if existing == SecretModeProvider {
		return &APIError{
			Code:     ErrCodeAlreadyRegistered,
			Message:  "このメールアドレスはGoogleアカウントで登録済みです。",
			Category: CategoryConflict,
			Action:   "「Googleでログイン」を使用してください。",
			Field:    "email",
		}
	}
	return &APIError{
		Code:     ErrCodeAlreadyRegistered,
		Message:  "このメールアドレスは既に登録されています。",
		Category: CategoryConflict,
		Action:   "メールアドレスとパスワードでログインしてください。",
		Field:    "email",
	}
}

// NewSecretMismatchError は確認用パスワードが一致しない場合のエラーを生成する。
func NewSecretMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeSecretMismatch,
		Message:  "パスワードと確認用パスワードが一致しません。",
		Category: CategoryValidation,
		Action:   "同じパスワードを2回入力してください。",
		Field:    "confirm-password",
	}
}

// NewMissingCredentialsError はメールアドレスまたはパスワードが未入力の場合のエラーを生成する。
func NewMissingCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredentials,
		Message:  "メールアドレスとパスワードを入力してください。",
		Category: CategoryValidation,
		Action:   "未入力の項目を入力してください。",
	}
}

// NewSecretTooLongError はパスワードがbcryptの上限長を超えている場合のエラーを生成する。
func NewSecretTooLongError(maxBytes int) *APIError {
	return &APIError{
		Code:     ErrCodeSecretTooLong,
		Message:  fmt.Sprintf("パスワードは%dバイト以内で入力してください。", maxBytes),
		Category: CategoryValidation,
		Action:   "より短いパスワードを指定してください。",
		Field:    "password",
	}
}

// NewProviderDeniedError はGoogleの同意画面でユーザーが認可を拒否した場合のエラーを生成する。
func NewProviderDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderDenied,
		Message:  "Googleアカウントでの認証がキャンセルされました。",
		Category: CategoryCredential,
		Action:   "もう一度お試しください。",
	}
}

// NewEmailNotVerifiedError はGoogleアカウントのメールアドレスが未確認の場合のエラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "Googleアカウントのメールアドレスが確認されていません。",
		Category: CategoryCredential,
		Action:   "Googleでメールアドレスの確認を済ませてから再度お試しください。",
	}
}

// NewUnauthorizedError は未ログインでAPIにアクセスした場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: CategoryCredential,
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewRateLimitedError はリクエスト数が上限を超えた場合のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が上限を超えました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーのユーザー向け表現を生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	}
}
