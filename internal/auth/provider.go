// Package auth はローカル認証とGoogle OAuthによる認証の判定ロジックを提供する。
package auth

import (
	"context"
	"errors"
)

// ErrEmailNotVerified はIdPが確認済みのメールアドレスを返さなかったことを表す。
var ErrEmailNotVerified = errors.New("email claim is not verified")

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL は相関トークンをstateに含めた認可URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、確認済みのメールアドレスを含むユーザー情報を返す。
	// メールアドレスが未確認の場合はErrEmailNotVerifiedを返す。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}
