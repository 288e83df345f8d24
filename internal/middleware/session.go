// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/pokedex/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// emailContextKey はリクエストコンテキストに認証済みメールアドレスを格納するためのキー。
var emailContextKey = contextKey("email")

// IdentityReader はセッションから認証済みメールアドレスを読み取るインターフェース。
// session.Managerの部分集合として定義する。
type IdentityReader interface {
	CurrentIdentity(ctx context.Context) (string, bool)
}

// SessionStarter は識別情報を持たないセッションを開始するインターフェース。
type SessionStarter interface {
	Start(ctx context.Context)
}

// NewStartSessionMiddleware は未開始のセッションを開始するミドルウェアを返す。
// session.Manager.LoadAndSaveの内側で使用する。
func NewStartSessionMiddleware(starter SessionStarter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			starter.Start(r.Context())
			next.ServeHTTP(w, r)
		})
	}
}

// NewRequireAuthMiddleware は認証済みセッションを要求するミドルウェアを返す。
// 未認証の場合はloginPathへリダイレクトする。
// 認証済みメールアドレスをリクエストコンテキストに注入する。
func NewRequireAuthMiddleware(identity IdentityReader, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := identity.CurrentIdentity(r.Context())
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithEmail(r.Context(), email)))
		})
	}
}

// NewRequireAPIAuthMiddleware はAPI向けの認証ミドルウェアを返す。
// 未認証の場合は401 Unauthorizedを統一エラーフォーマットで返す。
func NewRequireAPIAuthMiddleware(identity IdentityReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := identity.CurrentIdentity(r.Context())
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithEmail(r.Context(), email)))
		})
	}
}

// EmailFromContext はリクエストコンテキストから認証済みメールアドレスを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func EmailFromContext(ctx context.Context) (string, error) {
	email, ok := ctx.Value(emailContextKey).(string)
	if !ok || email == "" {
		return "", fmt.Errorf("email not found in context")
	}
	return email, nil
}

// ContextWithEmail はコンテキストにメールアドレスを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailContextKey, email)
}
