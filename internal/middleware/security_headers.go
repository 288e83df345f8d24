package middleware

import "net/http"

// contentSecurityPolicy はログイン・登録・ホームの各ページ向けのCSP。
// ページはインラインスクリプトを持たない。画像はカタログのスプライトURLを許可する。
const contentSecurityPolicy = "default-src 'self'; img-src 'self' https:; form-action 'self' https://accounts.google.com; frame-ancestors 'none'"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// hstsがtrueの場合（BASE_URLがhttps）はStrict-Transport-Securityも付与する。
// 認証状態によって内容が変わるため、レスポンスはキャッシュさせない。
func NewSecurityHeadersMiddleware(hsts bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			h.Set("Cache-Control", "no-store")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
