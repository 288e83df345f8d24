package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/pokedex/internal/auth"
	"github.com/hitoshi/pokedex/internal/middleware"
	"github.com/hitoshi/pokedex/internal/session"
)

// SessionLayer はルーターが使うセッション操作をまとめたインターフェース。
// session.Managerが満たす。
type SessionLayer interface {
	SessionBinder
	LoadAndSave(next http.Handler) http.Handler
	Start(ctx context.Context)
}

var _ SessionLayer = (*session.Manager)(nil)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	Sessions          SessionLayer
	Flash             ErrorChannel
	RateLimiter       *middleware.RateLimiter
	CSRF              middleware.CSRFConfig
	CORSAllowedOrigin string

	// 認証
	Resolver    AuthResolver
	Provider    auth.OAuthProvider
	Correlation CorrelationIssuer
	Recorder    AuthRecorder

	// ランディングページとAPI
	Profiles ProfileReader
	Samples  SampleProvider

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → RealIP → Session(LoadAndSave) → Logging → StartSession → CSRF
//
// Loggingは応答後のセッションからemailを読むため、LoadAndSaveの内側に置く。
// /health と /metrics はセッションを作らないようチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CSRF.CookieSecure))
	r.Use(chimw.RealIP)

	authHandler := NewAuthHandler(AuthHandlerDeps{
		Resolver:    deps.Resolver,
		Provider:    deps.Provider,
		Correlation: deps.Correlation,
		Sessions:    deps.Sessions,
		Flash:       deps.Flash,
		Recorder:    deps.Recorder,
	})
	homeHandler := NewHomeHandler(deps.Profiles, deps.Samples, deps.Sessions)
	userHandler := NewUserHandler(deps.Profiles, deps.Sessions)

	// --- セッション不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.LoadAndSave)
		r.Use(middleware.NewLoggingMiddleware(logger, deps.Sessions))
		r.Use(middleware.NewStartSessionMiddleware(deps.Sessions))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		// --- 認証フロー ---
		// ミドルウェアスタック: RateLimit(Auth)、資格情報の送信はRateLimit(Credential)を追加
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())

			r.Get("/login", authHandler.LoginForm)
			r.Get("/register", authHandler.RegisterForm)
			r.With(deps.RateLimiter.CredentialMiddleware()).Post("/login/local", authHandler.LocalLogin)
			r.With(deps.RateLimiter.CredentialMiddleware()).Post("/register/local", authHandler.LocalRegister)

			// Google OAuthフロー（コールバックはログインと登録で共通）
			r.Get("/login/google", authHandler.GoogleLogin)
			r.Get("/register/google", authHandler.GoogleRegister)
			r.Get("/login/google/redirect", authHandler.GoogleCallback)

			r.Post("/logout", authHandler.Logout)
		})

		// --- 認証が必要なページ ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAuthMiddleware(deps.Sessions, loginPath))
			r.Get("/", homeHandler.Landing)
		})

		// --- API ---
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))
			r.With(middleware.NewRequireAPIAuthMiddleware(deps.Sessions)).Get("/auth/me", userHandler.Me)
		})
	})

	return r
}
