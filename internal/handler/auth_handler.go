// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/pokedex/internal/auth"
	"github.com/hitoshi/pokedex/internal/metrics"
	"github.com/hitoshi/pokedex/internal/middleware"
	"github.com/hitoshi/pokedex/internal/model"
	"github.com/hitoshi/pokedex/internal/session"
)

const (
	landingPath  = "/"
	loginPath    = "/login"
	registerPath = "/register"
)

// 認証方式ごとのメトリクスラベル
const (
	strategyLocalLogin           = "local_login"
	strategyLocalRegistration    = "local_registration"
	strategyProviderLogin        = "provider_login"
	strategyProviderRegistration = "provider_registration"
)

// providerDeniedError はユーザーが同意画面で拒否した場合にGoogleが返すerrorパラメータ。
const providerDeniedError = "access_denied"

// AuthResolver は認証判定のインターフェース。
type AuthResolver interface {
	LocalLogin(ctx context.Context, email, secret string) (auth.Result, error)
	ProviderLogin(ctx context.Context, claim string) (auth.Result, error)
	ProviderRegistration(ctx context.Context, claim string) (auth.Result, error)
	LocalRegistration(ctx context.Context, email, secret, confirm string) (auth.Result, error)
}

// CorrelationIssuer はGoogleのstateに載せる相関トークンの発行・検証インターフェース。
type CorrelationIssuer interface {
	Mint(flow auth.Flow) (token string, nonce string, err error)
	Verify(token, nonce string) (auth.Flow, error)
}

// SessionBinder は認証ハンドラーが使うセッション操作のインターフェース。
type SessionBinder interface {
	Bind(ctx context.Context, email string) error
	End(ctx context.Context) error
	CurrentIdentity(ctx context.Context) (string, bool)
	PutCorrelationNonce(ctx context.Context, nonce string)
	PopCorrelationNonce(ctx context.Context) string
}

// ErrorChannel は次の画面表示で1回だけ見せるエラーメッセージのインターフェース。
type ErrorChannel interface {
	Set(ctx context.Context, msg string)
	TakeAndClear(ctx context.Context) (string, bool)
}

// AuthRecorder は認証のメトリクスを記録するインターフェース。
type AuthRecorder interface {
	RecordAuthAttempt(strategy, outcome string)
	RecordProviderExchange(duration time.Duration, err error)
}

var (
	_ AuthResolver      = (*auth.Resolver)(nil)
	_ CorrelationIssuer = (*auth.CorrelationIssuer)(nil)
	_ SessionBinder     = (*session.Manager)(nil)
	_ ErrorChannel      = (*session.ErrorChannel)(nil)
	_ AuthRecorder      = (*metrics.Collector)(nil)
)

// AuthHandlerDeps はAuthHandlerの依存関係。
type AuthHandlerDeps struct {
	Resolver    AuthResolver
	Provider    auth.OAuthProvider
	Correlation CorrelationIssuer
	Sessions    SessionBinder
	Flash       ErrorChannel
	Recorder    AuthRecorder
}

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	resolver    AuthResolver
	provider    auth.OAuthProvider
	correlation CorrelationIssuer
	sessions    SessionBinder
	flash       ErrorChannel
	recorder    AuthRecorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(deps AuthHandlerDeps) *AuthHandler {
	return &AuthHandler{
		resolver:    deps.Resolver,
		provider:    deps.Provider,
		correlation: deps.Correlation,
		sessions:    deps.Sessions,
		flash:       deps.Flash,
		recorder:    deps.Recorder,
	}
}

// LoginForm はログインフォームを表示する。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "login.html", "ログイン")
}

// RegisterForm は新規登録フォームを表示する。
// GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "register.html", "新規登録")
}

func (h *AuthHandler) renderForm(w http.ResponseWriter, r *http.Request, name, title string) {
	if _, ok := h.sessions.CurrentIdentity(r.Context()); ok {
		http.Redirect(w, r, landingPath, http.StatusFound)
		return
	}

	msg, _ := h.flash.TakeAndClear(r.Context())
	renderPage(w, http.StatusOK, name, pageView{
		Title:     title,
		CSRFToken: middleware.CSRFToken(r.Context()),
		Error:     msg,
	})
}

// LocalLogin はメールアドレスとパスワードでログインする。
// POST /login/local
func (h *AuthHandler) LocalLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.resolver.LocalLogin(r.Context(),
		r.PostFormValue("email"),
		r.PostFormValue("password"),
	)
	h.complete(w, r, strategyLocalLogin, loginPath, result, err)
}

// LocalRegister はメールアドレスとパスワードで新規登録する。
// POST /register/local
func (h *AuthHandler) LocalRegister(w http.ResponseWriter, r *http.Request) {
	result, err := h.resolver.LocalRegistration(r.Context(),
		r.PostFormValue("email"),
		r.PostFormValue("password"),
		r.PostFormValue("confirm-password"),
	)
	h.complete(w, r, strategyLocalRegistration, registerPath, result, err)
}

// GoogleLogin はログインとしてGoogle OAuthフローを開始する。
// GET /login/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.beginProvider(w, r, auth.FlowLogin)
}

// GoogleRegister は新規登録としてGoogle OAuthフローを開始する。
// GET /register/google
func (h *AuthHandler) GoogleRegister(w http.ResponseWriter, r *http.Request) {
	h.beginProvider(w, r, auth.FlowRegister)
}

func (h *AuthHandler) beginProvider(w http.ResponseWriter, r *http.Request, flow auth.Flow) {
	token, nonce, err := h.correlation.Mint(flow)
	if err != nil {
		slog.Error("failed to mint correlation token",
			slog.String("flow", string(flow)),
			slog.String("error", err.Error()),
		)
		renderErrorPage(w, http.StatusInternalServerError, model.NewInternalError().Message)
		return
	}

	h.sessions.PutCorrelationNonce(r.Context(), nonce)
	http.Redirect(w, r, h.provider.GetLoginURL(token), http.StatusFound)
}

// GoogleCallback はGoogleからのコールバックを処理する。
// ログインと登録で共通のURLのため、stateの相関トークンからどちらのフローかを判定する。
// GET /login/google/redirect?state=xxx&code=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	// nonceは検証結果にかかわらず消費する
	nonce := h.sessions.PopCorrelationNonce(ctx)
	flow, err := h.correlation.Verify(query.Get("state"), nonce)
	if err != nil {
		slog.Warn("correlation token rejected", slog.String("error", err.Error()))
		renderErrorPage(w, http.StatusBadRequest, "認証リクエストが無効か期限切れです。もう一度お試しください。")
		return
	}

	strategy, formPath := strategyProviderLogin, loginPath
	if flow == auth.FlowRegister {
		strategy, formPath = strategyProviderRegistration, registerPath
	}

	if providerErr := query.Get("error"); providerErr != "" {
		if providerErr == providerDeniedError {
			h.reject(w, r, strategy, formPath, model.NewProviderDeniedError())
			return
		}
		h.fail(w, r, strategy, errors.New("provider returned error: "+providerErr))
		return
	}

	code := query.Get("code")
	if code == "" {
		renderErrorPage(w, http.StatusBadRequest, "認可コードがありません。")
		return
	}

	start := time.Now()
	info, err := h.provider.ExchangeCode(ctx, code)
	if errors.Is(err, auth.ErrEmailNotVerified) {
		h.recorder.RecordProviderExchange(time.Since(start), nil)
		h.reject(w, r, strategy, formPath, model.NewEmailNotVerifiedError())
		return
	}
	h.recorder.RecordProviderExchange(time.Since(start), err)
	if err != nil {
		h.fail(w, r, strategy, err)
		return
	}

	var result auth.Result
	if flow == auth.FlowRegister {
		result, err = h.resolver.ProviderRegistration(ctx, info.Email)
	} else {
		result, err = h.resolver.ProviderLogin(ctx, info.Email)
	}
	h.complete(w, r, strategy, formPath, result, err)
}

// Logout はセッションを破棄してログインフォームへリダイレクトする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context()); err != nil {
		// 破棄に失敗しても期限切れで消えるため、利用者はログイン画面へ戻す
		slog.Error("failed to end session", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// complete は判定結果に応じてセッションの紐付け、またはエラー通知を行う。
func (h *AuthHandler) complete(w http.ResponseWriter, r *http.Request, strategy, formPath string, result auth.Result, err error) {
	switch {
	case err != nil:
		h.fail(w, r, strategy, err)
		return
	case result.Rejection != nil:
		h.reject(w, r, strategy, formPath, result.Rejection)
		return
	case !result.OK():
		h.fail(w, r, strategy, errors.New("resolver returned neither identity nor rejection"))
		return
	}

	if err := h.sessions.Bind(r.Context(), result.Email); err != nil {
		h.fail(w, r, strategy, err)
		return
	}
	h.recorder.RecordAuthAttempt(strategy, metrics.OutcomeAuthenticated)

	if acceptsJSON(r) {
		writeJSON(w, http.StatusOK, authResponse{Success: true})
		return
	}
	http.Redirect(w, r, landingPath, http.StatusSeeOther)
}

// reject は拒否理由をエラーチャネルに設定してフォームへ戻す。
func (h *AuthHandler) reject(w http.ResponseWriter, r *http.Request, strategy, formPath string, reason *model.APIError) {
	h.recorder.RecordAuthAttempt(strategy, reason.Code)

	if acceptsJSON(r) {
		writeJSON(w, mapAPIErrorToHTTPStatus(reason), authResponse{
			Success: false,
			Code:    reason.Code,
			Message: reason.Message,
			Field:   reason.Field,
		})
		return
	}

	h.flash.Set(r.Context(), reason.Message)
	http.Redirect(w, r, formPath, http.StatusSeeOther)
}

// fail は基盤障害を記録し、汎用のエラーページを返す。セッションは紐付けない。
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, strategy string, err error) {
	slog.Error("authentication failed",
		slog.String("strategy", strategy),
		slog.String("error", err.Error()),
	)
	h.recorder.RecordAuthAttempt(strategy, metrics.OutcomeError)

	if acceptsJSON(r) {
		middleware.WriteInternalServerError(w)
		return
	}
	renderErrorPage(w, http.StatusInternalServerError, model.NewInternalError().Message)
}
