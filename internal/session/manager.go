// Package session はscsを使ったサーバーサイドセッションと、1回限りのエラーメッセージ通知を提供する。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// CookieName はセッショントークンを運ぶCookie名。
const CookieName = "session_id"

// セッションに保存するキー
const (
	startedKey  = "session.started_at"
	identityKey = "auth.email"
	nonceKey    = "auth.correlation_nonce"
	flashKey    = "auth.flash"
)

// Config はセッションCookieと有効期限の設定。
type Config struct {
	IdleTimeout  time.Duration
	Lifetime     time.Duration
	CookieDomain string
	CookieSecure bool
}

// NewSessionManager はstoreを永続化先とするscs.SessionManagerを生成する。
func NewSessionManager(store scs.Store, cfg Config) *scs.SessionManager {
	sm := scs.New()
	sm.Store = store
	sm.IdleTimeout = cfg.IdleTimeout
	if cfg.Lifetime > 0 {
		sm.Lifetime = cfg.Lifetime
	}
	sm.Cookie.Name = CookieName
	sm.Cookie.Domain = cfg.CookieDomain
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.CookieSecure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("session store error",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
	return sm
}

// Manager はセッションへの識別情報の紐付けと破棄を管理する。
// 状態はAnonymousとAuthenticatedの2つで、BindとEndでのみ遷移する。
type Manager struct {
	sm *scs.SessionManager
}

// NewManager はManagerを生成する。
func NewManager(sm *scs.SessionManager) *Manager {
	return &Manager{sm: sm}
}

// LoadAndSave はリクエストごとにセッションを読み込み、応答前に保存するミドルウェアを返す。
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(next)
}

// Start は識別情報を持たないセッションを開始する。既に開始済みの場合は何もしない。
func (m *Manager) Start(ctx context.Context) {
	if !m.sm.Exists(ctx, startedKey) {
		m.sm.Put(ctx, startedKey, time.Now().Unix())
	}
}

// Bind はセッションを認証済みにする。
// セッション固定攻撃を防ぐため、紐付け前にトークンを再発行する。
func (m *Manager) Bind(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("cannot bind empty identity")
	}
	if err := m.sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}
	m.sm.Put(ctx, identityKey, email)
	return nil
}

// CurrentIdentity はセッションに紐付いたメールアドレスを返す。
func (m *Manager) CurrentIdentity(ctx context.Context) (string, bool) {
	email := m.sm.GetString(ctx, identityKey)
	return email, email != ""
}

// IsAuthenticated はセッションが認証済みかを返す。
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.CurrentIdentity(ctx)
	return ok
}

// End はセッションを破棄する。
func (m *Manager) End(ctx context.Context) error {
	if err := m.sm.Destroy(ctx); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// PutCorrelationNonce はGoogleへのリダイレクト時に発行したnonceを保存する。
func (m *Manager) PutCorrelationNonce(ctx context.Context, nonce string) {
	m.sm.Put(ctx, nonceKey, nonce)
}

// PopCorrelationNonce は保存済みのnonceを取り出して削除する。
// 同じ相関トークンでコールバックを2回処理させないために取り出し時に消す。
func (m *Manager) PopCorrelationNonce(ctx context.Context) string {
	return m.sm.PopString(ctx, nonceKey)
}
