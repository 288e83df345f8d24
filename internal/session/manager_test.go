package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

func newTestSessionManager() *scs.SessionManager {
	return NewSessionManager(memstore.New(), Config{IdleTimeout: time.Hour})
}

// sessionClient はCookieを引き継ぎながら、セッション読み込み済みのcontextでfnを実行する。
type sessionClient struct {
	t      *testing.T
	sm     *scs.SessionManager
	cookie *http.Cookie
}

func (c *sessionClient) do(fn func(ctx context.Context)) *httptest.ResponseRecorder {
	c.t.Helper()

	h := c.sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fn(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieName {
			c.cookie = ck
		}
	}
	return rec
}

func TestNewSessionManager_CookieSettings(t *testing.T) {
	sm := NewSessionManager(memstore.New(), Config{
		IdleTimeout:  time.Hour,
		Lifetime:     24 * time.Hour,
		CookieDomain: "example.com",
		CookieSecure: true,
	})

	if sm.Cookie.Name != CookieName {
		t.Errorf("Cookie.Name = %q, want %q", sm.Cookie.Name, CookieName)
	}
	if !sm.Cookie.HttpOnly || !sm.Cookie.Secure {
		t.Error("cookie must be HttpOnly and Secure")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", sm.Cookie.SameSite)
	}
	if sm.IdleTimeout != time.Hour || sm.Lifetime != 24*time.Hour {
		t.Errorf("timeouts = (%v, %v)", sm.IdleTimeout, sm.Lifetime)
	}
}

// 初回アクセスで匿名セッションが作られ、Cookieが発行される。
func TestManager_Start_IssuesCookie(t *testing.T) {
	sm := newTestSessionManager()
	m := NewManager(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) {
		m.Start(ctx)
		if m.IsAuthenticated(ctx) {
			t.Error("new session must be anonymous")
		}
	})
	if c.cookie == nil {
		t.Fatal("expected session cookie after Start")
	}
	first := c.cookie.Value

	// 2回目のStartは同じセッションを維持する
	c.do(func(ctx context.Context) { m.Start(ctx) })
	if c.cookie.Value != first {
		t.Error("Start must not replace an existing session")
	}
}

func TestManager_BindAndEnd(t *testing.T) {
	sm := newTestSessionManager()
	m := NewManager(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) { m.Start(ctx) })
	anonymousToken := c.cookie.Value

	c.do(func(ctx context.Context) {
		if err := m.Bind(ctx, "ash@example.com"); err != nil {
			t.Fatalf("Bind returned error: %v", err)
		}
	})
	if c.cookie.Value == anonymousToken {
		t.Error("Bind must renew the session token")
	}

	c.do(func(ctx context.Context) {
		email, ok := m.CurrentIdentity(ctx)
		if !ok || email != "ash@example.com" {
			t.Errorf("CurrentIdentity = (%q, %v), want (ash@example.com, true)", email, ok)
		}
		if !m.IsAuthenticated(ctx) {
			t.Error("expected authenticated session")
		}
	})

	c.do(func(ctx context.Context) {
		if err := m.End(ctx); err != nil {
			t.Fatalf("End returned error: %v", err)
		}
	})

	c.do(func(ctx context.Context) {
		if m.IsAuthenticated(ctx) {
			t.Error("session must be anonymous after End")
		}
	})
}

// 固定化攻撃: Bind前のトークンを持つ別クライアントは認証済みにならない。
func TestManager_Bind_OldTokenStaysAnonymous(t *testing.T) {
	sm := newTestSessionManager()
	m := NewManager(sm)
	victim := &sessionClient{t: t, sm: sm}

	victim.do(func(ctx context.Context) { m.Start(ctx) })
	attacker := &sessionClient{t: t, sm: sm, cookie: victim.cookie}

	victim.do(func(ctx context.Context) { m.Bind(ctx, "ash@example.com") })

	attacker.do(func(ctx context.Context) {
		if m.IsAuthenticated(ctx) {
			t.Error("pre-bind token must not be authenticated")
		}
	})
}

func TestManager_Bind_EmptyIdentity(t *testing.T) {
	sm := newTestSessionManager()
	m := NewManager(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) {
		if err := m.Bind(ctx, ""); err == nil {
			t.Error("expected error for empty identity")
		}
		if m.IsAuthenticated(ctx) {
			t.Error("session must stay anonymous")
		}
	})
}

func TestManager_CorrelationNonce_PoppedOnce(t *testing.T) {
	sm := newTestSessionManager()
	m := NewManager(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) { m.PutCorrelationNonce(ctx, "nonce-1") })
	c.do(func(ctx context.Context) {
		if got := m.PopCorrelationNonce(ctx); got != "nonce-1" {
			t.Errorf("first pop = %q, want nonce-1", got)
		}
	})
	c.do(func(ctx context.Context) {
		if got := m.PopCorrelationNonce(ctx); got != "" {
			t.Errorf("second pop = %q, want empty", got)
		}
	})
}

// アイドルタイムアウトを過ぎたセッションは匿名に戻る。
func TestManager_IdleTimeout(t *testing.T) {
	sm := NewSessionManager(memstore.New(), Config{IdleTimeout: 50 * time.Millisecond})
	m := NewManager(sm)
	c := &sessionClient{t: t, sm: sm}

	c.do(func(ctx context.Context) { m.Bind(ctx, "ash@example.com") })
	time.Sleep(100 * time.Millisecond)

	c.do(func(ctx context.Context) {
		if m.IsAuthenticated(ctx) {
			t.Error("session must expire after idle timeout")
		}
	})
}
