package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pokedex/internal/catalog"
	"github.com/hitoshi/pokedex/internal/middleware"
	"github.com/hitoshi/pokedex/internal/model"
	"github.com/hitoshi/pokedex/internal/user"
)

// ProfileReader はログイン中アカウントのプロフィールを取得するインターフェース。
type ProfileReader interface {
	Profile(ctx context.Context, email string) (*user.Profile, error)
}

// SampleProvider はランディングページに表示するカタログのサンプルを返すインターフェース。
type SampleProvider interface {
	Samples(ctx context.Context, collectionIDs []string) []catalog.Item
}

// SessionEnder はセッションを破棄するインターフェース。
type SessionEnder interface {
	End(ctx context.Context) error
}

var (
	_ ProfileReader  = (*user.Service)(nil)
	_ SampleProvider = (*catalog.Sampler)(nil)
)

// HomeHandler はランディングページのHTTPハンドラー。
type HomeHandler struct {
	profiles ProfileReader
	samples  SampleProvider
	sessions SessionEnder
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(profiles ProfileReader, samples SampleProvider, sessions SessionEnder) *HomeHandler {
	return &HomeHandler{
		profiles: profiles,
		samples:  samples,
		sessions: sessions,
	}
}

// Landing はログイン後のランディングページを表示する。
// カタログの参照に失敗しても表示は継続し、認証状態には影響しない。
// GET /
func (h *HomeHandler) Landing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email, err := middleware.EmailFromContext(ctx)
	if err != nil {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	profile, err := h.profiles.Profile(ctx, email)
	if errors.Is(err, user.ErrAccountNotFound) {
		endOrphanSession(ctx, h.sessions, email)
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}
	if err != nil {
		slog.Error("failed to load profile",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		renderErrorPage(w, http.StatusInternalServerError, model.NewInternalError().Message)
		return
	}

	renderPage(w, http.StatusOK, "home.html", pageView{
		Title:     "ポケモン図鑑",
		CSRFToken: middleware.CSRFToken(ctx),
		Email:     profile.Email,
		Items:     h.samples.Samples(ctx, profile.ItemIDs),
	})
}

// endOrphanSession はアカウントが削除済みのセッションを破棄する。
func endOrphanSession(ctx context.Context, sessions SessionEnder, email string) {
	slog.Warn("session bound to missing account", slog.String("email", email))
	if err := sessions.End(ctx); err != nil {
		slog.Error("failed to end session", slog.String("error", err.Error()))
	}
}
