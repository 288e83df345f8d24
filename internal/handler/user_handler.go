package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pokedex/internal/middleware"
	"github.com/hitoshi/pokedex/internal/model"
	"github.com/hitoshi/pokedex/internal/user"
)

// UserHandler はログイン中アカウントのAPIハンドラー。
type UserHandler struct {
	profiles ProfileReader
	sessions SessionEnder
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(profiles ProfileReader, sessions SessionEnder) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		sessions: sessions,
	}
}

// Me は現在のログインアカウントのプロフィールを返す。
// GET /api/auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.profiles.Profile(r.Context(), email)
	if errors.Is(err, user.ErrAccountNotFound) {
		endOrphanSession(r.Context(), h.sessions, email)
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	if err != nil {
		slog.Error("failed to load profile",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
