package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/pokedex/internal/catalog"
	"github.com/hitoshi/pokedex/internal/middleware"
	"github.com/hitoshi/pokedex/internal/model"
	"github.com/hitoshi/pokedex/internal/user"
)

type mockProfileReader struct {
	profileFn func(ctx context.Context, email string) (*user.Profile, error)
}

func (m *mockProfileReader) Profile(ctx context.Context, email string) (*user.Profile, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, email)
	}
	return &user.Profile{Email: email, Mode: model.SecretModeLocal, ItemIDs: []string{}}, nil
}

type mockSampleProvider struct {
	samplesFn func(ctx context.Context, collectionIDs []string) []catalog.Item
}

func (m *mockSampleProvider) Samples(ctx context.Context, collectionIDs []string) []catalog.Item {
	if m.samplesFn != nil {
		return m.samplesFn(ctx, collectionIDs)
	}
	return nil
}

func authedRequest(method, target, email string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.ContextWithEmail(req.Context(), email))
}

func TestHomeHandler_Landing_RendersProfileAndSamples(t *testing.T) {
	var gotIDs []string
	profiles := &mockProfileReader{
		profileFn: func(ctx context.Context, email string) (*user.Profile, error) {
			return &user.Profile{Email: email, ItemIDs: []string{"25", "133"}}, nil
		},
	}
	samples := &mockSampleProvider{
		samplesFn: func(ctx context.Context, collectionIDs []string) []catalog.Item {
			gotIDs = collectionIDs
			return []catalog.Item{
				{ID: 25, Name: "Pikachu", PrimaryType: "electric", Sprite: "https://img.example.com/25.png"},
				{ID: 133, Name: "Eevee", PrimaryType: "normal"},
			}
		},
	}
	h := NewHomeHandler(profiles, samples, &mockSessions{})

	w := httptest.NewRecorder()
	h.Landing(w, authedRequest(http.MethodGet, "/", "ash@example.com"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	for _, want := range []string{"ash@example.com", "Pikachu", "Eevee", "https://img.example.com/25.png", `action="/logout"`} {
		if !strings.Contains(body, want) {
			t.Errorf("landing page should contain %q", want)
		}
	}
	if len(gotIDs) != 2 || gotIDs[0] != "25" {
		t.Errorf("sampler got ids %v, want the collection ids", gotIDs)
	}
}

func TestHomeHandler_Landing_EscapesCatalogText(t *testing.T) {
	samples := &mockSampleProvider{
		samplesFn: func(ctx context.Context, collectionIDs []string) []catalog.Item {
			return []catalog.Item{{ID: 1, Name: "<script>alert(1)</script>"}}
		},
	}
	h := NewHomeHandler(&mockProfileReader{}, samples, &mockSessions{})

	w := httptest.NewRecorder()
	h.Landing(w, authedRequest(http.MethodGet, "/", "ash@example.com"))

	if strings.Contains(w.Body.String(), "<script>alert(1)</script>") {
		t.Error("catalog text must be escaped")
	}
}

func TestHomeHandler_Landing_NoSamples(t *testing.T) {
	h := NewHomeHandler(&mockProfileReader{}, &mockSampleProvider{}, &mockSessions{})

	w := httptest.NewRecorder()
	h.Landing(w, authedRequest(http.MethodGet, "/", "ash@example.com"))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHomeHandler_Landing_WithoutEmailRedirects(t *testing.T) {
	h := NewHomeHandler(&mockProfileReader{}, &mockSampleProvider{}, &mockSessions{})

	w := httptest.NewRecorder()
	h.Landing(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assertRedirect(t, w.Result(), http.StatusFound, "/login")
}

func TestHomeHandler_Landing_MissingAccountEndsSession(t *testing.T) {
	profiles := &mockProfileReader{
		profileFn: func(ctx context.Context, email string) (*user.Profile, error) {
			return nil, user.ErrAccountNotFound
		},
	}
	sessions := &mockSessions{email: "ghost@example.com"}
	h := NewHomeHandler(profiles, &mockSampleProvider{}, sessions)

	w := httptest.NewRecorder()
	h.Landing(w, authedRequest(http.MethodGet, "/", "ghost@example.com"))

	assertRedirect(t, w.Result(), http.StatusFound, "/login")
	if !sessions.ended {
		t.Error("session bound to a missing account should be ended")
	}
}

func TestHomeHandler_Landing_ProfileErrorReturns500(t *testing.T) {
	profiles := &mockProfileReader{
		profileFn: func(ctx context.Context, email string) (*user.Profile, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewHomeHandler(profiles, &mockSampleProvider{}, &mockSessions{})

	w := httptest.NewRecorder()
	h.Landing(w, authedRequest(http.MethodGet, "/", "ash@example.com"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
