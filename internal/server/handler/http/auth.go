// Package http provides the document store's HTTP handlers and router.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/middleware"
	"github.com/atinyakov/GophTally/internal/models"
	"github.com/atinyakov/GophTally/internal/service"
)

// AuthService defines the account operations required by the HTTP handlers.
type AuthService interface {
	SignUp(ctx context.Context, req service.SignUpRequest) (*models.Identity, error)
	SignIn(ctx context.Context, req service.SignInRequest) (*models.Identity, error)
	SignInWithProvider(ctx context.Context, provider string) (*models.Identity, error)
	SignOut(ctx context.Context, c *service.Claims)
	ResetPassword(ctx context.Context, email string) error
	Me(ctx context.Context, userID string) (*models.Identity, error)
	GetPreferences(ctx context.Context, userID string) (models.Preferences, error)
	UpdatePreferences(ctx context.Context, userID string, p models.Preferences) error
}

// AuthHandler handles sign-up, sign-in and session requests.
type AuthHandler struct {
	AuthService AuthService
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	id, err := h.AuthService.SignUp(r.Context(), req)
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, id)
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	id, err := h.AuthService.SignIn(r.Context(), req)
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// Provider handles POST /api/auth/provider/{name}.
func (h *AuthHandler) Provider(w http.ResponseWriter, r *http.Request) {
	id, err := h.AuthService.SignInWithProvider(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	if err := h.AuthService.ResetPassword(r.Context(), req.Email); err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignOut handles POST /api/auth/signout.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if c := middleware.GetClaimsFromContext(r.Context()); c != nil {
		h.AuthService.SignOut(r.Context(), c)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := h.AuthService.Me(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// GetPreferences handles GET /api/preferences.
func (h *AuthHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.AuthService.GetPreferences(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePreferences handles PUT /api/preferences.
func (h *AuthHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var p models.Preferences
	if err := decodeJSON(w, r, &p); err != nil {
		domainerrors.Write(w, err)
		return
	}
	if err := h.AuthService.UpdatePreferences(r.Context(), middleware.GetUserIDFromContext(r.Context()), p); err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
