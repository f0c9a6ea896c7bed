package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/middleware"
	"github.com/atinyakov/GophTally/internal/models"
)

// LabelService defines the label operations required by the LabelHandler.
type LabelService interface {
	List(ctx context.Context, userID string) ([]models.Label, error)
	Create(ctx context.Context, userID string, l models.Label) (string, error)
	Update(ctx context.Context, userID, id string, patch models.LabelPatch) error
	Delete(ctx context.Context, userID, id string) error
}

// LabelHandler handles the /api/labels routes.
type LabelHandler struct {
	LabelService LabelService
}

// List handles GET /api/labels.
func (h *LabelHandler) List(w http.ResponseWriter, r *http.Request) {
	labels, err := h.LabelService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

// Create handles POST /api/labels.
func (h *LabelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	id, err := h.LabelService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), models.Label{Name: req.Name, Color: req.Color})
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// Update handles PATCH /api/labels/{id}.
func (h *LabelHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.LabelPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		domainerrors.Write(w, err)
		return
	}
	if err := h.LabelService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), patch); err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/labels/{id}.
func (h *LabelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.LabelService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
