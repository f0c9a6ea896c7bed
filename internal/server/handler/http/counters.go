package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/middleware"
	"github.com/atinyakov/GophTally/internal/models"
)

// CounterService defines the counter operations required by the CounterHandler.
type CounterService interface {
	List(ctx context.Context, userID string) ([]models.Counter, error)
	Create(ctx context.Context, userID string, c models.Counter) (string, error)
	Update(ctx context.Context, userID, id string, patch models.CounterPatch) error
	Increment(ctx context.Context, userID, id string, amount int64) error
	Delete(ctx context.Context, userID, id string) error
	BatchUpdate(ctx context.Context, userID string, updates []models.CounterUpdate) error
	Replace(ctx context.Context, userID string, counters []models.Counter) error
}

// CounterHandler handles the /api/counters routes.
type CounterHandler struct {
	CounterService CounterService
}

// List handles GET /api/counters.
func (h *CounterHandler) List(w http.ResponseWriter, r *http.Request) {
	counters, err := h.CounterService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counters)
}

// Create handles POST /api/counters.
func (h *CounterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Count       int64    `json:"count"`
		Labels      []string `json:"labels"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	id, err := h.CounterService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), models.Counter{
		Name:        req.Name,
		Description: req.Description,
		Count:       req.Count,
		Labels:      req.Labels,
	})
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// Update handles PATCH /api/counters/{id}.
func (h *CounterHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.CounterPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		domainerrors.Write(w, err)
		return
	}
	err := h.CounterService.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Increment handles POST /api/counters/{id}/increment.
func (h *CounterHandler) Increment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount *int64 `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	if req.Amount == nil {
		domainerrors.Write(w, domainerrors.InvalidArgument("amount is required"))
		return
	}
	err := h.CounterService.Increment(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), *req.Amount)
	if err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/counters/{id}.
func (h *CounterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.CounterService.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Batch handles POST /api/counters/batch.
func (h *CounterHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Updates []models.CounterUpdate `json:"updates"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	if err := h.CounterService.BatchUpdate(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Updates); err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Replace handles PUT /api/counters.
func (h *CounterHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Counters *[]models.Counter `json:"counters"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		domainerrors.Write(w, err)
		return
	}
	if req.Counters == nil {
		domainerrors.Write(w, domainerrors.InvalidArgument("counters is required"))
		return
	}
	if err := h.CounterService.Replace(r.Context(), middleware.GetUserIDFromContext(r.Context()), *req.Counters); err != nil {
		domainerrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
