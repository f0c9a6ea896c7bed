package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	domainerrors "github.com/atinyakov/GophTally/internal/errors"
	"github.com/atinyakov/GophTally/internal/middleware"
)

// LiveHub serves snapshot streams.
type LiveHub interface {
	Has(collection string) bool
	Serve(ctx context.Context, conn *websocket.Conn, userID, collection string)
}

// SubscribeHandler upgrades GET /api/subscribe/{collection} to a snapshot stream.
type SubscribeHandler struct {
	Hub      LiveHub
	Upgrader websocket.Upgrader
	Logger   *zap.Logger
}

// Subscribe handles GET /api/subscribe/{collection}.
func (h *SubscribeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if !h.Hub.Has(collection) {
		domainerrors.Write(w, domainerrors.Newf(domainerrors.CodeNotFound, "unknown collection %q", collection))
		return
	}
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request
		h.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	h.Hub.Serve(r.Context(), conn, middleware.GetUserIDFromContext(r.Context()), collection)
}
