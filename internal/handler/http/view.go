package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NateWesth/aleph-order-tracker/internal/view"
	"github.com/go-chi/chi/v5"
)

type ViewService interface {
	// Snapshot returns the rendered order list of the named view
	Snapshot(ctx context.Context, name string) (json.RawMessage, error)
}

// ViewHandler represents HTTP handler for denormalized view requests
type ViewHandler struct {
	svc ViewService
}

// NewViewHandler creates new ViewHandler instance
func NewViewHandler(svc ViewService) *ViewHandler {
	return &ViewHandler{svc: svc}
}

// GetViewOrders serves the named view's current order list
// 200 — success;
// 404 — unknown view;
// 500 — internal error.
func (vh *ViewHandler) GetViewOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "view")

		snapshot, err := vh.svc.Snapshot(r.Context(), name)
		if err != nil {
			if errors.Is(err, view.ErrUnknownView) {
				writeError(w, http.StatusNotFound, "unknown view")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(snapshot)
	}
}
