package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListNotifications(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// runStockChecks triggers the low-stock and expiry sweeps on demand.
func (h *Handler) runStockChecks(w http.ResponseWriter, r *http.Request) {
	raised, err := h.svc.RunStockChecks(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]int{"raised": raised})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkNotificationRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkAllNotificationsRead(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearNotifications(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
