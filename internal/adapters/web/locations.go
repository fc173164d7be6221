package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLocations(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) locationStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetLocationStock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetDashboard(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
