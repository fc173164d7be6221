package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pharmastock/internal/app"
)

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	var kind *string
	if k := r.URL.Query().Get("kind"); k != "" {
		kind = &k
	}
	result, err := h.svc.ListItems(r.Context(), kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) registerItem(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	var req app.RegisterItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RegisterItem(r.Context(), *ident, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	var req app.UpdateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateItem(r.Context(), *ident, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) itemHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "limit must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		limit = n
	}
	result, err := h.svc.GetItemHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
