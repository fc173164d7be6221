package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pharmastock/internal/app"
	"pharmastock/internal/core"
)

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	var typ *string
	if t := r.URL.Query().Get("type"); t != "" {
		typ = &t
	}
	result, err := h.svc.ListTransactions(r.Context(), *ident, typ)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	var req app.ReceiveStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ReceiveStock(r.Context(), *ident, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	countTransaction(string(core.TypeReceipt))
	writeCreated(w, result)
}

func (h *Handler) requestDistribution(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	var req app.DistributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.RequestDistribution(r.Context(), *ident, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	countTransaction(string(core.TypeDistribution))
	writeCreated(w, result)
}

func (h *Handler) approveDistribution(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	result, err := h.svc.ApproveDistribution(r.Context(), *ident, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) rejectDistribution(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	result, err := h.svc.RejectDistribution(r.Context(), *ident, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) completeDistribution(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	result, err := h.svc.CompleteDistribution(r.Context(), *ident, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) dispenseToPatient(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	var req app.DispensationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.DispenseToPatient(r.Context(), *ident, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	countTransaction(string(core.TypeDispensation))
	writeCreated(w, result)
}

func (h *Handler) reportDamage(w http.ResponseWriter, r *http.Request) {
	ident := identityFromContext(r.Context())
	var req app.DamageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ReportDamage(r.Context(), *ident, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	countTransaction(string(core.TypeDamage))
	writeCreated(w, result)
}

func (h *Handler) listDamageReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.ListDamageReports(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"damage_reports": reports})
}

func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeBody(w, v)
}
