package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"pharmastock/internal/cases"
	"pharmastock/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeBody encodes v after the caller has written headers and status.
func writeBody(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors onto HTTP statuses. Anything not in
// the taxonomy is logged and reported as a 500 without leaking detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *core.ValidationError
		role        *core.RoleError
		notFound    *core.NotFoundError
		stock       *core.InsufficientStockError
		caseInvalid *cases.ValidationError
		caseMissing *cases.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, r, validation.Error(), "VALIDATION_FAILED", http.StatusBadRequest)
	case errors.As(err, &caseInvalid):
		writeError(w, r, caseInvalid.Error(), "VALIDATION_FAILED", http.StatusBadRequest)
	case errors.As(err, &role):
		writeError(w, r, role.Error(), "FORBIDDEN", http.StatusForbidden)
	case errors.As(err, &notFound):
		writeError(w, r, notFound.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &caseMissing):
		writeError(w, r, caseMissing.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &stock):
		writeError(w, r, stock.Error(), "INSUFFICIENT_STOCK", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidCredentials):
		writeError(w, r, "invalid email or password", "UNAUTHORIZED", http.StatusUnauthorized)
	default:
		log.Printf("request %s failed: %v", requestIDFromContext(r.Context()), err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
