// Package web is the HTTP adapter: a chi router over the ApplicationService.
// It owns JSON encoding, cookie auth and error-to-status mapping, and
// contains no business logic.
package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pharmastock/internal/app"
)

// Handler holds the ApplicationService and the signing secret.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{svc: svc, jwtSecret: jwtSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(Metrics)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)
	r.Get("/metrics", MetricsHandler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Post("/api/auth/login", h.login)
		r.Post("/api/auth/logout", h.logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		// Case attachments may be large; the limit is set per group.
		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(10 << 20)) // 10 MB
			r.Post("/api/cases", h.createCase)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(1 << 20)) // 1 MB

			r.Get("/api/auth/me", h.me)

			r.Route("/api/items", func(r chi.Router) {
				r.Get("/", h.listItems)
				r.Post("/", h.registerItem)
				r.Get("/{id}", h.getItem)
				r.Put("/{id}", h.updateItem)
				r.Get("/{id}/history", h.itemHistory)
			})

			r.Route("/api/locations", func(r chi.Router) {
				r.Get("/", h.listLocations)
				r.Get("/{id}/stock", h.locationStock)
			})

			r.Route("/api/transactions", func(r chi.Router) {
				r.Get("/", h.listTransactions)
				r.Get("/{id}", h.getTransaction)
				r.Post("/receipts", h.receiveStock)
				r.Post("/distributions", h.requestDistribution)
				r.Post("/distributions/{id}/approve", h.approveDistribution)
				r.Post("/distributions/{id}/reject", h.rejectDistribution)
				r.Post("/distributions/{id}/complete", h.completeDistribution)
				r.Post("/dispensations", h.dispenseToPatient)
				r.Post("/damage", h.reportDamage)
			})

			r.Get("/api/damage-reports", h.listDamageReports)
			r.Get("/api/dashboard", h.dashboard)

			r.Route("/api/notifications", func(r chi.Router) {
				r.Get("/", h.listNotifications)
				r.Post("/check", h.runStockChecks)
				r.Post("/{id}/read", h.markNotificationRead)
				r.Post("/read-all", h.markAllNotificationsRead)
				r.Delete("/", h.clearNotifications)
			})

			r.Get("/api/cases", h.searchCases)
			r.Get("/api/cases/{id}/file", h.caseAttachment)
		})
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v, writing an error response and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
