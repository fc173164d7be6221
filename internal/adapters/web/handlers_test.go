package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"

	"pharmastock/internal/adapters/web"
	"pharmastock/internal/app"
	"pharmastock/internal/cases"
	"pharmastock/internal/core"
	"pharmastock/internal/db"
	"pharmastock/internal/migrations"
)

const testSecret = "test_secret"

// setupHandler wires the full stack over an in-memory database and seeds the
// fixture locations and users.
func setupHandler(t *testing.T) (http.Handler, *sqlx.DB) {
	t.Helper()

	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrations.Run(conn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	locations := core.NewLocationService(conn)
	for _, loc := range []core.Location{
		{ID: "wh", Name: "Central Warehouse", Kind: core.LocationWarehouse},
		{ID: "clinic-a", Name: "Clinic A", Kind: core.LocationClinic},
	} {
		if err := locations.Ensure(ctx, loc); err != nil {
			t.Fatalf("failed to seed location: %v", err)
		}
	}

	auth := core.NewAuthService(conn)
	clinic := "clinic-a"
	if _, err := auth.CreateUser(ctx, "Ana", "admin@test.local", "admin123", core.RoleAdmin, nil); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}
	if _, err := auth.CreateUser(ctx, "Bruno", "pharm@test.local", "pharma123", core.RolePharmacist, &clinic); err != nil {
		t.Fatalf("failed to seed pharmacist: %v", err)
	}

	stock := core.NewStockService(conn)
	transactions := core.NewTransactionService(conn, stock)
	queries := core.NewQueryService(conn)
	svc := app.NewAppService(
		core.NewCatalogService(conn),
		locations,
		stock,
		transactions,
		queries,
		core.NewNotificationService(conn, queries),
		auth,
		cases.NewService(conn),
	)
	return web.NewHandler(svc, "", testSecret), conn
}

// login returns the auth cookie for the given credentials.
func login(t *testing.T, handler http.Handler, email, password string) *http.Cookie {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s: status %d, body %s", email, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	t.Fatal("login response carries no auth_token cookie")
	return nil
}

func doJSON(handler http.Handler, method, path string, cookie *http.Cookie, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler, _ := setupHandler(t)
	rec := doJSON(handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	handler, _ := setupHandler(t)

	rec := doJSON(handler, http.MethodPost, "/api/auth/login", nil,
		map[string]string{"email": "admin@test.local", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", rec.Code)
	}

	cookie := login(t, handler, "admin@test.local", "admin123")
	if !cookie.HttpOnly {
		t.Error("auth cookie must be HttpOnly")
	}

	rec = doJSON(handler, http.MethodGet, "/api/auth/me", cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", rec.Code)
	}
	var me core.User
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("me decode failed: %v", err)
	}
	if me.Email != "admin@test.local" || me.Role != core.RoleAdmin {
		t.Errorf("me = %+v, want the admin", me)
	}
}

func TestAuthRequired(t *testing.T) {
	handler, _ := setupHandler(t)

	rec := doJSON(handler, http.MethodGet, "/api/items", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: "garbage"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token status = %d, want 401", rec.Code)
	}
}

func TestItemLifecycleOverHTTP(t *testing.T) {
	handler, _ := setupHandler(t)
	admin := login(t, handler, "admin@test.local", "admin123")
	pharm := login(t, handler, "pharm@test.local", "pharma123")

	draft := map[string]any{
		"kind": "medication", "name": "Amoxicillin", "manufacturer": "MedPharm",
		"batch": "B-1", "expiry_date": "2027-06-01T00:00:00Z", "minimum_stock": 10,
		"storage_class": "room", "category": "antibiotic", "initial_quantity": 100,
	}

	// Pharmacists cannot register items.
	rec := doJSON(handler, http.MethodPost, "/api/items", pharm, draft)
	if rec.Code != http.StatusForbidden {
		t.Errorf("pharmacist register status = %d, want 403", rec.Code)
	}

	// Invalid drafts are rejected.
	bad := map[string]any{"kind": "medication", "name": ""}
	rec = doJSON(handler, http.MethodPost, "/api/items", admin, bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid draft status = %d, want 400", rec.Code)
	}

	rec = doJSON(handler, http.MethodPost, "/api/items", admin, draft)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created app.ItemResult
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if created.TotalQuantity != 100 {
		t.Errorf("total after register = %d, want 100", created.TotalQuantity)
	}

	rec = doJSON(handler, http.MethodGet, "/api/items/"+created.Item.ID, pharm, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get item status = %d", rec.Code)
	}

	rec = doJSON(handler, http.MethodGet, "/api/items/missing", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown item status = %d, want 404", rec.Code)
	}
}

func TestDistributionWorkflowOverHTTP(t *testing.T) {
	handler, _ := setupHandler(t)
	admin := login(t, handler, "admin@test.local", "admin123")
	pharm := login(t, handler, "pharm@test.local", "pharma123")

	rec := doJSON(handler, http.MethodPost, "/api/items", admin, map[string]any{
		"kind": "supply", "name": "Gloves", "manufacturer": "CleanMed",
		"batch": "G-1", "minimum_stock": 10, "storage_class": "room",
		"category": "protection", "initial_quantity": 50,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var item app.ItemResult
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	rec = doJSON(handler, http.MethodPost, "/api/transactions/distributions", pharm, map[string]any{
		"item_id": item.Item.ID, "quantity": 20, "destination_id": "clinic-a", "reason": "restock",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("request status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result app.TransactionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if result.Transaction.Status != core.StatusPending {
		t.Fatalf("status = %s, want pending", result.Transaction.Status)
	}
	txID := result.Transaction.ID

	// Pharmacists cannot approve their own request.
	rec = doJSON(handler, http.MethodPost, fmt.Sprintf("/api/transactions/distributions/%s/approve", txID), pharm, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("pharmacist approve status = %d, want 403", rec.Code)
	}

	rec = doJSON(handler, http.MethodPost, fmt.Sprintf("/api/transactions/distributions/%s/approve", txID), admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(handler, http.MethodPost, fmt.Sprintf("/api/transactions/distributions/%s/complete", txID), admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Completing twice hits the terminal-status guard.
	rec = doJSON(handler, http.MethodPost, fmt.Sprintf("/api/transactions/distributions/%s/complete", txID), admin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("double complete status = %d, want 400", rec.Code)
	}

	// Requesting more than the warehouse holds: the request itself is fine
	// while pending, but an admin executing directly gets a 409.
	rec = doJSON(handler, http.MethodPost, "/api/transactions/distributions", admin, map[string]any{
		"item_id": item.Item.ID, "quantity": 9999, "destination_id": "clinic-a", "reason": "too much",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("over-distribution status = %d, want 409", rec.Code)
	}
}

func TestCasesOverHTTP(t *testing.T) {
	handler, _ := setupHandler(t)
	admin := login(t, handler, "admin@test.local", "admin123")

	rec := doJSON(handler, http.MethodPost, "/api/cases", admin, map[string]string{
		"name": "Silva v. Municipality", "number": "2024-0001", "description": "medication access",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create case status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(handler, http.MethodPost, "/api/cases", admin, map[string]string{
		"name": "incomplete",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid case status = %d, want 400", rec.Code)
	}

	rec = doJSON(handler, http.MethodGet, "/api/cases?q=Silva&field=name", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var out struct {
		Cases []cases.Case `json:"cases"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.Cases) != 1 || out.Cases[0].Number != "2024-0001" {
		t.Errorf("search result = %+v, want the Silva case", out.Cases)
	}
}
