// seed loads demo reference data: the central warehouse, three clinics,
// three demo users and a starter catalog with opening stock. Safe to run
// repeatedly against the same database.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"pharmastock/internal/cases"
	"pharmastock/internal/config"
	"pharmastock/internal/core"
	"pharmastock/internal/db"
	"pharmastock/internal/migrations"

	"github.com/jmoiron/sqlx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	conn, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer conn.Close()

	if err := migrations.Run(conn); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	locationService := core.NewLocationService(conn)
	stockService := core.NewStockService(conn)
	transactionService := core.NewTransactionService(conn, stockService)
	catalogService := core.NewCatalogService(conn)
	authService := core.NewAuthService(conn)

	log.Println("Seeding locations...")
	locations := []core.Location{
		{ID: "central-warehouse", Name: "Central Warehouse", Kind: core.LocationWarehouse},
		{ID: "ubs-central", Name: "UBS Central", Kind: core.LocationClinic},
		{ID: "ubs-north", Name: "UBS North", Kind: core.LocationClinic},
		{ID: "ubs-rural", Name: "UBS Rural", Kind: core.LocationClinic},
	}
	for _, loc := range locations {
		if err := locationService.Ensure(ctx, loc); err != nil {
			log.Fatalf("location %s: %v", loc.ID, err)
		}
	}

	log.Println("Seeding users...")
	clinic := "ubs-central"
	seedUser(ctx, conn, authService, "Ana Costa", "admin@pharmastock.local", "admin123", core.RoleAdmin, nil)
	seedUser(ctx, conn, authService, "Bruno Lima", "pharmacist@pharmastock.local", "pharma123", core.RolePharmacist, &clinic)
	seedUser(ctx, conn, authService, "Carla Souza", "warehouse@pharmastock.local", "ware123", core.RoleWarehouse, nil)

	admin, err := authService.Authenticate(ctx, "admin@pharmastock.local", "admin123")
	if err != nil {
		log.Fatalf("admin login: %v", err)
	}
	caller := admin.Identity()

	log.Println("Seeding catalog...")
	drafts := []core.ItemDraft{
		{Kind: core.KindMedication, Name: "Amoxicillin 500mg", Manufacturer: "MedPharm", Batch: "AMX-2401", ExpiryDate: ptr("2027-03-01T00:00:00Z"), MinimumStock: 50, StorageClass: core.StorageRoom, Category: "antibiotic", InitialQuantity: 300},
		{Kind: core.KindMedication, Name: "Insulin NPH 100IU", Manufacturer: "BioLabs", Batch: "INS-2402", ExpiryDate: ptr("2026-11-15T00:00:00Z"), MinimumStock: 30, StorageClass: core.StorageRefrigerated, Category: "hormone", InitialQuantity: 120},
		{Kind: core.KindMedication, Name: "Morphine 10mg/ml", Manufacturer: "PharmaSul", Batch: "MOR-2403", ExpiryDate: ptr("2026-10-01T00:00:00Z"), MinimumStock: 10, StorageClass: core.StorageControlled, Category: "opioid", InitialQuantity: 40},
		{Kind: core.KindMedication, Name: "Paracetamol 750mg", Manufacturer: "MedPharm", Batch: "PAR-2404", ExpiryDate: ptr("2028-01-01T00:00:00Z"), MinimumStock: 100, StorageClass: core.StorageRoom, Category: "analgesic", InitialQuantity: 800},
		{Kind: core.KindSupply, Name: "Disposable Syringe 5ml", Manufacturer: "CleanMed", Batch: "SYR-2405", MinimumStock: 200, StorageClass: core.StorageRoom, Category: "injection", InitialQuantity: 1500},
		{Kind: core.KindSupply, Name: "Nitrile Gloves M", Manufacturer: "CleanMed", Batch: "GLV-2406", MinimumStock: 500, StorageClass: core.StorageRoom, Category: "protection", InitialQuantity: 4000},
	}
	for _, draft := range drafts {
		if itemExists(ctx, conn, draft.Name, draft.Batch) {
			continue
		}
		if _, err := catalogService.Register(ctx, caller, draft, transactionService); err != nil {
			log.Fatalf("item %s: %v", draft.Name, err)
		}
	}

	log.Println("Seeding demo case...")
	caseService := cases.NewService(conn)
	if !caseExists(ctx, conn, "2024-0001") {
		_, err := caseService.Create(ctx, cases.CreateInput{
			Name:        "Supply contract review",
			Number:      "2024-0001",
			Description: "Annual review of the medication supply contract with MedPharm.",
		})
		if err != nil {
			log.Fatalf("case: %v", err)
		}
	}

	log.Println("Seed complete.")
}

func seedUser(ctx context.Context, conn *sqlx.DB, auth core.AuthService, name, email, password string, role core.Role, homeLocationID *string) {
	var count int
	err := conn.GetContext(ctx, &count,
		conn.Rebind("SELECT COUNT(*) FROM users WHERE email = ?"), email)
	if err != nil {
		log.Fatalf("user lookup %s: %v", email, err)
	}
	if count > 0 {
		return
	}
	if _, err := auth.CreateUser(ctx, name, email, password, role, homeLocationID); err != nil {
		log.Fatalf("user %s: %v", email, err)
	}
}

func itemExists(ctx context.Context, conn *sqlx.DB, name, batch string) bool {
	var count int
	err := conn.GetContext(ctx, &count,
		conn.Rebind("SELECT COUNT(*) FROM items WHERE name = ? AND batch = ?"), name, batch)
	if err != nil {
		log.Fatalf("item lookup %s: %v", name, err)
	}
	return count > 0
}

func caseExists(ctx context.Context, conn *sqlx.DB, number string) bool {
	var count int
	err := conn.GetContext(ctx, &count,
		conn.Rebind("SELECT COUNT(*) FROM cases WHERE number = ?"), number)
	if err != nil {
		log.Fatalf("case lookup %s: %v", number, err)
	}
	return count > 0
}

func ptr(s string) *string { return &s }
