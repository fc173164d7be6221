package core_test

import (
	"context"
	"errors"
	"testing"

	"pharmastock/internal/core"
	"pharmastock/internal/db"
	"pharmastock/internal/migrations"
)

func TestRegister_Validation(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	stock := core.NewStockService(conn)
	transactions := core.NewTransactionService(conn, stock)
	catalog := core.NewCatalogService(conn)
	expiry := "2027-06-01T00:00:00Z"

	valid := core.ItemDraft{
		Kind: core.KindMedication, Name: "Dipyrone", Manufacturer: "TestPharm",
		Batch: "B-1", ExpiryDate: &expiry, MinimumStock: 5,
		StorageClass: core.StorageRoom, Category: "analgesic",
	}

	mutations := []func(*core.ItemDraft){
		func(d *core.ItemDraft) { d.Name = "" },
		func(d *core.ItemDraft) { d.Manufacturer = "" },
		func(d *core.ItemDraft) { d.Batch = "" },
		func(d *core.ItemDraft) { d.Category = "" },
		func(d *core.ItemDraft) { d.MinimumStock = -1 },
		func(d *core.ItemDraft) { d.InitialQuantity = -1 },
		func(d *core.ItemDraft) { d.ExpiryDate = nil }, // medications need expiry
		func(d *core.ItemDraft) { bad := "tomorrow"; d.ExpiryDate = &bad },
		func(d *core.ItemDraft) { d.Kind = "equipment" },
		func(d *core.ItemDraft) { d.StorageClass = "frozen" },
	}
	for i, mutate := range mutations {
		draft := valid
		mutate(&draft)
		_, err := catalog.Register(ctx, adminIdentity(), draft, transactions)
		var validation *core.ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("mutation %d: expected ValidationError, got %v", i, err)
		}
	}

	// Supplies may omit the expiry date.
	supply := valid
	supply.Kind = core.KindSupply
	supply.ExpiryDate = nil
	supply.Name = "Cotton Roll"
	if _, err := catalog.Register(ctx, adminIdentity(), supply, transactions); err != nil {
		t.Errorf("supply without expiry: unexpected error %v", err)
	}
}

func TestRegister_AdminOnly(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	stock := core.NewStockService(conn)
	transactions := core.NewTransactionService(conn, stock)
	catalog := core.NewCatalogService(conn)

	_, err := catalog.Register(ctx, pharmacistIdentity("clinic-a"), core.ItemDraft{
		Kind: core.KindSupply, Name: "Gloves", Manufacturer: "X", Batch: "B-1",
		StorageClass: core.StorageRoom, Category: "protection",
	}, transactions)
	var roleErr *core.RoleError
	if !errors.As(err, &roleErr) {
		t.Fatalf("expected RoleError, got %v", err)
	}
}

func TestRegister_BooksInitialStockAsReceipt(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	stock := core.NewStockService(conn)
	queries := core.NewQueryService(conn)
	itemID := registerTestItem(t, conn, "Ibuprofen", 250)

	if qty, _ := stock.QuantityAt(ctx, itemID, "wh"); qty != 250 {
		t.Errorf("warehouse quantity = %d, want 250", qty)
	}

	// The opening stock shows up in the log as a completed receipt, not as a
	// bare ledger write.
	history, err := queries.History(ctx, itemID, 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Type != core.TypeReceipt || history[0].Status != core.StatusCompleted {
		t.Errorf("opening movement = %s/%s, want receipt/completed", history[0].Type, history[0].Status)
	}
	if history[0].Quantity != 250 {
		t.Errorf("opening quantity = %d, want 250", history[0].Quantity)
	}
}

func TestRegister_AllOrNothingWithInitialStock(t *testing.T) {
	// No warehouse seeded, so the opening receipt cannot be booked.
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrations.Run(conn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	stock := core.NewStockService(conn)
	transactions := core.NewTransactionService(conn, stock)
	catalog := core.NewCatalogService(conn)

	expiry := "2027-06-01T00:00:00Z"
	_, err = catalog.Register(ctx, adminIdentity(), core.ItemDraft{
		Kind: core.KindMedication, Name: "Dipyrone", Manufacturer: "TestPharm",
		Batch: "B-1", ExpiryDate: &expiry, StorageClass: core.StorageRoom,
		Category: "analgesic", InitialQuantity: 30,
	}, transactions)
	if err == nil {
		t.Fatal("expected registration to fail without a warehouse")
	}

	items, listErr := catalog.List(ctx)
	if listErr != nil {
		t.Fatalf("list failed: %v", listErr)
	}
	if len(items) != 0 {
		t.Errorf("catalog size after failed registration = %d, want 0", len(items))
	}
}

func TestUpdate_KindImmutable(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	catalog := core.NewCatalogService(conn)
	itemID := registerTestItem(t, conn, "Ibuprofen", 0)

	item, err := catalog.Get(ctx, itemID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	item.Kind = core.KindSupply
	item.Name = "Ibuprofen 600mg"
	item.MinimumStock = 25
	if err := catalog.Update(ctx, adminIdentity(), *item); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := catalog.Get(ctx, itemID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Kind != core.KindMedication {
		t.Errorf("kind = %s, want medication (immutable)", got.Kind)
	}
	if got.Name != "Ibuprofen 600mg" || got.MinimumStock != 25 {
		t.Errorf("update not applied: %+v", got)
	}
	if got.UpdatedAt < got.CreatedAt {
		t.Errorf("updated_at %s precedes created_at %s", got.UpdatedAt, got.CreatedAt)
	}
}

func TestUpdate_NonAdminForbidden(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	catalog := core.NewCatalogService(conn)
	itemID := registerTestItem(t, conn, "Ibuprofen", 0)

	item, err := catalog.Get(ctx, itemID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	err = catalog.Update(ctx, warehouseIdentity(), *item)
	var roleErr *core.RoleError
	if !errors.As(err, &roleErr) {
		t.Fatalf("expected RoleError, got %v", err)
	}
}

func TestCatalogGet_NotFound(t *testing.T) {
	conn := setupTestDB(t)
	catalog := core.NewCatalogService(conn)

	_, err := catalog.Get(context.Background(), "missing")
	var notFound *core.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListByKind(t *testing.T) {
	conn := setupTestDB(t)
	ctx := context.Background()
	stock := core.NewStockService(conn)
	transactions := core.NewTransactionService(conn, stock)
	catalog := core.NewCatalogService(conn)

	registerTestItem(t, conn, "Amoxicillin", 0)
	if _, err := catalog.Register(ctx, adminIdentity(), core.ItemDraft{
		Kind: core.KindSupply, Name: "Syringes", Manufacturer: "CleanMed",
		Batch: "S-1", StorageClass: core.StorageRoom, Category: "injection",
	}, transactions); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	meds, err := catalog.ListByKind(ctx, core.KindMedication)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(meds) != 1 || meds[0].Name != "Amoxicillin" {
		t.Errorf("medications = %+v, want only Amoxicillin", meds)
	}

	all, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("catalog size = %d, want 2", len(all))
	}
}
