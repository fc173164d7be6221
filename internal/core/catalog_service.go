package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CatalogService owns item master data. Registration with a positive initial
// quantity is booked through the Transaction Log as a receipt, so quantity
// conservation holds from the first instant; the catalog itself never touches
// stock levels.
type CatalogService interface {
	// Register stores a new item. txLog receives the synthetic receipt for
	// a positive InitialQuantity; the collaborator is a parameter, not a
	// constructor dependency, to keep the catalog free of log knowledge
	// when no initial stock is involved.
	Register(ctx context.Context, caller Identity, draft ItemDraft, txLog TransactionService) (string, error)
	// Update replaces the descriptive fields of an existing item. Id and
	// kind are immutable.
	Update(ctx context.Context, caller Identity, item Item) error
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	ListByKind(ctx context.Context, kind ItemKind) ([]Item, error)
}

type catalogService struct {
	conn *sqlx.DB
}

func NewCatalogService(conn *sqlx.DB) CatalogService {
	return &catalogService{conn: conn}
}

func validateDraft(d ItemDraft) error {
	switch {
	case d.Name == "":
		return validationf("name", "must not be empty")
	case d.Manufacturer == "":
		return validationf("manufacturer", "must not be empty")
	case d.Batch == "":
		return validationf("batch", "must not be empty")
	case d.Category == "":
		return validationf("category", "must not be empty")
	case d.MinimumStock < 0:
		return validationf("minimum_stock", "must not be negative, got %d", d.MinimumStock)
	case d.InitialQuantity < 0:
		return validationf("initial_quantity", "must not be negative, got %d", d.InitialQuantity)
	}

	switch d.Kind {
	case KindMedication:
		if d.ExpiryDate == nil || *d.ExpiryDate == "" {
			return validationf("expiry_date", "required for medications")
		}
	case KindSupply:
		// expiry optional
	default:
		return validationf("kind", "unknown item kind %q", d.Kind)
	}

	switch d.StorageClass {
	case StorageRoom, StorageRefrigerated, StorageControlled:
	default:
		return validationf("storage_class", "unknown storage class %q", d.StorageClass)
	}

	if d.ExpiryDate != nil && *d.ExpiryDate != "" {
		if _, err := time.Parse(timeLayout, *d.ExpiryDate); err != nil {
			return validationf("expiry_date", "not an RFC 3339 timestamp: %v", err)
		}
	}
	return nil
}

func (s *catalogService) Register(ctx context.Context, caller Identity, draft ItemDraft, txLog TransactionService) (string, error) {
	if caller.Role != RoleAdmin {
		return "", &RoleError{Role: caller.Role, Action: "register catalog items"}
	}
	if err := validateDraft(draft); err != nil {
		return "", err
	}

	now := nowStamp()
	id := uuid.NewString()
	_, err := s.conn.ExecContext(ctx, s.conn.Rebind(`
		INSERT INTO items (id, kind, name, manufacturer, batch, expiry_date,
			minimum_stock, storage_class, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, draft.Kind, draft.Name, draft.Manufacturer, draft.Batch,
		draft.ExpiryDate, draft.MinimumStock, draft.StorageClass,
		draft.Category, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert item: %w", err)
	}

	if draft.InitialQuantity > 0 {
		_, err := txLog.ReceiveStock(ctx, caller, ReceiptInput{
			ItemID:   id,
			Quantity: draft.InitialQuantity,
			Reason:   fmt.Sprintf("initial stock at registration of %s", draft.Name),
		})
		if err != nil {
			// Undo the insert: registration either fully takes effect or
			// leaves no item behind.
			if _, delErr := s.conn.ExecContext(ctx,
				s.conn.Rebind("DELETE FROM items WHERE id = ?"), id); delErr != nil {
				return "", fmt.Errorf("failed to book initial stock for item %s (item row not removed: %v): %w", id, delErr, err)
			}
			return "", fmt.Errorf("failed to book initial stock for item %s: %w", id, err)
		}
	}
	return id, nil
}

func (s *catalogService) Update(ctx context.Context, caller Identity, item Item) error {
	if caller.Role != RoleAdmin {
		return &RoleError{Role: caller.Role, Action: "update catalog items"}
	}

	existing, err := s.Get(ctx, item.ID)
	if err != nil {
		return err
	}

	draft := ItemDraft{
		Kind:         existing.Kind, // kind is immutable
		Name:         item.Name,
		Manufacturer: item.Manufacturer,
		Batch:        item.Batch,
		ExpiryDate:   item.ExpiryDate,
		MinimumStock: item.MinimumStock,
		StorageClass: item.StorageClass,
		Category:     item.Category,
	}
	if err := validateDraft(draft); err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, s.conn.Rebind(`
		UPDATE items
		SET name = ?, manufacturer = ?, batch = ?, expiry_date = ?,
			minimum_stock = ?, storage_class = ?, category = ?, updated_at = ?
		WHERE id = ?
	`), item.Name, item.Manufacturer, item.Batch, item.ExpiryDate,
		item.MinimumStock, item.StorageClass, item.Category, nowStamp(), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item %s: %w", item.ID, err)
	}
	return nil
}

func (s *catalogService) Get(ctx context.Context, id string) (*Item, error) {
	var item Item
	err := s.conn.GetContext(ctx, &item,
		s.conn.Rebind("SELECT * FROM items WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "item", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch item %s: %w", id, err)
	}
	return &item, nil
}

func (s *catalogService) List(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := s.conn.SelectContext(ctx, &items, "SELECT * FROM items ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (s *catalogService) ListByKind(ctx context.Context, kind ItemKind) ([]Item, error) {
	var items []Item
	err := s.conn.SelectContext(ctx, &items,
		s.conn.Rebind("SELECT * FROM items WHERE kind = ? ORDER BY name"), kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s items: %w", kind, err)
	}
	return items, nil
}
