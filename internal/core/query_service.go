package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// LowStockItem pairs a catalog item with its current system-wide quantity.
type LowStockItem struct {
	Item
	TotalQuantity int64 `db:"total_quantity" json:"total_quantity"`
}

// ItemQuantity is one row of a per-location inventory listing.
type ItemQuantity struct {
	Item
	Quantity int64 `db:"quantity" json:"quantity"`
}

// QueryService is the read-only aggregation surface over the catalog, the
// location registry, the stock ledger and the transaction log. It never
// mutates anything; the notification generator, report rendering and
// presentation pages all consume it.
type QueryService interface {
	TransactionsForLocation(ctx context.Context, locationID *string) ([]Transaction, error)
	TransactionsByType(ctx context.Context, t TransactionType) ([]Transaction, error)
	TotalStock(ctx context.Context, itemID string) (int64, error)
	// LowStockItems lists items whose system-wide quantity is at or below
	// their minimum-stock threshold.
	LowStockItems(ctx context.Context) ([]LowStockItem, error)
	// ExpiringWithin lists medications whose expiry date falls inside the
	// next `days` days, already-expired batches included.
	ExpiringWithin(ctx context.Context, days int) ([]Item, error)
	// History returns the newest transactions for an item, most recent
	// first.
	History(ctx context.Context, itemID string, limit int) ([]Transaction, error)
	// LocationStock lists every item held at a location with its quantity.
	LocationStock(ctx context.Context, locationID string) ([]ItemQuantity, error)
}

type queryService struct {
	conn *sqlx.DB
}

func NewQueryService(conn *sqlx.DB) QueryService {
	return &queryService{conn: conn}
}

func (s *queryService) TransactionsForLocation(ctx context.Context, locationID *string) ([]Transaction, error) {
	var txs []Transaction
	if locationID == nil {
		err := s.conn.SelectContext(ctx, &txs,
			"SELECT "+transactionColumns+" FROM transactions ORDER BY requested_at DESC, id")
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions: %w", err)
		}
		return txs, nil
	}

	err := s.conn.SelectContext(ctx, &txs, s.conn.Rebind(`
		SELECT `+transactionColumns+` FROM transactions
		WHERE source_location_id = ? OR destination_location_id = ?
		ORDER BY requested_at DESC, id
	`), *locationID, *locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for location %s: %w", *locationID, err)
	}
	return txs, nil
}

func (s *queryService) TransactionsByType(ctx context.Context, t TransactionType) ([]Transaction, error) {
	var txs []Transaction
	err := s.conn.SelectContext(ctx, &txs, s.conn.Rebind(`
		SELECT `+transactionColumns+` FROM transactions
		WHERE type = ?
		ORDER BY requested_at DESC, id
	`), t)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s transactions: %w", t, err)
	}
	return txs, nil
}

func (s *queryService) TotalStock(ctx context.Context, itemID string) (int64, error) {
	var total int64
	err := s.conn.GetContext(ctx, &total,
		s.conn.Rebind("SELECT COALESCE(SUM(quantity), 0) FROM stock_levels WHERE item_id = ?"),
		itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to total stock for item %s: %w", itemID, err)
	}
	return total, nil
}

func (s *queryService) LowStockItems(ctx context.Context) ([]LowStockItem, error) {
	var items []LowStockItem
	err := s.conn.SelectContext(ctx, &items, `
		SELECT i.*, COALESCE(SUM(sl.quantity), 0) AS total_quantity
		FROM items i
		LEFT JOIN stock_levels sl ON sl.item_id = i.id
		GROUP BY i.id
		HAVING COALESCE(SUM(sl.quantity), 0) <= i.minimum_stock
		ORDER BY i.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list low-stock items: %w", err)
	}
	return items, nil
}

func (s *queryService) ExpiringWithin(ctx context.Context, days int) ([]Item, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, days).Format(timeLayout)
	var items []Item
	err := s.conn.SelectContext(ctx, &items, s.conn.Rebind(`
		SELECT * FROM items
		WHERE kind = ? AND expiry_date IS NOT NULL AND expiry_date <= ?
		ORDER BY expiry_date
	`), KindMedication, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring items: %w", err)
	}
	return items, nil
}

func (s *queryService) History(ctx context.Context, itemID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var txs []Transaction
	err := s.conn.SelectContext(ctx, &txs, s.conn.Rebind(`
		SELECT `+transactionColumns+` FROM transactions
		WHERE item_id = ?
		ORDER BY requested_at DESC, id
		LIMIT ?
	`), itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for item %s: %w", itemID, err)
	}
	return txs, nil
}

func (s *queryService) LocationStock(ctx context.Context, locationID string) ([]ItemQuantity, error) {
	var rows []ItemQuantity
	err := s.conn.SelectContext(ctx, &rows, s.conn.Rebind(`
		SELECT i.*, sl.quantity
		FROM stock_levels sl
		JOIN items i ON i.id = sl.item_id
		WHERE sl.location_id = ?
		ORDER BY i.name
	`), locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock at location %s: %w", locationID, err)
	}
	return rows, nil
}
