package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// StockService owns the stock_levels table and is its only mutator. It has no
// knowledge of transactions; the Transaction Log invokes it as the sole
// side-effecting step of a status transition.
type StockService interface {
	// Adjust applies delta to the (item, location) quantity inside its own
	// database transaction. A delta that would drive the quantity negative
	// fails with InsufficientStockError and mutates nothing.
	Adjust(ctx context.Context, itemID, locationID string, delta int64) (int64, error)
	QuantityAt(ctx context.Context, itemID, locationID string) (int64, error)
	TotalQuantity(ctx context.Context, itemID string) (int64, error)
	// Breakdown returns quantities for every location, zero rows included.
	Breakdown(ctx context.Context, itemID string) ([]LocationQuantity, error)

	// TX-scoped variants, used by the Transaction Log to keep ledger effects
	// atomic with status transitions.
	AdjustTx(ctx context.Context, tx *sqlx.Tx, itemID, locationID string, delta int64) (int64, error)
	QuantityAtTx(ctx context.Context, tx *sqlx.Tx, itemID, locationID string) (int64, error)
}

type stockService struct {
	conn *sqlx.DB
}

func NewStockService(conn *sqlx.DB) StockService {
	return &stockService{conn: conn}
}

func (s *stockService) Adjust(ctx context.Context, itemID, locationID string, delta int64) (int64, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin stock adjustment: %w", err)
	}
	defer tx.Rollback()

	qty, err := s.AdjustTx(ctx, tx, itemID, locationID, delta)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}
	return qty, nil
}

func (s *stockService) AdjustTx(ctx context.Context, tx *sqlx.Tx, itemID, locationID string, delta int64) (int64, error) {
	current, err := s.QuantityAtTx(ctx, tx, itemID, locationID)
	if err != nil {
		return 0, err
	}

	if delta < 0 && current+delta < 0 {
		return 0, &InsufficientStockError{
			ItemID:     itemID,
			LocationID: locationID,
			Requested:  -delta,
			Available:  current,
		}
	}

	// The precondition above already forbids going negative; the clamp only
	// restates the quantity >= 0 invariant at the write site.
	next := current + delta
	if next < 0 {
		next = 0
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO stock_levels (item_id, location_id, quantity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`), itemID, locationID, next, nowStamp())
	if err != nil {
		return 0, fmt.Errorf("failed to write stock level for item %s at %s: %w", itemID, locationID, err)
	}
	return next, nil
}

func (s *stockService) QuantityAt(ctx context.Context, itemID, locationID string) (int64, error) {
	return quantityAt(ctx, s.conn, itemID, locationID)
}

func (s *stockService) QuantityAtTx(ctx context.Context, tx *sqlx.Tx, itemID, locationID string) (int64, error) {
	return quantityAt(ctx, tx, itemID, locationID)
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx, enabling shared
// read helpers.
type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

func quantityAt(ctx context.Context, q querier, itemID, locationID string) (int64, error) {
	var qty int64
	err := q.GetContext(ctx, &qty,
		q.Rebind("SELECT quantity FROM stock_levels WHERE item_id = ? AND location_id = ?"),
		itemID, locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read stock level for item %s at %s: %w", itemID, locationID, err)
	}
	return qty, nil
}

func (s *stockService) TotalQuantity(ctx context.Context, itemID string) (int64, error) {
	var total int64
	err := s.conn.GetContext(ctx, &total,
		s.conn.Rebind("SELECT COALESCE(SUM(quantity), 0) FROM stock_levels WHERE item_id = ?"),
		itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum stock for item %s: %w", itemID, err)
	}
	return total, nil
}

func (s *stockService) Breakdown(ctx context.Context, itemID string) ([]LocationQuantity, error) {
	var rows []LocationQuantity
	err := s.conn.SelectContext(ctx, &rows, s.conn.Rebind(`
		SELECT l.id AS location_id, l.name AS location_name,
		       COALESCE(sl.quantity, 0) AS quantity
		FROM locations l
		LEFT JOIN stock_levels sl ON sl.location_id = l.id AND sl.item_id = ?
		ORDER BY l.kind, l.name
	`), itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock breakdown for item %s: %w", itemID, err)
	}
	return rows, nil
}
