package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReceiptInput records new stock arriving at the warehouse.
type ReceiptInput struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

// DistributionInput requests a warehouse-to-clinic movement.
type DistributionInput struct {
	ItemID                string `json:"item_id"`
	Quantity              int64  `json:"quantity"`
	DestinationLocationID string `json:"destination_location_id"`
	Reason                string `json:"reason"`
}

// DamageInput writes off damaged stock at a location.
type DamageInput struct {
	ItemID     string `json:"item_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
	Batch      string `json:"batch"`
	Reason     string `json:"reason"`
}

// DispensationInput consumes clinic stock for an individual patient.
// SourceLocationID is only honoured for administrators; pharmacists always
// dispense from their own clinic.
type DispensationInput struct {
	ItemID           string `json:"item_id"`
	Quantity         int64  `json:"quantity"`
	SourceLocationID string `json:"source_location_id,omitempty"`
	PatientRef       string `json:"patient_ref"`
	PatientName      string `json:"patient_name"`
	Reason           string `json:"reason"`
}

// TransactionService owns the append-only transaction log and its approval
// state machine: pending → approved → completed, pending → rejected, with
// receipts, damage reports and patient dispensations created directly in
// completed. The ledger effect of a transaction fires exactly once, at the
// transition that makes it effective.
type TransactionService interface {
	ReceiveStock(ctx context.Context, caller Identity, in ReceiptInput) (*Transaction, error)
	RequestDistribution(ctx context.Context, caller Identity, in DistributionInput) (*Transaction, error)
	ApproveDistribution(ctx context.Context, caller Identity, txID string) (*Transaction, error)
	RejectDistribution(ctx context.Context, caller Identity, txID string) (*Transaction, error)
	CompleteDistribution(ctx context.Context, caller Identity, txID string) (*Transaction, error)
	ReportDamage(ctx context.Context, caller Identity, in DamageInput) (*Transaction, error)
	DispenseToPatient(ctx context.Context, caller Identity, in DispensationInput) (*Transaction, error)

	Get(ctx context.Context, id string) (*Transaction, error)
	DamageReportFor(ctx context.Context, transactionID string) (*DamageReport, error)
	ListDamageReports(ctx context.Context) ([]DamageReport, error)
}

type transactionService struct {
	conn  *sqlx.DB
	stock StockService

	// All mutating commands serialize here: single-writer discipline for
	// stock levels and transaction statuses.
	mu sync.Mutex
}

func NewTransactionService(conn *sqlx.DB, stock StockService) TransactionService {
	return &transactionService{conn: conn, stock: stock}
}

const transactionColumns = `id, type, item_id, item_kind, quantity,
	source_location_id, destination_location_id, reason, patient_ref,
	patient_name, status, effect_applied, requested_by, processed_by,
	requested_at, processed_at`

// ── Shared validation ─────────────────────────────────────────────────────────

func (s *transactionService) resolveItem(ctx context.Context, q querier, itemID string) (*Item, error) {
	if itemID == "" {
		return nil, validationf("item_id", "must not be empty")
	}
	var item Item
	err := q.GetContext(ctx, &item,
		q.Rebind("SELECT * FROM items WHERE id = ?"), itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "item", ID: itemID}
		}
		return nil, fmt.Errorf("failed to resolve item %s: %w", itemID, err)
	}
	return &item, nil
}

func (s *transactionService) resolveLocation(ctx context.Context, q querier, locationID string) (*Location, error) {
	if locationID == "" {
		return nil, validationf("location_id", "must not be empty")
	}
	var loc Location
	err := q.GetContext(ctx, &loc,
		q.Rebind("SELECT id, name, kind FROM locations WHERE id = ?"), locationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "location", ID: locationID}
		}
		return nil, fmt.Errorf("failed to resolve location %s: %w", locationID, err)
	}
	return &loc, nil
}

func (s *transactionService) warehouse(ctx context.Context, q querier) (*Location, error) {
	var loc Location
	err := q.GetContext(ctx, &loc,
		q.Rebind("SELECT id, name, kind FROM locations WHERE kind = ? ORDER BY id LIMIT 1"),
		LocationWarehouse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no warehouse location configured")
		}
		return nil, fmt.Errorf("failed to resolve warehouse: %w", err)
	}
	return &loc, nil
}

func validateCommon(quantity int64, reason string) error {
	if quantity <= 0 {
		return validationf("quantity", "must be positive, got %d", quantity)
	}
	if reason == "" {
		return validationf("reason", "must not be empty")
	}
	return nil
}

// insertTx writes a transaction row inside tx.
func (s *transactionService) insertTx(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.Type, t.ItemID, t.ItemKind, t.Quantity,
		t.SourceLocationID, t.DestinationLocationID, t.Reason, t.PatientRef,
		t.PatientName, t.Status, t.EffectApplied, t.RequestedBy, t.ProcessedBy,
		t.RequestedAt, t.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to insert %s transaction: %w", t.Type, err)
	}
	return nil
}

// ── Creation commands ─────────────────────────────────────────────────────────

// ReceiveStock books inbound stock at the warehouse. Receipts are the only
// source of new quantity in the system and complete immediately.
func (s *transactionService) ReceiveStock(ctx context.Context, caller Identity, in ReceiptInput) (*Transaction, error) {
	if caller.Role != RoleAdmin {
		return nil, &RoleError{Role: caller.Role, Action: "receive stock"}
	}
	if err := validateCommon(in.Quantity, in.Reason); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin receipt: %w", err)
	}
	defer tx.Rollback()

	item, err := s.resolveItem(ctx, tx, in.ItemID)
	if err != nil {
		return nil, err
	}
	wh, err := s.warehouse(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := nowStamp()
	t := &Transaction{
		ID:                    uuid.NewString(),
		Type:                  TypeReceipt,
		ItemID:                item.ID,
		ItemKind:              item.Kind,
		Quantity:              in.Quantity,
		DestinationLocationID: &wh.ID,
		Reason:                in.Reason,
		Status:                StatusCompleted,
		EffectApplied:         true,
		RequestedBy:           caller.UserID,
		ProcessedBy:           &caller.UserID,
		RequestedAt:           now,
		ProcessedAt:           &now,
	}
	if err := s.insertTx(ctx, tx, t); err != nil {
		return nil, err
	}
	if _, err := s.stock.AdjustTx(ctx, tx, item.ID, wh.ID, in.Quantity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit receipt: %w", err)
	}
	return t, nil
}

// RequestDistribution creates a warehouse-to-clinic movement. Administrators
// execute it immediately (created completed, stock moved atomically);
// pharmacists may only request for their own clinic, leaving the transaction
// pending for approval and fulfilment.
func (s *transactionService) RequestDistribution(ctx context.Context, caller Identity, in DistributionInput) (*Transaction, error) {
	if err := validateCommon(in.Quantity, in.Reason); err != nil {
		return nil, err
	}

	switch caller.Role {
	case RoleAdmin:
	case RolePharmacist:
		if caller.HomeLocationID == nil || *caller.HomeLocationID != in.DestinationLocationID {
			return nil, &RoleError{Role: caller.Role, Action: "request a distribution for another clinic"}
		}
	default:
		return nil, &RoleError{Role: caller.Role, Action: "request a distribution"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin distribution: %w", err)
	}
	defer tx.Rollback()

	item, err := s.resolveItem(ctx, tx, in.ItemID)
	if err != nil {
		return nil, err
	}
	dest, err := s.resolveLocation(ctx, tx, in.DestinationLocationID)
	if err != nil {
		return nil, err
	}
	if dest.Kind != LocationClinic {
		return nil, validationf("destination_location_id", "distributions must target a clinic, %s is a %s", dest.ID, dest.Kind)
	}
	wh, err := s.warehouse(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := nowStamp()
	t := &Transaction{
		ID:                    uuid.NewString(),
		Type:                  TypeDistribution,
		ItemID:                item.ID,
		ItemKind:              item.Kind,
		Quantity:              in.Quantity,
		SourceLocationID:      &wh.ID,
		DestinationLocationID: &dest.ID,
		Reason:                in.Reason,
		Status:                StatusPending,
		RequestedBy:           caller.UserID,
		RequestedAt:           now,
	}

	if caller.Role == RoleAdmin {
		// Direct execution: pre-check, then move stock atomically with the
		// completed record.
		available, err := s.stock.QuantityAtTx(ctx, tx, item.ID, wh.ID)
		if err != nil {
			return nil, err
		}
		if available < in.Quantity {
			return nil, &InsufficientStockError{
				ItemID:     item.ID,
				LocationID: wh.ID,
				Requested:  in.Quantity,
				Available:  available,
			}
		}
		t.Status = StatusCompleted
		t.EffectApplied = true
		t.ProcessedBy = &caller.UserID
		t.ProcessedAt = &now
	}

	if err := s.insertTx(ctx, tx, t); err != nil {
		return nil, err
	}
	if t.Status == StatusCompleted {
		if _, err := s.stock.AdjustTx(ctx, tx, item.ID, wh.ID, -in.Quantity); err != nil {
			return nil, err
		}
		if _, err := s.stock.AdjustTx(ctx, tx, item.ID, dest.ID, in.Quantity); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit distribution: %w", err)
	}
	return t, nil
}

// ReportDamage writes off stock at a location the caller is authorized over
// and files the companion audit report. Damage completes immediately.
func (s *transactionService) ReportDamage(ctx context.Context, caller Identity, in DamageInput) (*Transaction, error) {
	if err := validateCommon(in.Quantity, in.Reason); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin damage report: %w", err)
	}
	defer tx.Rollback()

	item, err := s.resolveItem(ctx, tx, in.ItemID)
	if err != nil {
		return nil, err
	}
	loc, err := s.resolveLocation(ctx, tx, in.LocationID)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case RoleAdmin:
		// any location
	case RolePharmacist:
		if caller.HomeLocationID == nil || *caller.HomeLocationID != loc.ID {
			return nil, &RoleError{Role: caller.Role, Action: "report damage for another location"}
		}
	case RoleWarehouse:
		if loc.Kind != LocationWarehouse {
			return nil, &RoleError{Role: caller.Role, Action: "report damage outside the warehouse"}
		}
	default:
		return nil, &RoleError{Role: caller.Role, Action: "report damage"}
	}

	available, err := s.stock.QuantityAtTx(ctx, tx, item.ID, loc.ID)
	if err != nil {
		return nil, err
	}
	if available < in.Quantity {
		return nil, &InsufficientStockError{
			ItemID:     item.ID,
			LocationID: loc.ID,
			Requested:  in.Quantity,
			Available:  available,
		}
	}

	now := nowStamp()
	t := &Transaction{
		ID:               uuid.NewString(),
		Type:             TypeDamage,
		ItemID:           item.ID,
		ItemKind:         item.Kind,
		Quantity:         in.Quantity,
		SourceLocationID: &loc.ID,
		Reason:           in.Reason,
		Status:           StatusCompleted,
		EffectApplied:    true,
		RequestedBy:      caller.UserID,
		ProcessedBy:      &caller.UserID,
		RequestedAt:      now,
		ProcessedAt:      &now,
	}
	if err := s.insertTx(ctx, tx, t); err != nil {
		return nil, err
	}

	batch := in.Batch
	if batch == "" {
		batch = item.Batch
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO damage_reports (id, transaction_id, item_id, item_kind,
			location_id, quantity, batch, reason, reported_by, reported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), uuid.NewString(), t.ID, item.ID, item.Kind, loc.ID, in.Quantity, batch,
		in.Reason, caller.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert damage report: %w", err)
	}

	if _, err := s.stock.AdjustTx(ctx, tx, item.ID, loc.ID, -in.Quantity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit damage report: %w", err)
	}
	return t, nil
}

// DispenseToPatient consumes clinic stock for an individual patient. The
// command completes immediately; if the clinic cannot cover the quantity no
// record is created at all.
func (s *transactionService) DispenseToPatient(ctx context.Context, caller Identity, in DispensationInput) (*Transaction, error) {
	if err := validateCommon(in.Quantity, in.Reason); err != nil {
		return nil, err
	}
	if in.PatientRef == "" || in.PatientName == "" {
		return nil, validationf("patient", "patient reference and name are required")
	}

	var sourceID string
	switch caller.Role {
	case RolePharmacist:
		if caller.HomeLocationID == nil {
			return nil, &RoleError{Role: caller.Role, Action: "dispense without an assigned clinic"}
		}
		sourceID = *caller.HomeLocationID
	case RoleAdmin:
		sourceID = in.SourceLocationID
	default:
		return nil, &RoleError{Role: caller.Role, Action: "dispense to a patient"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin dispensation: %w", err)
	}
	defer tx.Rollback()

	item, err := s.resolveItem(ctx, tx, in.ItemID)
	if err != nil {
		return nil, err
	}
	src, err := s.resolveLocation(ctx, tx, sourceID)
	if err != nil {
		return nil, err
	}
	if src.Kind != LocationClinic {
		return nil, validationf("source_location_id", "patients are dispensed from clinics, %s is a %s", src.ID, src.Kind)
	}

	available, err := s.stock.QuantityAtTx(ctx, tx, item.ID, src.ID)
	if err != nil {
		return nil, err
	}
	if available < in.Quantity {
		return nil, &InsufficientStockError{
			ItemID:     item.ID,
			LocationID: src.ID,
			Requested:  in.Quantity,
			Available:  available,
		}
	}

	now := nowStamp()
	t := &Transaction{
		ID:               uuid.NewString(),
		Type:             TypeDispensation,
		ItemID:           item.ID,
		ItemKind:         item.Kind,
		Quantity:         in.Quantity,
		SourceLocationID: &src.ID,
		Reason:           in.Reason,
		PatientRef:       &in.PatientRef,
		PatientName:      &in.PatientName,
		Status:           StatusCompleted,
		EffectApplied:    true,
		RequestedBy:      caller.UserID,
		ProcessedBy:      &caller.UserID,
		RequestedAt:      now,
		ProcessedAt:      &now,
	}
	if err := s.insertTx(ctx, tx, t); err != nil {
		return nil, err
	}
	if _, err := s.stock.AdjustTx(ctx, tx, item.ID, src.ID, -in.Quantity); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dispensation: %w", err)
	}
	return t, nil
}

// ── Status commands ───────────────────────────────────────────────────────────

func (s *transactionService) ApproveDistribution(ctx context.Context, caller Identity, txID string) (*Transaction, error) {
	if caller.Role != RoleAdmin {
		return nil, &RoleError{Role: caller.Role, Action: "approve a distribution"}
	}
	return s.transition(ctx, caller, txID, StatusPending, StatusApproved, false)
}

func (s *transactionService) RejectDistribution(ctx context.Context, caller Identity, txID string) (*Transaction, error) {
	if caller.Role != RoleAdmin {
		return nil, &RoleError{Role: caller.Role, Action: "reject a distribution"}
	}
	return s.transition(ctx, caller, txID, StatusPending, StatusRejected, false)
}

// CompleteDistribution is the fulfilment step: the warehouse operator (or an
// administrator) moves the approved quantity out of the warehouse and into
// the destination clinic.
func (s *transactionService) CompleteDistribution(ctx context.Context, caller Identity, txID string) (*Transaction, error) {
	if caller.Role != RoleWarehouse && caller.Role != RoleAdmin {
		return nil, &RoleError{Role: caller.Role, Action: "complete a distribution"}
	}
	return s.transition(ctx, caller, txID, StatusApproved, StatusCompleted, true)
}

// transition moves a distribution from one status to the next under the
// command mutex, applying the ledger effect when the target status makes the
// movement effective. The effect_applied flag keeps a replayed completion
// from double-applying.
func (s *transactionService) transition(ctx context.Context, caller Identity, txID string,
	from, to TransactionStatus, applyEffect bool) (*Transaction, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin status change: %w", err)
	}
	defer tx.Rollback()

	var t Transaction
	err = tx.GetContext(ctx, &t,
		tx.Rebind("SELECT "+transactionColumns+" FROM transactions WHERE id = ?"), txID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "transaction", ID: txID}
		}
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txID, err)
	}

	if t.Type != TypeDistribution {
		return nil, validationf("type", "transaction %s is a %s; only distributions carry an approval workflow", txID, t.Type)
	}
	if t.Status.terminal() {
		return nil, validationf("status", "transaction %s is %s, which is terminal", txID, t.Status)
	}
	if t.Status != from {
		return nil, validationf("status", "transaction %s is %s, expected %s", txID, t.Status, from)
	}

	if applyEffect && !t.EffectApplied {
		available, err := s.stock.QuantityAtTx(ctx, tx, t.ItemID, *t.SourceLocationID)
		if err != nil {
			return nil, err
		}
		if available < t.Quantity {
			return nil, &InsufficientStockError{
				ItemID:     t.ItemID,
				LocationID: *t.SourceLocationID,
				Requested:  t.Quantity,
				Available:  available,
			}
		}
		if _, err := s.stock.AdjustTx(ctx, tx, t.ItemID, *t.SourceLocationID, -t.Quantity); err != nil {
			return nil, err
		}
		if _, err := s.stock.AdjustTx(ctx, tx, t.ItemID, *t.DestinationLocationID, t.Quantity); err != nil {
			return nil, err
		}
		t.EffectApplied = true
	}

	now := nowStamp()
	t.Status = to
	t.ProcessedBy = &caller.UserID
	t.ProcessedAt = &now

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE transactions
		SET status = ?, effect_applied = ?, processed_by = ?, processed_at = ?
		WHERE id = ?
	`), t.Status, t.EffectApplied, t.ProcessedBy, t.ProcessedAt, t.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", txID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}
	return &t, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *transactionService) Get(ctx context.Context, id string) (*Transaction, error) {
	var t Transaction
	err := s.conn.GetContext(ctx, &t,
		s.conn.Rebind("SELECT "+transactionColumns+" FROM transactions WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "transaction", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", id, err)
	}
	return &t, nil
}

func (s *transactionService) DamageReportFor(ctx context.Context, transactionID string) (*DamageReport, error) {
	var r DamageReport
	err := s.conn.GetContext(ctx, &r,
		s.conn.Rebind("SELECT * FROM damage_reports WHERE transaction_id = ?"), transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "damage report for transaction", ID: transactionID}
		}
		return nil, fmt.Errorf("failed to fetch damage report for %s: %w", transactionID, err)
	}
	return &r, nil
}

func (s *transactionService) ListDamageReports(ctx context.Context) ([]DamageReport, error) {
	var reports []DamageReport
	err := s.conn.SelectContext(ctx, &reports,
		"SELECT * FROM damage_reports ORDER BY reported_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list damage reports: %w", err)
	}
	return reports, nil
}
