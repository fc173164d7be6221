package app

import (
	"context"

	"pharmastock/internal/cases"
	"pharmastock/internal/core"
)

// ApplicationService is the single interface all UI adapters call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// Login verifies credentials and returns the authenticated user.
	Login(ctx context.Context, email, password string) (*core.User, error)

	// GetUser returns a user by id.
	GetUser(ctx context.Context, id string) (*core.User, error)

	// RegisterItem adds a catalog item, optionally booking initial stock
	// into the central warehouse.
	RegisterItem(ctx context.Context, caller core.Identity, req RegisterItemRequest) (*ItemResult, error)

	// UpdateItem edits the mutable fields of a catalog item.
	UpdateItem(ctx context.Context, caller core.Identity, id string, req UpdateItemRequest) (*ItemResult, error)

	// GetItem returns one catalog item with its per-location stock breakdown.
	GetItem(ctx context.Context, id string) (*ItemResult, error)

	// ListItems returns catalog items, optionally filtered by kind.
	ListItems(ctx context.Context, kind *string) (*ItemListResult, error)

	// ListLocations returns all storage locations.
	ListLocations(ctx context.Context) (*LocationListResult, error)

	// GetLocationStock returns item quantities held at one location.
	GetLocationStock(ctx context.Context, locationID string) (*LocationStockResult, error)

	// ReceiveStock books an inbound delivery into the central warehouse.
	ReceiveStock(ctx context.Context, caller core.Identity, req ReceiveStockRequest) (*TransactionResult, error)

	// RequestDistribution asks for stock to move from the warehouse to a clinic.
	RequestDistribution(ctx context.Context, caller core.Identity, req DistributionRequest) (*TransactionResult, error)

	// ApproveDistribution moves a pending distribution to approved.
	ApproveDistribution(ctx context.Context, caller core.Identity, txID string) (*TransactionResult, error)

	// RejectDistribution moves a pending distribution to rejected.
	RejectDistribution(ctx context.Context, caller core.Identity, txID string) (*TransactionResult, error)

	// CompleteDistribution applies an approved distribution to the stock ledger.
	CompleteDistribution(ctx context.Context, caller core.Identity, txID string) (*TransactionResult, error)

	// DispenseToPatient hands stock from a clinic to a patient.
	DispenseToPatient(ctx context.Context, caller core.Identity, req DispensationRequest) (*TransactionResult, error)

	// ReportDamage writes off damaged stock and files a damage report.
	ReportDamage(ctx context.Context, caller core.Identity, req DamageRequest) (*TransactionResult, error)

	// ListTransactions returns transactions visible to the caller, newest first.
	ListTransactions(ctx context.Context, caller core.Identity, typ *string) (*TransactionListResult, error)

	// GetTransaction returns one transaction, with its damage report if any.
	GetTransaction(ctx context.Context, id string) (*TransactionResult, error)

	// GetItemHistory returns the newest transactions touching one item.
	// limit <= 0 applies the default window.
	GetItemHistory(ctx context.Context, itemID string, limit int) (*TransactionListResult, error)

	// ListDamageReports returns all damage reports, newest first.
	ListDamageReports(ctx context.Context) ([]core.DamageReport, error)

	// GetDashboard aggregates the stock overview: totals, low stock and
	// medications expiring soon.
	GetDashboard(ctx context.Context) (*DashboardResult, error)

	// RunStockChecks sweeps the catalog for low-stock and expiry conditions,
	// raising notifications. Returns how many alerts were added.
	RunStockChecks(ctx context.Context) (int, error)

	// ListNotifications returns notifications, newest first.
	ListNotifications(ctx context.Context) (*NotificationListResult, error)

	// MarkNotificationRead marks one notification as read.
	MarkNotificationRead(ctx context.Context, id string) error

	// MarkAllNotificationsRead marks every notification as read.
	MarkAllNotificationsRead(ctx context.Context) error

	// ClearNotifications deletes all notifications.
	ClearNotifications(ctx context.Context) error

	// CreateCase registers a legal case record.
	CreateCase(ctx context.Context, req cases.CreateInput) (*cases.Case, error)

	// SearchCases performs a substring search over case records.
	SearchCases(ctx context.Context, term, field string) ([]cases.Case, error)

	// GetCaseAttachment returns the decoded attachment of a case.
	GetCaseAttachment(ctx context.Context, id string) (name, mimeType string, data []byte, err error)
}
