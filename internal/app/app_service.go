package app

import (
	"context"

	"pharmastock/internal/cases"
	"pharmastock/internal/core"
)

// expiryWindowDays is the dashboard's look-ahead for expiring medications.
const expiryWindowDays = 30

type appService struct {
	catalog       core.CatalogService
	locations     core.LocationService
	stock         core.StockService
	transactions  core.TransactionService
	queries       core.QueryService
	notifications core.NotificationService
	auth          core.AuthService
	caseStore     cases.Service
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	catalog core.CatalogService,
	locations core.LocationService,
	stock core.StockService,
	transactions core.TransactionService,
	queries core.QueryService,
	notifications core.NotificationService,
	auth core.AuthService,
	caseStore cases.Service,
) ApplicationService {
	return &appService{
		catalog:       catalog,
		locations:     locations,
		stock:         stock,
		transactions:  transactions,
		queries:       queries,
		notifications: notifications,
		auth:          auth,
		caseStore:     caseStore,
	}
}

func (s *appService) Login(ctx context.Context, email, password string) (*core.User, error) {
	return s.auth.Authenticate(ctx, email, password)
}

func (s *appService) GetUser(ctx context.Context, id string) (*core.User, error) {
	return s.auth.GetUser(ctx, id)
}

func (s *appService) RegisterItem(ctx context.Context, caller core.Identity, req RegisterItemRequest) (*ItemResult, error) {
	draft := core.ItemDraft{
		Kind:            core.ItemKind(req.Kind),
		Name:            req.Name,
		Manufacturer:    req.Manufacturer,
		Batch:           req.Batch,
		MinimumStock:    req.MinimumStock,
		StorageClass:    core.StorageClass(req.StorageClass),
		Category:        req.Category,
		InitialQuantity: req.InitialQuantity,
	}
	if req.ExpiryDate != "" {
		draft.ExpiryDate = &req.ExpiryDate
	}

	id, err := s.catalog.Register(ctx, caller, draft, s.transactions)
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *appService) UpdateItem(ctx context.Context, caller core.Identity, id string, req UpdateItemRequest) (*ItemResult, error) {
	item, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	item.Name = req.Name
	item.Manufacturer = req.Manufacturer
	item.Batch = req.Batch
	item.MinimumStock = req.MinimumStock
	item.StorageClass = core.StorageClass(req.StorageClass)
	item.Category = req.Category
	item.ExpiryDate = nil
	if req.ExpiryDate != "" {
		expiry := req.ExpiryDate
		item.ExpiryDate = &expiry
	}

	if err := s.catalog.Update(ctx, caller, *item); err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *appService) GetItem(ctx context.Context, id string) (*ItemResult, error) {
	item, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	total, err := s.stock.TotalQuantity(ctx, id)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.stock.Breakdown(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ItemResult{Item: *item, TotalQuantity: total, Breakdown: breakdown}, nil
}

func (s *appService) ListItems(ctx context.Context, kind *string) (*ItemListResult, error) {
	var (
		items []core.Item
		err   error
	)
	if kind == nil {
		items, err = s.catalog.List(ctx)
	} else {
		items, err = s.catalog.ListByKind(ctx, core.ItemKind(*kind))
	}
	if err != nil {
		return nil, err
	}

	out := make([]ItemResult, 0, len(items))
	for _, item := range items {
		total, err := s.stock.TotalQuantity(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ItemResult{Item: item, TotalQuantity: total})
	}
	return &ItemListResult{Items: out}, nil
}

func (s *appService) ListLocations(ctx context.Context) (*LocationListResult, error) {
	locs, err := s.locations.List(ctx)
	if err != nil {
		return nil, err
	}
	return &LocationListResult{Locations: locs}, nil
}

func (s *appService) GetLocationStock(ctx context.Context, locationID string) (*LocationStockResult, error) {
	loc, err := s.locations.Get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	stock, err := s.queries.LocationStock(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return &LocationStockResult{Location: *loc, Stock: stock}, nil
}

func (s *appService) ReceiveStock(ctx context.Context, caller core.Identity, req ReceiveStockRequest) (*TransactionResult, error) {
	t, err := s.transactions.ReceiveStock(ctx, caller, core.ReceiptInput{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Reason:   req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: *t}, nil
}

func (s *appService) RequestDistribution(ctx context.Context, caller core.Identity, req DistributionRequest) (*TransactionResult, error) {
	t, err := s.transactions.RequestDistribution(ctx, caller, core.DistributionInput{
		ItemID:                req.ItemID,
		Quantity:              req.Quantity,
		DestinationLocationID: req.DestinationID,
		Reason:                req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: *t}, nil
}

func (s *appService) ApproveDistribution(ctx context.Context, caller core.Identity, txID string) (*TransactionResult, error) {
	t, err := s.transactions.ApproveDistribution(ctx, caller, txID)
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: *t}, nil
}

func (s *appService) RejectDistribution(ctx context.Context, caller core.Identity, txID string) (*TransactionResult, error) {
	t, err := s.transactions.RejectDistribution(ctx, caller, txID)
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: *t}, nil
}

func (s *appService) CompleteDistribution(ctx context.Context, caller core.Identity, txID string) (*TransactionResult, error) {
	t, err := s.transactions.CompleteDistribution(ctx, caller, txID)
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: *t}, nil
}

func (s *appService) DispenseToPatient(ctx context.Context, caller core.Identity, req DispensationRequest) (*TransactionResult, error) {
	t, err := s.transactions.DispenseToPatient(ctx, caller, core.DispensationInput{
		ItemID:           req.ItemID,
		Quantity:         req.Quantity,
		SourceLocationID: req.SourceLocationID,
		PatientRef:       req.PatientRef,
		PatientName:      req.PatientName,
		Reason:           req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: *t}, nil
}

func (s *appService) ReportDamage(ctx context.Context, caller core.Identity, req DamageRequest) (*TransactionResult, error) {
	t, err := s.transactions.ReportDamage(ctx, caller, core.DamageInput{
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		Batch:      req.Batch,
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, err
	}
	report, err := s.transactions.DamageReportFor(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: *t, DamageReport: report}, nil
}

// ListTransactions scopes the result by role: administrators and the central
// warehouse see everything, pharmacists only movements touching their clinic.
func (s *appService) ListTransactions(ctx context.Context, caller core.Identity, typ *string) (*TransactionListResult, error) {
	var (
		txs []core.Transaction
		err error
	)
	switch {
	case typ != nil:
		txs, err = s.queries.TransactionsByType(ctx, core.TransactionType(*typ))
	case caller.Role == core.RolePharmacist && caller.HomeLocationID != nil:
		txs, err = s.queries.TransactionsForLocation(ctx, caller.HomeLocationID)
	default:
		txs, err = s.queries.TransactionsForLocation(ctx, nil)
	}
	if err != nil {
		return nil, err
	}
	if typ != nil && caller.Role == core.RolePharmacist && caller.HomeLocationID != nil {
		txs = filterByLocation(txs, *caller.HomeLocationID)
	}
	return &TransactionListResult{Transactions: txs}, nil
}

func filterByLocation(txs []core.Transaction, locationID string) []core.Transaction {
	out := txs[:0]
	for _, t := range txs {
		if (t.SourceLocationID != nil && *t.SourceLocationID == locationID) ||
			(t.DestinationLocationID != nil && *t.DestinationLocationID == locationID) {
			out = append(out, t)
		}
	}
	return out
}

func (s *appService) GetTransaction(ctx context.Context, id string) (*TransactionResult, error) {
	t, err := s.transactions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &TransactionResult{Transaction: *t}
	if t.Type == core.TypeDamage {
		report, err := s.transactions.DamageReportFor(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		result.DamageReport = report
	}
	return result, nil
}

func (s *appService) GetItemHistory(ctx context.Context, itemID string, limit int) (*TransactionListResult, error) {
	if _, err := s.catalog.Get(ctx, itemID); err != nil {
		return nil, err
	}
	txs, err := s.queries.History(ctx, itemID, limit)
	if err != nil {
		return nil, err
	}
	return &TransactionListResult{Transactions: txs}, nil
}

func (s *appService) ListDamageReports(ctx context.Context) ([]core.DamageReport, error) {
	return s.transactions.ListDamageReports(ctx)
}

func (s *appService) GetDashboard(ctx context.Context) (*DashboardResult, error) {
	items, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	result := &DashboardResult{ItemCount: len(items)}
	for _, item := range items {
		if item.Kind == core.KindMedication {
			result.MedicationCount++
		} else {
			result.SupplyCount++
		}
	}

	distributions, err := s.queries.TransactionsByType(ctx, core.TypeDistribution)
	if err != nil {
		return nil, err
	}
	for _, t := range distributions {
		if t.Status == core.StatusPending {
			result.PendingCount++
		}
	}

	if result.LowStock, err = s.queries.LowStockItems(ctx); err != nil {
		return nil, err
	}
	if result.ExpiringSoon, err = s.queries.ExpiringWithin(ctx, expiryWindowDays); err != nil {
		return nil, err
	}
	if result.UnreadNotification, err = s.notifications.UnreadCount(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *appService) RunStockChecks(ctx context.Context) (int, error) {
	low, err := s.notifications.CheckLowStock(ctx)
	if err != nil {
		return 0, err
	}
	expiry, err := s.notifications.CheckExpiry(ctx)
	if err != nil {
		return low, err
	}
	return low + expiry, nil
}

func (s *appService) ListNotifications(ctx context.Context) (*NotificationListResult, error) {
	list, err := s.notifications.List(ctx)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.UnreadCount(ctx)
	if err != nil {
		return nil, err
	}
	return &NotificationListResult{Notifications: list, UnreadCount: unread}, nil
}

func (s *appService) MarkNotificationRead(ctx context.Context, id string) error {
	return s.notifications.MarkRead(ctx, id)
}

func (s *appService) MarkAllNotificationsRead(ctx context.Context) error {
	return s.notifications.MarkAllRead(ctx)
}

func (s *appService) ClearNotifications(ctx context.Context) error {
	return s.notifications.Clear(ctx)
}

func (s *appService) CreateCase(ctx context.Context, req cases.CreateInput) (*cases.Case, error) {
	return s.caseStore.Create(ctx, req)
}

func (s *appService) SearchCases(ctx context.Context, term, field string) ([]cases.Case, error) {
	return s.caseStore.Search(ctx, term, field)
}

func (s *appService) GetCaseAttachment(ctx context.Context, id string) (string, string, []byte, error) {
	return s.caseStore.Attachment(ctx, id)
}
