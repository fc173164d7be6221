package app

import "pharmastock/internal/core"

// ItemResult is a catalog item with its total quantity and, when requested
// as a single item, its per-location breakdown.
type ItemResult struct {
	Item          core.Item               `json:"item"`
	TotalQuantity int64                   `json:"total_quantity"`
	Breakdown     []core.LocationQuantity `json:"breakdown,omitempty"`
}

type ItemListResult struct {
	Items []ItemResult `json:"items"`
}

type LocationListResult struct {
	Locations []core.Location `json:"locations"`
}

// LocationStockResult pairs a location with the item quantities it holds.
type LocationStockResult struct {
	Location core.Location       `json:"location"`
	Stock    []core.ItemQuantity `json:"stock"`
}

// TransactionResult is a transaction with its damage report, when it has one.
type TransactionResult struct {
	Transaction  core.Transaction   `json:"transaction"`
	DamageReport *core.DamageReport `json:"damage_report,omitempty"`
}

type TransactionListResult struct {
	Transactions []core.Transaction `json:"transactions"`
}

// DashboardResult is the aggregated stock overview.
type DashboardResult struct {
	ItemCount          int                 `json:"item_count"`
	MedicationCount    int                 `json:"medication_count"`
	SupplyCount        int                 `json:"supply_count"`
	PendingCount       int                 `json:"pending_count"`
	LowStock           []core.LowStockItem `json:"low_stock"`
	ExpiringSoon       []core.Item         `json:"expiring_soon"`
	UnreadNotification int64               `json:"unread_notifications"`
}

type NotificationListResult struct {
	Notifications []core.Notification `json:"notifications"`
	UnreadCount   int64               `json:"unread_count"`
}
