package core

import "time"

// timeLayout is the storage format for every timestamp column. RFC 3339 UTC
// strings compare lexicographically in chronological order, which both query
// ordering and the expiry predicates rely on.
const timeLayout = time.RFC3339

func nowStamp() string {
	return time.Now().UTC().Format(timeLayout)
}

type ItemKind string

const (
	KindMedication ItemKind = "medication"
	KindSupply     ItemKind = "supply"
)

type StorageClass string

const (
	StorageRoom         StorageClass = "room"
	StorageRefrigerated StorageClass = "refrigerated"
	StorageControlled   StorageClass = "controlled"
)

type LocationKind string

const (
	LocationWarehouse LocationKind = "warehouse"
	LocationClinic    LocationKind = "clinic"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleWarehouse  Role = "warehouse"
)

// Identity is the caller identity supplied by the authentication layer.
// Pharmacists carry the clinic they are assigned to.
type Identity struct {
	UserID         string
	Name           string
	Role           Role
	HomeLocationID *string
}

// Item is a catalog entry for a medication or a supply. Medications always
// carry an expiry date; supplies may omit it.
type Item struct {
	ID           string       `db:"id" json:"id"`
	Kind         ItemKind     `db:"kind" json:"kind"`
	Name         string       `db:"name" json:"name"`
	Manufacturer string       `db:"manufacturer" json:"manufacturer"`
	Batch        string       `db:"batch" json:"batch"`
	ExpiryDate   *string      `db:"expiry_date" json:"expiry_date,omitempty"`
	MinimumStock int64        `db:"minimum_stock" json:"minimum_stock"`
	StorageClass StorageClass `db:"storage_class" json:"storage_class"`
	Category     string       `db:"category" json:"category"`
	CreatedAt    string       `db:"created_at" json:"created_at"`
	UpdatedAt    string       `db:"updated_at" json:"updated_at"`
}

// ItemDraft is the input for registering a new catalog item. A positive
// InitialQuantity is booked as a receipt at the warehouse, never written to
// stock directly.
type ItemDraft struct {
	Kind            ItemKind     `json:"kind"`
	Name            string       `json:"name"`
	Manufacturer    string       `json:"manufacturer"`
	Batch           string       `json:"batch"`
	ExpiryDate      *string      `json:"expiry_date,omitempty"`
	MinimumStock    int64        `json:"minimum_stock"`
	StorageClass    StorageClass `json:"storage_class"`
	Category        string       `json:"category"`
	InitialQuantity int64        `json:"initial_quantity"`
}

type Location struct {
	ID   string       `db:"id" json:"id"`
	Name string       `db:"name" json:"name"`
	Kind LocationKind `db:"kind" json:"kind"`
}

// StockLevel is the quantity of one item at one location. Absence of a row
// means zero.
type StockLevel struct {
	ItemID     string `db:"item_id" json:"item_id"`
	LocationID string `db:"location_id" json:"location_id"`
	Quantity   int64  `db:"quantity" json:"quantity"`
	UpdatedAt  string `db:"updated_at" json:"updated_at"`
}

// LocationQuantity is one row of a per-item stock breakdown. Zero-quantity
// locations are included for display completeness.
type LocationQuantity struct {
	LocationID   string `db:"location_id" json:"location_id"`
	LocationName string `db:"location_name" json:"location_name"`
	Quantity     int64  `db:"quantity" json:"quantity"`
}

type TransactionType string

const (
	TypeReceipt      TransactionType = "receipt"
	TypeDistribution TransactionType = "distribution"
	TypeDispensation TransactionType = "patient-dispensation"
	TypeDamage       TransactionType = "damage"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusApproved  TransactionStatus = "approved"
	StatusRejected  TransactionStatus = "rejected"
	StatusCompleted TransactionStatus = "completed"
)

// terminal reports whether no further status transition is allowed.
func (s TransactionStatus) terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Transaction is one movement record in the append-only log. Only status,
// processed_by and processed_at ever change after creation.
type Transaction struct {
	ID                    string            `db:"id" json:"id"`
	Type                  TransactionType   `db:"type" json:"type"`
	ItemID                string            `db:"item_id" json:"item_id"`
	ItemKind              ItemKind          `db:"item_kind" json:"item_kind"`
	Quantity              int64             `db:"quantity" json:"quantity"`
	SourceLocationID      *string           `db:"source_location_id" json:"source_location_id,omitempty"`
	DestinationLocationID *string           `db:"destination_location_id" json:"destination_location_id,omitempty"`
	Reason                string            `db:"reason" json:"reason"`
	PatientRef            *string           `db:"patient_ref" json:"patient_ref,omitempty"`
	PatientName           *string           `db:"patient_name" json:"patient_name,omitempty"`
	Status                TransactionStatus `db:"status" json:"status"`
	EffectApplied         bool              `db:"effect_applied" json:"-"`
	RequestedBy           string            `db:"requested_by" json:"requested_by"`
	ProcessedBy           *string           `db:"processed_by" json:"processed_by,omitempty"`
	RequestedAt           string            `db:"requested_at" json:"requested_at"`
	ProcessedAt           *string           `db:"processed_at" json:"processed_at,omitempty"`
}

// DamageReport is the audit companion of a damage transaction. It carries no
// ledger effect of its own.
type DamageReport struct {
	ID            string   `db:"id" json:"id"`
	TransactionID string   `db:"transaction_id" json:"transaction_id"`
	ItemID        string   `db:"item_id" json:"item_id"`
	ItemKind      ItemKind `db:"item_kind" json:"item_kind"`
	LocationID    string   `db:"location_id" json:"location_id"`
	Quantity      int64    `db:"quantity" json:"quantity"`
	Batch         string   `db:"batch" json:"batch"`
	Reason        string   `db:"reason" json:"reason"`
	ReportedBy    string   `db:"reported_by" json:"reported_by"`
	ReportedAt    string   `db:"reported_at" json:"reported_at"`
}

type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
	NotifySuccess NotificationType = "success"
)

type Notification struct {
	ID        string           `db:"id" json:"id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt string           `db:"created_at" json:"created_at"`
}

type User struct {
	ID             string  `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	Email          string  `db:"email" json:"email"`
	PasswordHash   string  `db:"password_hash" json:"-"`
	Role           Role    `db:"role" json:"role"`
	HomeLocationID *string `db:"home_location_id" json:"home_location_id,omitempty"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
}

// Identity derives the caller identity for this user.
func (u *User) Identity() Identity {
	return Identity{
		UserID:         u.ID,
		Name:           u.Name,
		Role:           u.Role,
		HomeLocationID: u.HomeLocationID,
	}
}
