package app

// RegisterItemRequest is the input for adding a catalog item.
type RegisterItemRequest struct {
	Kind            string `json:"kind"`
	Name            string `json:"name"`
	Manufacturer    string `json:"manufacturer"`
	Batch           string `json:"batch"`
	ExpiryDate      string `json:"expiry_date,omitempty"`
	MinimumStock    int64  `json:"minimum_stock"`
	StorageClass    string `json:"storage_class"`
	Category        string `json:"category"`
	InitialQuantity int64  `json:"initial_quantity"`
}

// UpdateItemRequest carries the editable fields of a catalog item.
// Kind is fixed at registration and cannot change.
type UpdateItemRequest struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Batch        string `json:"batch"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
	MinimumStock int64  `json:"minimum_stock"`
	StorageClass string `json:"storage_class"`
	Category     string `json:"category"`
}

// ReceiveStockRequest is the input for booking an inbound delivery.
type ReceiveStockRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

// DistributionRequest asks for stock to move from the warehouse to a clinic.
type DistributionRequest struct {
	ItemID        string `json:"item_id"`
	Quantity      int64  `json:"quantity"`
	DestinationID string `json:"destination_id"`
	Reason        string `json:"reason"`
}

// DispensationRequest hands stock from a clinic to a patient.
// SourceLocationID is only honored for administrators; pharmacists always
// dispense from their home clinic.
type DispensationRequest struct {
	ItemID           string `json:"item_id"`
	Quantity         int64  `json:"quantity"`
	SourceLocationID string `json:"source_location_id,omitempty"`
	PatientRef       string `json:"patient_ref"`
	PatientName      string `json:"patient_name"`
	Reason           string `json:"reason"`
}

// DamageRequest writes off damaged stock at a location.
type DamageRequest struct {
	ItemID     string `json:"item_id"`
	Quantity   int64  `json:"quantity"`
	LocationID string `json:"location_id"`
	Reason     string `json:"reason"`
	Batch      string `json:"batch,omitempty"`
}
