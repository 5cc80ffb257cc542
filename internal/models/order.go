package models

import (
	"time"

	"github.com/google/uuid"
)

// order status
const (
	OrderStatusPending    = "pending"
	OrderStatusReceived   = "received"
	OrderStatusInProgress = "in-progress"
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
)

// order urgency
const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// item progress stage
const (
	StageAwaitingStock    = "awaiting-stock"
	StagePacking          = "packing"
	StageInStock          = "in-stock"
	StageReadyForDelivery = "ready-for-delivery"
	StageCompleted        = "completed"
)

// item stock status
const (
	StockAwaiting = "awaiting"
	StockOrdered  = "ordered"
	StockInStock  = "in-stock"
)

// Order is order entity
type Order struct {
	ID          uuid.UUID
	Number      string // human-facing order number
	Reference   string // external business key, e.g. ERP sales-order number
	CompanyRef  string
	Status      string
	Urgency     string
	Description string // encoded per-item progress mirror, see internal/progress
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// OrderItem is one line of an order with independent progress tracking
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Name        string
	Code        string // business SKU, may be empty
	Quantity    int
	Delivered   int
	StockStatus string
	Stage       string
	UpdatedAt   time.Time
}

// Complete reports whether the item is fully delivered and at terminal stage
func (it OrderItem) Complete() bool {
	return it.Delivered >= it.Quantity && it.Stage == StageCompleted
}

// PurchaseOrderLink ties an order to an external purchase order number
type PurchaseOrderLink struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	PONumber  string
	CreatedAt time.Time
}

// SyncEntry is an audit record of one integration sync attempt
type SyncEntry struct {
	ID           uuid.UUID
	SyncType     string
	Status       string
	ItemsSynced  int
	ErrorMessage string
	CompletedAt  time.Time
}

// sync entry status
const (
	SyncStatusOK      = "ok"
	SyncStatusWarning = "warning"
	SyncStatusError   = "error"
)
