package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which table a change belongs to
type EntityType string

const (
	EntityOrder         EntityType = "order"
	EntityItem          EntityType = "item"
	EntityPurchaseOrder EntityType = "purchase_order"
)

// Operation is the kind of row mutation behind a change
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// change notification source tables
const (
	TableOrders         = "orders"
	TableOrderItems     = "order_items"
	TablePurchaseOrders = "order_purchase_orders"
)

// RawChange is an unprocessed row-change notification as emitted by the
// write path. Before/After carry column snapshots and may be partial.
type RawChange struct {
	Table  string
	Op     Operation
	Before map[string]any
	After  map[string]any
}

// ChangeEvent is the canonical change descriptor consumed by the dispatcher.
// It lives only inside the dispatch pipeline and is never persisted.
type ChangeEvent struct {
	Entity        EntityType
	Op            Operation
	EntityID      uuid.UUID
	OrderID       uuid.UUID // zero for purchase-order links without one
	StatusChanged bool
	OldStatus     string
	NewStatus     string
	OccurredAt    time.Time
}

// external event kind
const (
	SyncTypeInvoice    = "invoice"
	SyncTypeSalesOrder = "sales_order"
)

// ExternalEvent is an inbound integration event, e.g. an invoice line
// shipped by the accounting system. Matching runs on business keys only.
type ExternalEvent struct {
	Kind        string
	SKU         string
	Quantity    int
	SourceDocID string
	References  []string // candidate order reference strings, in match order
}

// OrderOutcome reports what the reconciler did to a single matched order
type OrderOutcome struct {
	OrderID      uuid.UUID `json:"order_id"`
	Number       string    `json:"number"`
	ItemsUpdated int       `json:"items_updated"`
	ItemsSkipped int       `json:"items_skipped"`
	Error        string    `json:"error,omitempty"`
}

// ReconcileResult is the per-event summary returned to the webhook sender.
// Matched false means no candidate order was found at all.
type ReconcileResult struct {
	Matched      bool           `json:"matched"`
	ItemsUpdated int            `json:"items_updated"`
	Outcomes     []OrderOutcome `json:"outcomes,omitempty"`
}
