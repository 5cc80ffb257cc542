package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// relay topics, one per source table
const (
	TopicOrderChanges         = "orders.changes"
	TopicItemChanges          = "orders.items.changes"
	TopicPurchaseOrderChanges = "orders.purchase_orders.changes"
)

// ChangeMessage is the wire form of a change event on the relay topics
type ChangeMessage struct {
	EventType     string    `json:"event_type"`
	EntityID      string    `json:"entity_id"`
	OrderID       string    `json:"order_id,omitempty"`
	Operation     string    `json:"operation"`
	StatusChanged bool      `json:"status_changed"`
	OldStatus     string    `json:"old_status,omitempty"`
	NewStatus     string    `json:"new_status,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Relay republishes normalized change events to NATS so out-of-process
// consumers (UI gateways, report jobs) get the same contract as in-process
// views. Report jobs are read-only consumers; the relay only publishes.
type Relay struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewRelay connects to NATS at url
func NewRelay(url string, logger *zap.Logger) (*Relay, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Relay{conn: conn, logger: logger}, nil
}

// Attach subscribes the relay to the bus and returns the unsubscribe function
func (r *Relay) Attach(bus *Bus) (func(), error) {
	return bus.Subscribe(r.publish)
}

func (r *Relay) publish(evt models.ChangeEvent) {
	msg := ChangeMessage{
		EventType:     fmt.Sprintf("%s.%s", evt.Entity, evt.Op),
		EntityID:      evt.EntityID.String(),
		Operation:     string(evt.Op),
		StatusChanged: evt.StatusChanged,
		OldStatus:     evt.OldStatus,
		NewStatus:     evt.NewStatus,
		OccurredAt:    evt.OccurredAt,
	}
	if evt.OrderID != uuid.Nil {
		msg.OrderID = evt.OrderID.String()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("relay marshal failed", zap.Error(err))
		return
	}

	if err := r.conn.Publish(topicFor(evt.Entity), data); err != nil {
		r.logger.Error("relay publish failed",
			zap.String("entity", string(evt.Entity)),
			zap.Error(err))
	}
}

func topicFor(entity models.EntityType) string {
	switch entity {
	case models.EntityItem:
		return TopicItemChanges
	case models.EntityPurchaseOrder:
		return TopicPurchaseOrderChanges
	default:
		return TopicOrderChanges
	}
}

// Close drains the NATS connection
func (r *Relay) Close() {
	r.conn.Close()
}
