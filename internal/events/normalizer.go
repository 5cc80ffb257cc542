package events

import (
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/metrics"
	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Normalizer converts raw row-change notifications into canonical change
// events. It never panics on malformed payloads: missing optional fields
// degrade to best-effort canonical fields, and a payload with no
// identifiable entity id is dropped with a warning.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates new Normalizer instance
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize produces the canonical event for raw. The second return value
// is false when the payload was dropped.
func (n *Normalizer) Normalize(raw models.RawChange) (models.ChangeEvent, bool) {
	var entity models.EntityType
	switch raw.Table {
	case models.TableOrders:
		entity = models.EntityOrder
	case models.TableOrderItems:
		entity = models.EntityItem
	case models.TablePurchaseOrders:
		entity = models.EntityPurchaseOrder
	default:
		n.logger.Warn("dropping change for unknown table", zap.String("table", raw.Table))
		metrics.EventsDropped.Inc()
		return models.ChangeEvent{}, false
	}

	switch raw.Op {
	case models.OpInsert, models.OpUpdate, models.OpDelete:
	default:
		n.logger.Warn("dropping change with unknown operation", zap.String("op", string(raw.Op)))
		metrics.EventsDropped.Inc()
		return models.ChangeEvent{}, false
	}

	entityID, ok := uuidField(raw.After, "id")
	if !ok {
		entityID, ok = uuidField(raw.Before, "id")
	}
	if !ok {
		n.logger.Warn("dropping change without entity id",
			zap.String("table", raw.Table),
			zap.String("op", string(raw.Op)))
		metrics.EventsDropped.Inc()
		return models.ChangeEvent{}, false
	}

	evt := models.ChangeEvent{
		Entity:     entity,
		Op:         raw.Op,
		EntityID:   entityID,
		OccurredAt: time.Now(),
	}

	if entity == models.EntityOrder {
		evt.OrderID = entityID
	} else {
		if orderID, ok := uuidField(raw.After, "order_id"); ok {
			evt.OrderID = orderID
		} else if orderID, ok := uuidField(raw.Before, "order_id"); ok {
			evt.OrderID = orderID
		}
	}

	// status change is a distinct sub-case of update: downstream consumers
	// apply different refresh policies to it
	if raw.Op == models.OpUpdate {
		key := "status"
		if entity == models.EntityItem {
			key = "progress_stage"
		}
		oldStatus, _ := stringField(raw.Before, key)
		newStatus, _ := stringField(raw.After, key)
		if oldStatus != newStatus {
			evt.StatusChanged = true
			evt.OldStatus = oldStatus
			evt.NewStatus = newStatus
		}
	}

	metrics.EventsNormalized.Inc()
	return evt, true
}

func stringField(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func uuidField(m map[string]any, key string) (uuid.UUID, bool) {
	if m == nil {
		return uuid.Nil, false
	}
	switch v := m[key].(type) {
	case uuid.UUID:
		if v == uuid.Nil {
			return uuid.Nil, false
		}
		return v, true
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	default:
		return uuid.Nil, false
	}
}
