// Package lifecycle defines the fixed order and item stage sequences and the
// transition rules between them. Transitions move forward only, except for
// an explicit admin override.
package lifecycle

import (
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
)

// statusRank orders the order status sequence
// pending -> received -> in-progress -> processing -> completed
var statusRank = map[string]int{
	models.OrderStatusPending:    0,
	models.OrderStatusReceived:   1,
	models.OrderStatusInProgress: 2,
	models.OrderStatusProcessing: 3,
	models.OrderStatusCompleted:  4,
}

// stageRank orders the item stage sequence. Packing and in-stock share a
// rank: either one reaches ready-for-delivery.
var stageRank = map[string]int{
	models.StageAwaitingStock:    0,
	models.StagePacking:          1,
	models.StageInStock:          1,
	models.StageReadyForDelivery: 2,
	models.StageCompleted:        3,
}

// stagePercent is the display mapping from stage to completion percentage.
// It is always derived on read, never stored.
var stagePercent = map[string]int{
	models.StageAwaitingStock:    25,
	models.StagePacking:          50,
	models.StageInStock:          50,
	models.StageReadyForDelivery: 75,
	models.StageCompleted:        100,
}

// StagePercent returns the display percentage for a stage, 0 for unknown
func StagePercent(stage string) int {
	return stagePercent[stage]
}

// StageRank returns the position of stage in the forward sequence
func StageRank(stage string) (int, bool) {
	r, ok := stageRank[stage]
	return r, ok
}

// CanAdvanceStage reports whether target is reachable from current in the
// forward sequence. Lateral moves between packing and in-stock are allowed.
func CanAdvanceStage(current, target string) bool {
	cur, ok := stageRank[current]
	if !ok {
		return false
	}
	tgt, ok := stageRank[target]
	if !ok {
		return false
	}
	if tgt > cur {
		return true
	}
	return tgt == cur && target != current
}

// AdvanceItemStage moves item to target stage. Without override the move
// must be forward-reachable; the override path has no guard. The item is
// untouched on error.
func AdvanceItemStage(item *models.OrderItem, target string, override bool) error {
	if _, ok := stageRank[target]; !ok {
		return models.ErrInvalidStage
	}
	if !override && !CanAdvanceStage(item.Stage, target) {
		return models.ErrStageNotReachable
	}

	item.Stage = target
	item.UpdatedAt = time.Now()
	return nil
}

// SetDelivered updates the delivered count, rejecting counts outside
// 0..quantity. The item is untouched on error.
func SetDelivered(item *models.OrderItem, delivered int) error {
	if delivered < 0 || delivered > item.Quantity {
		return models.ErrDeliveredExceedsQuantity
	}

	item.Delivered = delivered
	item.UpdatedAt = time.Now()
	return nil
}

// AllComplete reports whether every item of an order is complete. An order
// with no items is not complete.
func AllComplete(items []models.OrderItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !it.Complete() {
			return false
		}
	}
	return true
}

// CanAdvanceStatus reports whether target order status is forward of current
func CanAdvanceStatus(current, target string) bool {
	cur, ok := statusRank[current]
	if !ok {
		return false
	}
	tgt, ok := statusRank[target]
	if !ok {
		return false
	}
	return tgt > cur
}

// AdvanceOrderStatus moves the order status forward. Without override the
// move must be forward in the sequence. CompletedAt is set exactly when the
// status becomes completed and cleared otherwise.
func AdvanceOrderStatus(order *models.Order, target string, override bool) error {
	if _, ok := statusRank[target]; !ok {
		return models.ErrInvalidStage
	}
	if !override && !CanAdvanceStatus(order.Status, target) {
		return models.ErrPreconditionFailed
	}

	order.Status = target
	if target == models.OrderStatusCompleted {
		now := time.Now()
		order.CompletedAt = &now
	} else {
		order.CompletedAt = nil
	}
	return nil
}

// CompleteOrder marks the order completed. Valid only when every item is
// complete; otherwise the order is left unchanged.
func CompleteOrder(order *models.Order, items []models.OrderItem) error {
	if !AllComplete(items) {
		return models.ErrPreconditionFailed
	}

	order.Status = models.OrderStatusCompleted
	now := time.Now()
	order.CompletedAt = &now
	return nil
}

// OrderPercent derives the display percentage for a whole order as the mean
// of its item stage percentages
func OrderPercent(items []models.OrderItem) int {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, it := range items {
		sum += StagePercent(it.Stage)
	}
	return sum / len(items)
}
