package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/lifecycle"
	"github.com/NateWesth/aleph-order-tracker/internal/logger"
	"github.com/NateWesth/aleph-order-tracker/internal/metrics"
	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/NateWesth/aleph-order-tracker/internal/progress"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileRepository is the order data access the reconciler needs
type ReconcileRepository interface {
	// FindOrdersByReferences returns orders whose reference matches any candidate
	FindOrdersByReferences(ctx context.Context, refs []string) ([]models.Order, error)
	// FindOrderByNumber returns order by its human-facing number
	FindOrderByNumber(ctx context.Context, num string) (*models.Order, error)
	// GetOrderItems returns the items of an order
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	// UpdateItemProgress updates item and description mirror transactionally
	UpdateItemProgress(ctx context.Context, item models.OrderItem, description string) error
}

// SyncLogRepository persists integration sync audit entries
type SyncLogRepository interface {
	InsertEntry(ctx context.Context, entry models.SyncEntry) error
}

// ReconcileService applies inbound integration events to item progress,
// matching on business keys (order reference, item SKU) rather than primary
// keys. Matching is strict and idempotent: quantity must equal exactly, and
// an item already at or past the target stage is left untouched.
type ReconcileService struct {
	repo        ReconcileRepository
	syncLog     SyncLogRepository
	pub         ChangePublisher
	targetStage string
	timeout     time.Duration
}

// NewReconcileService creates new ReconcileService instance
func NewReconcileService(repo ReconcileRepository, syncLog SyncLogRepository, pub ChangePublisher, targetStage string, timeout time.Duration) *ReconcileService {
	if _, ok := lifecycle.StageRank(targetStage); !ok {
		targetStage = models.StageReadyForDelivery
	}
	return &ReconcileService{
		repo:        repo,
		syncLog:     syncLog,
		pub:         pub,
		targetStage: targetStage,
		timeout:     timeout,
	}
}

// ApplyEvent reconciles one external event against stored orders. A missing
// match is success-with-warning, not an error: erroring would make the
// upstream sender retry indefinitely. Only genuine processing failures
// return an error.
func (rs *ReconcileService) ApplyEvent(ctx context.Context, evt models.ExternalEvent) (models.ReconcileResult, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	}()

	result := models.ReconcileResult{}

	orders, err := rs.matchOrders(ctx, evt)
	if err != nil {
		rs.record(ctx, evt, models.SyncStatusError, 0, err.Error())
		return result, err
	}

	if len(orders) == 0 {
		logger.Log.Warn("no order found for external event",
			zap.String("sku", evt.SKU),
			zap.Strings("references", evt.References),
			zap.String("source_doc", evt.SourceDocID))
		metrics.ReconcileOutcomes.WithLabelValues(metrics.OutcomeNoMatch).Inc()
		rs.record(ctx, evt, models.SyncStatusWarning, 0, "no matching order")
		return result, nil
	}

	result.Matched = true

	// a failure on one order must not abort the others; partial success is
	// the norm for background reconciliation
	for _, order := range orders {
		outcome := rs.applyToOrder(ctx, order, evt)
		result.ItemsUpdated += outcome.ItemsUpdated
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.ItemsUpdated == 0 {
		// distinct from "no order found" so operators can tell "nothing to
		// do" from "data missing"
		logger.Log.Info("external event matched orders but updated no items",
			zap.String("sku", evt.SKU),
			zap.Int("quantity", evt.Quantity),
			zap.Int("orders", len(orders)))
		rs.record(ctx, evt, models.SyncStatusWarning, 0, "matched but zero items updated")
		return result, nil
	}

	rs.record(ctx, evt, models.SyncStatusOK, result.ItemsUpdated, "")
	return result, nil
}

// matchOrders resolves candidate orders: by reference key first, then by
// the order's own human-facing number
func (rs *ReconcileService) matchOrders(ctx context.Context, evt models.ExternalEvent) ([]models.Order, error) {
	refs := make([]string, 0, len(evt.References))
	for _, ref := range evt.References {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	orders, err := rs.repo.FindOrdersByReferences(ctx, refs)
	if err != nil {
		return nil, err
	}
	if len(orders) > 0 {
		return orders, nil
	}

	for _, ref := range refs {
		order, err := rs.repo.FindOrderByNumber(ctx, ref)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				continue
			}
			return nil, err
		}
		return []models.Order{*order}, nil
	}

	return nil, nil
}

func (rs *ReconcileService) applyToOrder(ctx context.Context, order models.Order, evt models.ExternalEvent) models.OrderOutcome {
	outcome := models.OrderOutcome{OrderID: order.ID, Number: order.Number}

	items, err := rs.repo.GetOrderItems(ctx, order.ID)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	targetRank, _ := lifecycle.StageRank(rs.targetStage)

	for i := range items {
		item := &items[i]
		if item.Code == "" || !strings.EqualFold(item.Code, evt.SKU) {
			continue
		}

		if item.Quantity != evt.Quantity {
			// strict policy: quantity-mismatch lines are skipped whole,
			// never partially applied
			logger.Log.Warn("quantity mismatch, skipping item",
				zap.String("order", order.Number),
				zap.String("sku", item.Code),
				zap.Int("item_quantity", item.Quantity),
				zap.Int("event_quantity", evt.Quantity))
			metrics.ReconcileOutcomes.WithLabelValues(metrics.OutcomeQuantityMismatch).Inc()
			outcome.ItemsSkipped++
			continue
		}

		if rank, ok := lifecycle.StageRank(item.Stage); ok && rank >= targetRank {
			// already advanced, replaying the event is a no-op
			logger.Log.Debug("item already at or past target stage",
				zap.String("order", order.Number),
				zap.String("sku", item.Code),
				zap.String("stage", item.Stage))
			metrics.ReconcileOutcomes.WithLabelValues(metrics.OutcomeAlreadyAdvanced).Inc()
			outcome.ItemsSkipped++
			continue
		}

		before := itemSnapshot(*item)

		if err := lifecycle.AdvanceItemStage(item, rs.targetStage, false); err != nil {
			outcome.Error = err.Error()
			outcome.ItemsSkipped++
			continue
		}

		if err := rs.repo.UpdateItemProgress(ctx, *item, progress.Encode(items)); err != nil {
			logger.Log.Error("failed to persist reconciled item",
				zap.String("order", order.Number),
				zap.String("sku", item.Code),
				zap.Error(err))
			outcome.Error = err.Error()
			continue
		}

		metrics.ReconcileOutcomes.WithLabelValues(metrics.OutcomeApplied).Inc()
		outcome.ItemsUpdated++

		rs.pub.PublishRaw(models.RawChange{
			Table:  models.TableOrderItems,
			Op:     models.OpUpdate,
			Before: before,
			After:  itemSnapshot(*item),
		})
	}

	return outcome
}

// RecordFailure writes an error entry to the sync log, used for failures
// happening before an event reaches the reconciler (e.g. webhook auth)
func (rs *ReconcileService) RecordFailure(ctx context.Context, syncType, errMsg string) {
	rs.record(ctx, models.ExternalEvent{Kind: syncType}, models.SyncStatusError, 0, errMsg)
}

func (rs *ReconcileService) record(ctx context.Context, evt models.ExternalEvent, status string, synced int, errMsg string) {
	entry := models.SyncEntry{
		ID:           uuid.New(),
		SyncType:     evt.Kind,
		Status:       status,
		ItemsSynced:  synced,
		ErrorMessage: errMsg,
		CompletedAt:  time.Now(),
	}
	if err := rs.syncLog.InsertEntry(ctx, entry); err != nil {
		logger.Log.Error("failed to write sync log entry", zap.Error(err))
	}
}
