package service

import (
	"context"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/lifecycle"
	"github.com/NateWesth/aleph-order-tracker/internal/logger"
	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/NateWesth/aleph-order-tracker/internal/progress"
	"github.com/NateWesth/aleph-order-tracker/internal/viewcache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts the order and its items in one transaction
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error)
	// GetOrder returns order by id
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetOrderItems returns the items of an order
	GetOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	// UpdateOrderStatus updates order status and completed timestamp
	UpdateOrderStatus(ctx context.Context, order models.Order) error
	// UpdateItemProgress updates item and description mirror transactionally
	UpdateItemProgress(ctx context.Context, item models.OrderItem, description string) error
	// DeleteOrder removes the order with cascade
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	// AddPurchaseOrder links a purchase order number to an order
	AddPurchaseOrder(ctx context.Context, link models.PurchaseOrderLink) error
}

// ChangePublisher feeds raw row changes into the dispatch pipeline
type ChangePublisher interface {
	PublishRaw(raw models.RawChange)
}

// OrderService owns order and item mutations. Every successful write emits
// a raw change into the pipeline so registered views refresh.
type OrderService struct {
	repo  OrderRepository
	pub   ChangePublisher
	cache viewcache.Cache
}

// NewOrderService creates new OrderService instance
func NewOrderService(repo OrderRepository, pub ChangePublisher, cache viewcache.Cache) *OrderService {
	return &OrderService{
		repo:  repo,
		pub:   pub,
		cache: cache,
	}
}

// Create stores a new order in status pending with its items in stage
// awaiting-stock. Item defaults and the description mirror are filled here.
func (os *OrderService) Create(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, []models.OrderItem, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.Status = models.OrderStatusPending
	if order.Urgency == "" {
		order.Urgency = models.UrgencyNormal
	}
	order.CreatedAt = time.Now()
	order.CompletedAt = nil

	for i := range items {
		if items[i].Quantity <= 0 {
			return nil, nil, models.ErrInvalidQuantity
		}
		if items[i].Delivered < 0 || items[i].Delivered > items[i].Quantity {
			return nil, nil, models.ErrDeliveredExceedsQuantity
		}
		items[i].ID = uuid.New()
		items[i].OrderID = order.ID
		if items[i].StockStatus == "" {
			items[i].StockStatus = models.StockAwaiting
		}
		if items[i].Stage == "" {
			items[i].Stage = models.StageAwaitingStock
		}
		items[i].UpdatedAt = order.CreatedAt
	}

	order.Description = progress.Encode(items)

	order, err := os.repo.CreateOrder(ctx, order, items)
	if err != nil {
		return nil, nil, err
	}

	os.pub.PublishRaw(models.RawChange{
		Table: models.TableOrders,
		Op:    models.OpInsert,
		After: orderSnapshot(*order),
	})
	for _, item := range items {
		os.pub.PublishRaw(models.RawChange{
			Table: models.TableOrderItems,
			Op:    models.OpInsert,
			After: itemSnapshot(item),
		})
	}

	return order, items, nil
}

// Import creates an order from a legacy encoded progress field. The codec
// is the migration adapter here; the typed item rows become the system of
// record and the description is re-encoded canonically.
func (os *OrderService) Import(ctx context.Context, number, reference, companyRef, text string) (*models.Order, []models.OrderItem, error) {
	items := progress.Decode(text)

	order := models.Order{
		Number:     number,
		Reference:  reference,
		CompanyRef: companyRef,
	}

	return os.Create(ctx, &order, items)
}

// Get returns the order and its items
func (os *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, []models.OrderItem, error) {
	order, err := os.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	items, err := os.repo.GetOrderItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// AdvanceItemStage moves one item to target stage. When the move completes
// the last open item, the order is handed to status processing for manual
// confirmation, not auto-completed.
func (os *OrderService) AdvanceItemStage(ctx context.Context, orderID, itemID uuid.UUID, target string, override bool) (models.OrderItem, error) {
	order, items, err := os.Get(ctx, orderID)
	if err != nil {
		return models.OrderItem{}, err
	}

	idx := -1
	for i := range items {
		if items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.OrderItem{}, models.ErrDataNotFound
	}

	before := itemSnapshot(items[idx])

	if err := lifecycle.AdvanceItemStage(&items[idx], target, override); err != nil {
		return models.OrderItem{}, err
	}

	if err := os.repo.UpdateItemProgress(ctx, items[idx], progress.Encode(items)); err != nil {
		return models.OrderItem{}, err
	}

	os.pub.PublishRaw(models.RawChange{
		Table:  models.TableOrderItems,
		Op:     models.OpUpdate,
		Before: before,
		After:  itemSnapshot(items[idx]),
	})

	if err := os.handOffIfComplete(ctx, order, items); err != nil {
		logger.Log.Error("order hand-off to processing failed",
			zap.String("order", order.Number), zap.Error(err))
	}

	return items[idx], nil
}

// SetDelivered updates an item's delivered count, rejecting counts above
// the quantity
func (os *OrderService) SetDelivered(ctx context.Context, orderID, itemID uuid.UUID, delivered int) (models.OrderItem, error) {
	order, items, err := os.Get(ctx, orderID)
	if err != nil {
		return models.OrderItem{}, err
	}

	idx := -1
	for i := range items {
		if items[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.OrderItem{}, models.ErrDataNotFound
	}

	before := itemSnapshot(items[idx])

	if err := lifecycle.SetDelivered(&items[idx], delivered); err != nil {
		return models.OrderItem{}, err
	}

	if err := os.repo.UpdateItemProgress(ctx, items[idx], progress.Encode(items)); err != nil {
		return models.OrderItem{}, err
	}

	os.pub.PublishRaw(models.RawChange{
		Table:  models.TableOrderItems,
		Op:     models.OpUpdate,
		Before: before,
		After:  itemSnapshot(items[idx]),
	})

	if err := os.handOffIfComplete(ctx, order, items); err != nil {
		logger.Log.Error("order hand-off to processing failed",
			zap.String("order", order.Number), zap.Error(err))
	}

	return items[idx], nil
}

// handOffIfComplete moves the order to processing once every item is
// complete. Intentionally not completed: the completed status needs an
// explicit admin confirmation via CompleteOrder.
func (os *OrderService) handOffIfComplete(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if !lifecycle.AllComplete(items) {
		return nil
	}
	if order.Status == models.OrderStatusProcessing || order.Status == models.OrderStatusCompleted {
		return nil
	}

	before := orderSnapshot(*order)
	if err := lifecycle.AdvanceOrderStatus(order, models.OrderStatusProcessing, true); err != nil {
		return err
	}
	if err := os.repo.UpdateOrderStatus(ctx, *order); err != nil {
		return err
	}

	os.pub.PublishRaw(models.RawChange{
		Table:  models.TableOrders,
		Op:     models.OpUpdate,
		Before: before,
		After:  orderSnapshot(*order),
	})
	return nil
}

// CompleteOrder marks the order completed after the admin confirmation.
// Fails the precondition, with no mutation, unless every item is complete.
func (os *OrderService) CompleteOrder(ctx context.Context, id uuid.UUID) (*models.Order, []models.OrderItem, error) {
	order, items, err := os.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	before := orderSnapshot(*order)

	if err := lifecycle.CompleteOrder(order, items); err != nil {
		return nil, nil, err
	}

	if err := os.repo.UpdateOrderStatus(ctx, *order); err != nil {
		return nil, nil, err
	}

	os.pub.PublishRaw(models.RawChange{
		Table:  models.TableOrders,
		Op:     models.OpUpdate,
		Before: before,
		After:  orderSnapshot(*order),
	})

	return order, items, nil
}

// Delete removes the order unconditionally. Items and purchase-order links
// cascade in the store; the cached order snapshot is evicted here.
func (os *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := os.repo.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	if err := os.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}

	if err := os.cache.Delete(ctx, viewcache.OrderKey(id)); err != nil {
		logger.Log.Warn("cache eviction failed", zap.String("order", order.Number), zap.Error(err))
	}

	os.pub.PublishRaw(models.RawChange{
		Table:  models.TableOrders,
		Op:     models.OpDelete,
		Before: orderSnapshot(*order),
	})

	return nil
}

// AddPurchaseOrder links a purchase order number to an order
func (os *OrderService) AddPurchaseOrder(ctx context.Context, orderID uuid.UUID, poNumber string) error {
	if _, err := os.repo.GetOrder(ctx, orderID); err != nil {
		return err
	}

	link := models.PurchaseOrderLink{
		ID:        uuid.New(),
		OrderID:   orderID,
		PONumber:  poNumber,
		CreatedAt: time.Now(),
	}

	if err := os.repo.AddPurchaseOrder(ctx, link); err != nil {
		return err
	}

	os.pub.PublishRaw(models.RawChange{
		Table: models.TablePurchaseOrders,
		Op:    models.OpInsert,
		After: map[string]any{
			"id":        link.ID,
			"order_id":  link.OrderID,
			"po_number": link.PONumber,
		},
	})

	return nil
}

func orderSnapshot(o models.Order) map[string]any {
	return map[string]any{
		"id":          o.ID,
		"number":      o.Number,
		"reference":   o.Reference,
		"status":      o.Status,
		"urgency":     o.Urgency,
		"description": o.Description,
	}
}

func itemSnapshot(it models.OrderItem) map[string]any {
	return map[string]any{
		"id":             it.ID,
		"order_id":       it.OrderID,
		"name":           it.Name,
		"code":           it.Code,
		"quantity":       it.Quantity,
		"delivered":      it.Delivered,
		"stock_status":   it.StockStatus,
		"progress_stage": it.Stage,
	}
}
