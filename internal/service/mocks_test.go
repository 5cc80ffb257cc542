package service

import (
	"context"
	"strings"
	"sync"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/google/uuid"
)

// MockOrderRepo is a map-backed implementation of OrderRepository and
// ReconcileRepository for testing
type MockOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*models.Order
	items  map[uuid.UUID][]models.OrderItem

	UpdateItemProgressFunc func(ctx context.Context, item models.OrderItem, description string) error
	UpdateOrderStatusFunc  func(ctx context.Context, order models.Order) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*models.Order),
		items:  make(map[uuid.UUID][]models.OrderItem),
	}
}

func (m *MockOrderRepo) Add(order models.Order, items []models.OrderItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := order
	m.orders[order.ID] = &o
	m.items[order.ID] = append([]models.OrderItem(nil), items...)
}

func (m *MockOrderRepo) CreateOrder(_ context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.Number == order.Number {
			return nil, models.ErrConflictData
		}
	}
	o := *order
	m.orders[order.ID] = &o
	m.items[order.ID] = append([]models.OrderItem(nil), items...)
	return order, nil
}

func (m *MockOrderRepo) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepo) GetOrderItems(_ context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.OrderItem(nil), m.items[orderID]...), nil
}

func (m *MockOrderRepo) FindOrderByNumber(_ context.Context, num string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.Number == num {
			cp := *o
			return &cp, nil
		}
	}
	return nil, models.ErrDataNotFound
}

func (m *MockOrderRepo) FindOrdersByReferences(_ context.Context, refs []string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.Order
	for _, o := range m.orders {
		for _, ref := range refs {
			if o.Reference != "" && strings.EqualFold(o.Reference, ref) {
				result = append(result, *o)
				break
			}
		}
	}
	return result, nil
}

func (m *MockOrderRepo) ListOrdersByStatus(_ context.Context, statuses []string) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.Order
	for _, o := range m.orders {
		for _, s := range statuses {
			if o.Status == s {
				result = append(result, *o)
				break
			}
		}
	}
	return result, nil
}

func (m *MockOrderRepo) UpdateOrderStatus(ctx context.Context, order models.Order) error {
	if m.UpdateOrderStatusFunc != nil {
		return m.UpdateOrderStatusFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[order.ID]
	if !ok {
		return models.ErrDataNotFound
	}
	o.Status = order.Status
	o.CompletedAt = order.CompletedAt
	return nil
}

func (m *MockOrderRepo) UpdateItemProgress(ctx context.Context, item models.OrderItem, description string) error {
	if m.UpdateItemProgressFunc != nil {
		return m.UpdateItemProgressFunc(ctx, item, description)
	}
	return m.storeItemProgress(item, description)
}

func (m *MockOrderRepo) storeItemProgress(item models.OrderItem, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.items[item.OrderID]
	if !ok {
		return models.ErrDataNotFound
	}
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			if o, ok := m.orders[item.OrderID]; ok {
				o.Description = description
			}
			return nil
		}
	}
	return models.ErrDataNotFound
}

func (m *MockOrderRepo) DeleteOrder(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return models.ErrDataNotFound
	}
	delete(m.orders, id)
	delete(m.items, id)
	return nil
}

func (m *MockOrderRepo) AddPurchaseOrder(_ context.Context, link models.PurchaseOrderLink) error {
	return nil
}

// MockPublisher records published raw changes
type MockPublisher struct {
	mu     sync.Mutex
	Raw    []models.RawChange
	PubsFn func(raw models.RawChange)
}

func (m *MockPublisher) PublishRaw(raw models.RawChange) {
	m.mu.Lock()
	m.Raw = append(m.Raw, raw)
	m.mu.Unlock()
	if m.PubsFn != nil {
		m.PubsFn(raw)
	}
}

func (m *MockPublisher) Published() []models.RawChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RawChange(nil), m.Raw...)
}

// MockSyncLog records sync entries
type MockSyncLog struct {
	mu      sync.Mutex
	Entries []models.SyncEntry
}

func (m *MockSyncLog) InsertEntry(_ context.Context, entry models.SyncEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockSyncLog) Last() (models.SyncEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return models.SyncEntry{}, false
	}
	return m.Entries[len(m.Entries)-1], true
}
