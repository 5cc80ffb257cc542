package service

import (
	"context"
	"testing"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReconcileService(repo *MockOrderRepo, syncLog *MockSyncLog, pub *MockPublisher) *ReconcileService {
	return NewReconcileService(repo, syncLog, pub, models.StageReadyForDelivery, 5*time.Second)
}

func seedOrder(repo *MockOrderRepo, number, reference string, items ...models.OrderItem) uuid.UUID {
	orderID := uuid.New()
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
	}
	repo.Add(models.Order{
		ID:        orderID,
		Number:    number,
		Reference: reference,
		Status:    models.OrderStatusInProgress,
	}, items)
	return orderID
}

func TestReconcileService_MatchedEventAdvancesItem(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	orderID := seedOrder(repo, "ORD-1", "SO-100",
		models.OrderItem{Name: "Bolt", Code: "SKU1", Quantity: 5, Stage: models.StagePacking})

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeInvoice,
		SKU:        "SKU1",
		Quantity:   5,
		References: []string{"SO-100"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, 1, result.ItemsUpdated)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "ORD-1", result.Outcomes[0].Number)

	items, _ := repo.GetOrderItems(context.Background(), orderID)
	assert.Equal(t, models.StageReadyForDelivery, items[0].Stage)
	assert.False(t, items[0].UpdatedAt.IsZero())

	entry, ok := syncLog.Last()
	require.True(t, ok)
	assert.Equal(t, models.SyncStatusOK, entry.Status)
	assert.Equal(t, 1, entry.ItemsSynced)

	// item update flows into the dispatch pipeline
	raws := pub.Published()
	require.Len(t, raws, 1)
	assert.Equal(t, models.TableOrderItems, raws[0].Table)
	assert.Equal(t, "ready-for-delivery", raws[0].After["progress_stage"])
}

func TestReconcileService_ReplayIsIdempotent(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	orderID := seedOrder(repo, "ORD-1", "SO-100",
		models.OrderItem{Name: "Bolt", Code: "SKU1", Quantity: 5, Stage: models.StagePacking})

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeInvoice,
		SKU:        "SKU1",
		Quantity:   5,
		References: []string{"SO-100"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err)
	require.Equal(t, 1, result.ItemsUpdated)

	// replay: no regression, reported update count is zero
	result, err = svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 0, result.ItemsUpdated)

	items, _ := repo.GetOrderItems(context.Background(), orderID)
	assert.Equal(t, models.StageReadyForDelivery, items[0].Stage)

	entry, ok := syncLog.Last()
	require.True(t, ok)
	assert.Equal(t, models.SyncStatusWarning, entry.Status)
}

func TestReconcileService_QuantityMismatchSkipsItem(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	orderID := seedOrder(repo, "ORD-1", "SO-100",
		models.OrderItem{Name: "Bolt", Code: "SKU1", Quantity: 5, Stage: models.StagePacking})

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeInvoice,
		SKU:        "SKU1",
		Quantity:   3, // partial shipment, deliberately not applied
		References: []string{"SO-100"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err, "quantity mismatch is still acknowledged as success")

	assert.True(t, result.Matched)
	assert.Equal(t, 0, result.ItemsUpdated)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, 1, result.Outcomes[0].ItemsSkipped)

	items, _ := repo.GetOrderItems(context.Background(), orderID)
	assert.Equal(t, models.StagePacking, items[0].Stage, "item must stay untouched")
	assert.Empty(t, pub.Published())
}

func TestReconcileService_NoMatchIsSuccessWithWarning(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeSalesOrder,
		SKU:        "SKU1",
		Quantity:   5,
		References: []string{"SO-404"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err, "missing order must not error, the sender would retry forever")

	assert.False(t, result.Matched)
	assert.Equal(t, 0, result.ItemsUpdated)

	entry, ok := syncLog.Last()
	require.True(t, ok)
	assert.Equal(t, models.SyncStatusWarning, entry.Status)
	assert.Equal(t, "no matching order", entry.ErrorMessage)
}

func TestReconcileService_SKUMatchIsCaseInsensitive(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	seedOrder(repo, "ORD-1", "SO-100",
		models.OrderItem{Name: "Bolt", Code: "sku1", Quantity: 5, Stage: models.StagePacking})

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeInvoice,
		SKU:        "SKU1",
		Quantity:   5,
		References: []string{"SO-100"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsUpdated)
}

func TestReconcileService_ItemsWithoutCodeNeverMatch(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	seedOrder(repo, "ORD-1", "SO-100",
		models.OrderItem{Name: "misc", Code: "", Quantity: 5, Stage: models.StagePacking})

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeInvoice,
		SKU:        "",
		Quantity:   5,
		References: []string{"SO-100"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsUpdated)
}

func TestReconcileService_FallsBackToOrderNumber(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	// order has no reference set, only its own number
	seedOrder(repo, "ORD-77", "",
		models.OrderItem{Name: "Bolt", Code: "SKU1", Quantity: 5, Stage: models.StagePacking})

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeSalesOrder,
		SKU:        "SKU1",
		Quantity:   5,
		References: []string{"ORD-77"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 1, result.ItemsUpdated)
}

func TestReconcileService_PersistFailureOnOneOrderDoesNotAbortOthers(t *testing.T) {
	repo := NewMockOrderRepo()
	syncLog := &MockSyncLog{}
	pub := &MockPublisher{}
	svc := newReconcileService(repo, syncLog, pub)

	failingID := seedOrder(repo, "ORD-1", "SO-100",
		models.OrderItem{Name: "Bolt", Code: "SKU1", Quantity: 5, Stage: models.StagePacking})
	seedOrder(repo, "ORD-2", "SO-100",
		models.OrderItem{Name: "Bolt", Code: "SKU1", Quantity: 5, Stage: models.StagePacking})

	repo.UpdateItemProgressFunc = func(ctx context.Context, item models.OrderItem, description string) error {
		if item.OrderID == failingID {
			return models.ErrInternalError
		}
		return repo.storeItemProgress(item, description)
	}

	evt := models.ExternalEvent{
		Kind:       models.SyncTypeInvoice,
		SKU:        "SKU1",
		Quantity:   5,
		References: []string{"SO-100"},
	}

	result, err := svc.ApplyEvent(context.Background(), evt)
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, 1, result.ItemsUpdated, "the healthy order must still be updated")

	var failedOutcome, okOutcome *models.OrderOutcome
	for i := range result.Outcomes {
		if result.Outcomes[i].Error != "" {
			failedOutcome = &result.Outcomes[i]
		} else {
			okOutcome = &result.Outcomes[i]
		}
	}
	require.NotNil(t, failedOutcome)
	require.NotNil(t, okOutcome)
	assert.Equal(t, 1, okOutcome.ItemsUpdated)
}
