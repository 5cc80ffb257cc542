package events

import (
	"testing"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizer_Normalize(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()

	tests := []struct {
		name     string
		raw      models.RawChange
		wantOK   bool
		wantEvt  models.ChangeEvent
		checkEvt func(t *testing.T, evt models.ChangeEvent)
	}{
		{
			name: "order_insert",
			raw: models.RawChange{
				Table: models.TableOrders,
				Op:    models.OpInsert,
				After: map[string]any{"id": orderID.String(), "status": "pending"},
			},
			wantOK: true,
			checkEvt: func(t *testing.T, evt models.ChangeEvent) {
				assert.Equal(t, models.EntityOrder, evt.Entity)
				assert.Equal(t, models.OpInsert, evt.Op)
				assert.Equal(t, orderID, evt.EntityID)
				assert.Equal(t, orderID, evt.OrderID)
				assert.False(t, evt.StatusChanged)
			},
		},
		{
			name: "order_status_change_is_a_distinct_update_case",
			raw: models.RawChange{
				Table:  models.TableOrders,
				Op:     models.OpUpdate,
				Before: map[string]any{"id": orderID, "status": "pending"},
				After:  map[string]any{"id": orderID, "status": "received"},
			},
			wantOK: true,
			checkEvt: func(t *testing.T, evt models.ChangeEvent) {
				assert.True(t, evt.StatusChanged)
				assert.Equal(t, "pending", evt.OldStatus)
				assert.Equal(t, "received", evt.NewStatus)
			},
		},
		{
			name: "plain_order_update_without_status_change",
			raw: models.RawChange{
				Table:  models.TableOrders,
				Op:     models.OpUpdate,
				Before: map[string]any{"id": orderID, "status": "pending", "urgency": "low"},
				After:  map[string]any{"id": orderID, "status": "pending", "urgency": "high"},
			},
			wantOK: true,
			checkEvt: func(t *testing.T, evt models.ChangeEvent) {
				assert.False(t, evt.StatusChanged)
			},
		},
		{
			name: "item_update_detects_stage_change_and_carries_order_id",
			raw: models.RawChange{
				Table:  models.TableOrderItems,
				Op:     models.OpUpdate,
				Before: map[string]any{"id": itemID, "order_id": orderID, "progress_stage": "packing"},
				After:  map[string]any{"id": itemID, "order_id": orderID, "progress_stage": "ready-for-delivery"},
			},
			wantOK: true,
			checkEvt: func(t *testing.T, evt models.ChangeEvent) {
				assert.Equal(t, models.EntityItem, evt.Entity)
				assert.Equal(t, itemID, evt.EntityID)
				assert.Equal(t, orderID, evt.OrderID)
				assert.True(t, evt.StatusChanged)
				assert.Equal(t, "ready-for-delivery", evt.NewStatus)
			},
		},
		{
			name: "delete_uses_before_snapshot",
			raw: models.RawChange{
				Table:  models.TableOrders,
				Op:     models.OpDelete,
				Before: map[string]any{"id": orderID},
			},
			wantOK: true,
			checkEvt: func(t *testing.T, evt models.ChangeEvent) {
				assert.Equal(t, models.OpDelete, evt.Op)
				assert.Equal(t, orderID, evt.EntityID)
			},
		},
		{
			name: "missing_entity_id_is_dropped",
			raw: models.RawChange{
				Table: models.TableOrders,
				Op:    models.OpUpdate,
				After: map[string]any{"status": "received"},
			},
			wantOK: false,
		},
		{
			name: "unknown_table_is_dropped",
			raw: models.RawChange{
				Table: "users",
				Op:    models.OpInsert,
				After: map[string]any{"id": orderID},
			},
			wantOK: false,
		},
		{
			name: "unknown_operation_is_dropped",
			raw: models.RawChange{
				Table: models.TableOrders,
				Op:    "truncate",
				After: map[string]any{"id": orderID},
			},
			wantOK: false,
		},
		{
			name:   "nil_snapshots_do_not_panic",
			raw:    models.RawChange{Table: models.TableOrderItems, Op: models.OpUpdate},
			wantOK: false,
		},
		{
			name: "malformed_id_degrades_to_drop",
			raw: models.RawChange{
				Table: models.TableOrders,
				Op:    models.OpInsert,
				After: map[string]any{"id": 42},
			},
			wantOK: false,
		},
	}

	n := NewNormalizer(zap.NewNop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, ok := n.Normalize(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			if tt.checkEvt != nil {
				tt.checkEvt(t, evt)
			}
		})
	}
}
