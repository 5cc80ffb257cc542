package progress

import (
	"testing"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []models.OrderItem
	}{
		{
			name: "empty_input_decodes_to_empty_list",
			text: "",
			want: []models.OrderItem{},
		},
		{
			name: "blank_lines_are_skipped",
			text: "\n   \n\n",
			want: []models.OrderItem{},
		},
		{
			name: "full_annotations",
			text: "Bolt (Qty: 10) [Delivered: 4] [Stock: ordered]",
			want: []models.OrderItem{
				{Name: "Bolt", Quantity: 10, Delivered: 4, StockStatus: "ordered", Stage: models.StageAwaitingStock},
			},
		},
		{
			name: "legacy_line_without_annotations",
			text: "Hex nut M8 (Qty: 200)",
			want: []models.OrderItem{
				{Name: "Hex nut M8", Quantity: 200, StockStatus: models.StockAwaiting, Stage: models.StageAwaitingStock},
			},
		},
		{
			name: "annotations_in_any_order",
			text: "Flange (Qty: 2) [Status: completed] [Delivered: 2] [Stock: in-stock]",
			want: []models.OrderItem{
				{Name: "Flange", Quantity: 2, Delivered: 2, StockStatus: models.StockInStock, Stage: models.StageCompleted},
			},
		},
		{
			name: "in_stock_without_completion_derives_in_stock_stage",
			text: "Gasket (Qty: 5) [Stock: in-stock]",
			want: []models.OrderItem{
				{Name: "Gasket", Quantity: 5, StockStatus: models.StockInStock, Stage: models.StageInStock},
			},
		},
		{
			name: "unparsable_line_is_preserved_as_single_item",
			text: "misc fasteners, see email",
			want: []models.OrderItem{
				{Name: "misc fasteners, see email", Quantity: 1, StockStatus: models.StockAwaiting, Stage: models.StageAwaitingStock},
			},
		},
		{
			name: "delivered_is_clamped_to_quantity",
			text: "Washer (Qty: 3) [Delivered: 9]",
			want: []models.OrderItem{
				{Name: "Washer", Quantity: 3, Delivered: 3, StockStatus: models.StockAwaiting, Stage: models.StageAwaitingStock},
			},
		},
		{
			name: "multiple_lines_mixed_quality",
			text: "Bolt (Qty: 10) [Delivered: 4] [Stock: ordered]\nleftover note\nFlange (Qty: 1) [Stock: in-stock] [Status: completed]",
			want: []models.OrderItem{
				{Name: "Bolt", Quantity: 10, Delivered: 4, StockStatus: "ordered", Stage: models.StageAwaitingStock},
				{Name: "leftover note", Quantity: 1, StockStatus: models.StockAwaiting, Stage: models.StageAwaitingStock},
				{Name: "Flange", Quantity: 1, StockStatus: models.StockInStock, Stage: models.StageCompleted},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	items := []models.OrderItem{
		{Name: "Bolt", Quantity: 10, Delivered: 4, StockStatus: "ordered", Stage: models.StageAwaitingStock},
		{Name: "Gasket", Quantity: 5, StockStatus: models.StockInStock, Stage: models.StageInStock},
		{Name: "Flange", Quantity: 2, Delivered: 2, StockStatus: models.StockInStock, Stage: models.StageCompleted},
		{Name: "Pin", Quantity: 1, Stage: models.StageAwaitingStock},
	}

	got := Encode(items)
	want := "Bolt (Qty: 10) [Delivered: 4] [Stock: ordered]\n" +
		"Gasket (Qty: 5) [Stock: in-stock]\n" +
		"Flange (Qty: 2) [Delivered: 2] [Stock: in-stock] [Status: completed]\n" +
		"Pin (Qty: 1) [Stock: awaiting]"

	assert.Equal(t, want, got)
}

func TestRoundTrip(t *testing.T) {
	items := []models.OrderItem{
		{Name: "Bolt", Quantity: 10, Delivered: 4, StockStatus: "ordered", Stage: models.StageAwaitingStock},
		{Name: "Gasket", Quantity: 5, StockStatus: models.StockInStock, Stage: models.StageInStock},
		{Name: "Flange", Quantity: 2, Delivered: 2, StockStatus: models.StockInStock, Stage: models.StageCompleted},
		{Name: "Hex nut M8", Quantity: 200, StockStatus: models.StockAwaiting, Stage: models.StageAwaitingStock},
	}

	got := Decode(Encode(items))
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
