// Package progress encodes and decodes per-item delivery state into the
// free-text description field carried by legacy order records. The typed
// order_items table is the system of record; this codec serves the legacy
// import path and keeps the denormalized description mirror in sync.
package progress

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/NateWesth/aleph-order-tracker/internal/models"
)

// One item per line:
//
//	<name> (Qty: <n>) [Delivered: <d>] [Stock: <status>] [Status: completed]
//
// Bracket annotations are independent and may appear in any order. Legacy
// lines carry only a subset of them. The format does not carry the fine
// progress stage; decode derives a coarse stage from stock and completion.
var (
	qtyRe       = regexp.MustCompile(`^(.*?)\s*\(Qty:\s*(\d+)\)`)
	deliveredRe = regexp.MustCompile(`\[Delivered:\s*(\d+)\]`)
	stockRe     = regexp.MustCompile(`\[Stock:\s*([^\]]+)\]`)
	completedRe = regexp.MustCompile(`\[Status:\s*completed\]`)
)

// Decode parses encoded progress text into order items. Empty input yields
// an empty list. A non-empty line matching no pattern is preserved as a
// quantity-1 item, never dropped: the field is also hand-edited.
func Decode(text string) []models.OrderItem {
	items := []models.OrderItem{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, decodeLine(line))
	}

	return items
}

func decodeLine(line string) models.OrderItem {
	m := qtyRe.FindStringSubmatch(line)
	if m == nil {
		// unparsable line, keep it as a bare item
		return models.OrderItem{
			Name:        line,
			Quantity:    1,
			StockStatus: models.StockAwaiting,
			Stage:       models.StageAwaitingStock,
		}
	}

	item := models.OrderItem{
		Name:        strings.TrimSpace(m[1]),
		StockStatus: models.StockAwaiting,
	}

	qty, err := strconv.Atoi(m[2])
	if err != nil || qty < 1 {
		qty = 1
	}
	item.Quantity = qty

	if dm := deliveredRe.FindStringSubmatch(line); dm != nil {
		if d, err := strconv.Atoi(dm[1]); err == nil {
			if d > item.Quantity {
				d = item.Quantity
			}
			item.Delivered = d
		}
	}

	if sm := stockRe.FindStringSubmatch(line); sm != nil {
		item.StockStatus = strings.TrimSpace(sm[1])
	}

	switch {
	case completedRe.MatchString(line):
		item.Stage = models.StageCompleted
	case item.StockStatus == models.StockInStock:
		item.Stage = models.StageInStock
	default:
		item.Stage = models.StageAwaitingStock
	}

	return item
}

// Encode is the inverse of Decode. It emits [Delivered: n] only when n > 0,
// always emits [Stock: status] and emits [Status: completed] only for items
// at the terminal stage.
func Encode(items []models.OrderItem) string {
	lines := make([]string, 0, len(items))

	for _, item := range items {
		var b strings.Builder
		fmt.Fprintf(&b, "%s (Qty: %d)", item.Name, item.Quantity)

		if item.Delivered > 0 {
			fmt.Fprintf(&b, " [Delivered: %d]", item.Delivered)
		}

		stock := item.StockStatus
		if stock == "" {
			stock = models.StockAwaiting
		}
		fmt.Fprintf(&b, " [Stock: %s]", stock)

		if item.Stage == models.StageCompleted {
			b.WriteString(" [Status: completed]")
		}

		lines = append(lines, b.String())
	}

	return strings.Join(lines, "\n")
}
