package orders

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/inventory"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/outbox"
)

const minReasonLength = 3

// itemPlan is the validated outcome of a reconciliation step. Items holds
// updated copies in the order's item order; nothing is applied until the
// whole plan has been built.
type itemPlan struct {
	items     []models.OrderItem
	changed   []int
	restock   []inventory.Adjustment
	details   []models.HistoryItemDetail
	remainder []models.HistoryItemDetail
	touched   []outbox.ItemQuantity
	units     int
	refund    int64
}

func newItemPlan(order *models.Order) *itemPlan {
	items := make([]models.OrderItem, len(order.Items))
	copy(items, order.Items)
	return &itemPlan{items: items}
}

// settledStatus is RETURNED once every unit of every item is back, else PAID.
func (p *itemPlan) settledStatus() enums.OrderStatus {
	for _, item := range p.items {
		if !item.FullyReturned() {
			return enums.OrderStatusPaid
		}
	}
	return enums.OrderStatusReturned
}

func (p *itemPlan) record(idx int, before models.OrderItem, qty int) {
	item := p.items[idx]
	if item.QuantityReturned != before.QuantityReturned || item.QuantityReturnRequested != before.QuantityReturnRequested {
		p.changed = append(p.changed, idx)
	}
	if qty <= 0 {
		return
	}
	p.details = append(p.details, itemDetail(item, qty))
	p.touched = append(p.touched, outbox.ItemQuantity{ItemID: item.ID, VariantID: item.VariantID, Quantity: qty})
	p.units += qty
}

func (p *itemPlan) restockItem(item models.OrderItem, qty int) {
	if item.VariantID == nil || qty <= 0 {
		return
	}
	p.restock = append(p.restock, inventory.Adjustment{VariantID: *item.VariantID, Delta: qty})
}

// planReturnRequest validates every line against what is still requestable
// and only then raises the requested counters.
func planReturnRequest(order *models.Order, lines []ItemQuantity) (*itemPlan, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	index := indexItems(order.Items)
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, errExceeds(line.ItemID, line.Qty, availableFor(order.Items, index, line.ItemID, requestableCeiling))
		}
	}
	merged, err := mergeLines(order.Items, index, lines, requestableCeiling)
	if err != nil {
		return nil, err
	}

	plan := newItemPlan(order)
	for _, line := range merged {
		idx := index[line.ItemID]
		before := plan.items[idx]
		plan.items[idx].QuantityReturnRequested += line.Qty
		plan.record(idx, before, line.Qty)
	}
	return plan, nil
}

// planReturnResolution accepts up to the open request of each item, or up to
// the unreturned remainder when nothing was requested. Every open request is
// closed afterwards.
func planReturnResolution(order *models.Order, lines []ItemQuantity) (*itemPlan, error) {
	index := indexItems(order.Items)
	for _, line := range lines {
		if line.Qty < 0 {
			return nil, errExceeds(line.ItemID, line.Qty, availableFor(order.Items, index, line.ItemID, acceptCeiling))
		}
	}
	merged, err := mergeLines(order.Items, index, lines, acceptCeiling)
	if err != nil {
		return nil, err
	}
	accepted := make(map[uuid.UUID]int, len(merged))
	for _, line := range merged {
		accepted[line.ItemID] = line.Qty
	}

	plan := newItemPlan(order)
	for idx := range plan.items {
		before := plan.items[idx]
		qty := accepted[before.ID]
		plan.items[idx].QuantityReturned += qty
		plan.items[idx].QuantityReturnRequested = 0
		if left := before.QuantityReturnRequested - qty; left > 0 {
			plan.remainder = append(plan.remainder, itemDetail(before, left))
		}
		plan.record(idx, before, qty)
		plan.restockItem(before, qty)
		plan.refund += int64(qty) * before.PriceMinorSnapshot
	}
	return plan, nil
}

// planRequestRejection clears every open request without touching stock.
func planRequestRejection(order *models.Order) *itemPlan {
	plan := newItemPlan(order)
	for idx := range plan.items {
		before := plan.items[idx]
		plan.items[idx].QuantityReturnRequested = 0
		plan.record(idx, before, before.QuantityReturnRequested)
	}
	return plan
}

// planUnwind marks the unreturned remainder of every item as returned and
// puts it back in stock. Used by cancellation and expiry.
func planUnwind(order *models.Order) *itemPlan {
	plan := newItemPlan(order)
	for idx := range plan.items {
		before := plan.items[idx]
		remaining := before.Remaining()
		plan.items[idx].QuantityReturned = before.Quantity
		plan.items[idx].QuantityReturnRequested = 0
		plan.record(idx, before, remaining)
		plan.restockItem(before, remaining)
	}
	return plan
}

func requestableCeiling(item models.OrderItem) int {
	return item.Requestable()
}

func acceptCeiling(item models.OrderItem) int {
	if item.QuantityReturnRequested > 0 {
		return item.QuantityReturnRequested
	}
	return item.Remaining()
}

func availableFor(items []models.OrderItem, index map[uuid.UUID]int, itemID uuid.UUID, ceiling func(models.OrderItem) int) int {
	idx, ok := index[itemID]
	if !ok {
		return 0
	}
	return ceiling(items[idx])
}

func indexItems(items []models.OrderItem) map[uuid.UUID]int {
	index := make(map[uuid.UUID]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}
	return index
}

// mergeLines sums repeated item ids, keeping first-seen order. Lines must
// already be non-negative. Each running total is held to the item's ceiling
// as it grows, so a sum can never wrap around.
func mergeLines(items []models.OrderItem, index map[uuid.UUID]int, lines []ItemQuantity, ceiling func(models.OrderItem) int) ([]ItemQuantity, error) {
	out := make([]ItemQuantity, 0, len(lines))
	seen := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
		}
		idx, ok := index[line.ItemID]
		if !ok {
			return nil, errExceeds(line.ItemID, line.Qty, 0)
		}
		limit := ceiling(items[idx])
		pos, dup := seen[line.ItemID]
		total := 0
		if dup {
			total = out[pos].Qty
		}
		if line.Qty > limit-total {
			return nil, errExceeds(line.ItemID, saturatingAdd(total, line.Qty), limit)
		}
		if dup {
			out[pos].Qty += line.Qty
			continue
		}
		seen[line.ItemID] = len(out)
		out = append(out, line)
	}
	return out, nil
}

func saturatingAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

func itemDetail(item models.OrderItem, qty int) models.HistoryItemDetail {
	return models.HistoryItemDetail{
		Name:     item.NameSnapshot,
		Quantity: qty,
		Variant:  item.VariantLabel(),
	}
}

// validateReason trims value and requires minReasonLength characters.
func validateReason(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if utf8.RuneCountInString(trimmed) < minReasonLength {
		return "", errMissingReason(field)
	}
	return trimmed, nil
}

func formatMoney(minor int64, currency enums.Currency) outbox.Money {
	exp := currency.Exponent()
	return outbox.Money{
		Minor:    minor,
		Amount:   decimal.New(minor, -exp).StringFixed(exp),
		Currency: currency,
	}
}
