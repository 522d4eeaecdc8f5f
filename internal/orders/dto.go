package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// ItemQuantity names a quantity of one order item.
type ItemQuantity struct {
	ItemID uuid.UUID `json:"itemId" validate:"required"`
	Qty    int       `json:"qty" validate:"gte=0,lte=100000"`
}

// RequestReturnInput is a customer's return request.
type RequestReturnInput struct {
	OrderID uuid.UUID
	Reason  string
	Items   []ItemQuantity
}

// ResolveReturnInput is an admin's decision on an open return request.
// Accepted may exceed what was requested for items with no open request.
type ResolveReturnInput struct {
	OrderID       uuid.UUID
	Accepted      []ItemQuantity
	RejectionNote string
}

// OrderView is the read model returned to API callers.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	Status          enums.OrderStatus   `json:"status"`
	Currency        enums.Currency      `json:"currency"`
	TotalMinor      int64               `json:"totalMinor"`
	Total           string              `json:"total"`
	ReturnReason    *string             `json:"returnReason,omitempty"`
	RejectionReason *string             `json:"rejectionReason,omitempty"`
	Items           []OrderItemView     `json:"items"`
	AllowedActions  []enums.OrderAction `json:"allowedActions"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// OrderItemView exposes an item's snapshot and return counters.
type OrderItemView struct {
	ID                      uuid.UUID  `json:"id"`
	VariantID               *uuid.UUID `json:"variantId,omitempty"`
	Name                    string     `json:"name"`
	Variant                 string     `json:"variant,omitempty"`
	PriceMinor              int64      `json:"priceMinor"`
	Quantity                int        `json:"quantity"`
	QuantityReturned        int        `json:"quantityReturned"`
	QuantityReturnRequested int        `json:"quantityReturnRequested"`
	Requestable             int        `json:"requestable"`
}

// HistoryEventView is one audit entry as returned to API callers.
type HistoryEventView struct {
	ID             uuid.UUID                  `json:"id"`
	Type           enums.HistoryEventType     `json:"type"`
	SnapshotStatus enums.OrderStatus          `json:"snapshotStatus"`
	Actor          enums.HistoryActor         `json:"actor"`
	Reason         string                     `json:"reason"`
	Details        []models.HistoryItemDetail `json:"details,omitempty"`
	CreatedAt      time.Time                  `json:"createdAt"`
}

// NewOrderView projects an order for a caller of the given role.
func NewOrderView(order *models.Order, role enums.CallerRole) *OrderView {
	view := &OrderView{
		ID:              order.ID,
		Status:          order.Status,
		Currency:        order.Currency,
		TotalMinor:      order.TotalMinor,
		Total:           formatMoney(order.TotalMinor, order.Currency).Amount,
		ReturnReason:    order.ReturnReason,
		RejectionReason: order.RejectionReason,
		Items:           make([]OrderItemView, 0, len(order.Items)),
		AllowedActions:  AllowedActions(order.Status, role),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ID:                      item.ID,
			VariantID:               item.VariantID,
			Name:                    item.NameSnapshot,
			Variant:                 item.VariantLabel(),
			PriceMinor:              item.PriceMinorSnapshot,
			Quantity:                item.Quantity,
			QuantityReturned:        item.QuantityReturned,
			QuantityReturnRequested: item.QuantityReturnRequested,
			Requestable:             item.Requestable(),
		})
	}
	return view
}

func newHistoryViews(events []models.OrderHistoryEvent) []HistoryEventView {
	out := make([]HistoryEventView, 0, len(events))
	for _, e := range events {
		out = append(out, HistoryEventView{
			ID:             e.ID,
			Type:           e.Type,
			SnapshotStatus: e.SnapshotStatus,
			Actor:          e.Actor,
			Reason:         e.Reason,
			Details:        e.Details,
			CreatedAt:      e.CreatedAt,
		})
	}
	return out
}
