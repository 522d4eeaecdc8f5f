package outbox

import (
	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// ItemQuantity is one item touched by an order transition.
type ItemQuantity struct {
	ItemID    uuid.UUID  `json:"item_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// StockReturn is a stock increment applied to a variant.
type StockReturn struct {
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// Money is an amount in minor units plus its decimal rendering.
type Money struct {
	Minor    int64          `json:"minor"`
	Amount   string         `json:"amount"`
	Currency enums.Currency `json:"currency"`
}

// OrderTransitionEvent is the data payload of every order lifecycle event.
type OrderTransitionEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Reason     string            `json:"reason,omitempty"`
	Items      []ItemQuantity    `json:"items,omitempty"`
	Refund     *Money            `json:"refund,omitempty"`
	Restocked  []StockReturn     `json:"restocked,omitempty"`
}
