package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderItem is one purchased variant line. The *Snapshot columns are frozen at
// checkout and never rewritten.
type OrderItem struct {
	ID                      uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                 uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	VariantID               *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Quantity                int        `gorm:"column:quantity;not null"`
	QuantityReturned        int        `gorm:"column:quantity_returned;not null;default:0"`
	QuantityReturnRequested int        `gorm:"column:quantity_return_requested;not null;default:0"`
	PriceMinorSnapshot      int64      `gorm:"column:price_minor_snapshot;not null"`
	NameSnapshot            string     `gorm:"column:name_snapshot;not null"`
	SizeSnapshot            *string    `gorm:"column:size_snapshot"`
	ColorSnapshot           *string    `gorm:"column:color_snapshot"`
	CreatedAt               time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Remaining is the number of units not yet returned.
func (i OrderItem) Remaining() int {
	return i.Quantity - i.QuantityReturned
}

// Requestable is the number of units a customer may still ask to return.
func (i OrderItem) Requestable() int {
	return i.Quantity - i.QuantityReturned - i.QuantityReturnRequested
}

// FullyReturned reports whether every purchased unit came back.
func (i OrderItem) FullyReturned() bool {
	return i.QuantityReturned == i.Quantity
}

// VariantLabel renders the size/color snapshot, e.g. "M / Negro".
func (i OrderItem) VariantLabel() string {
	parts := make([]string, 0, 2)
	if i.SizeSnapshot != nil && strings.TrimSpace(*i.SizeSnapshot) != "" {
		parts = append(parts, strings.TrimSpace(*i.SizeSnapshot))
	}
	if i.ColorSnapshot != nil && strings.TrimSpace(*i.ColorSnapshot) != "" {
		parts = append(parts, strings.TrimSpace(*i.ColorSnapshot))
	}
	return strings.Join(parts, " / ")
}
