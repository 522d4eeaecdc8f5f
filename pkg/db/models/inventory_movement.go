package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// InventoryMovement is an append-only record of a stock change.
type InventoryMovement struct {
	ID        uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	VariantID uuid.UUID                     `gorm:"column:variant_id;type:uuid;not null"`
	OrderID   *uuid.UUID                    `gorm:"column:order_id;type:uuid"`
	Delta     int                           `gorm:"column:delta;not null"`
	Reason    enums.InventoryMovementReason `gorm:"column:reason;not null"`
	CreatedAt time.Time                     `gorm:"column:created_at;autoCreateTime"`
}

func (InventoryMovement) TableName() string {
	return "inventory_movements"
}

func (m *InventoryMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
