package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// HistoryItemDetail names one affected item in an audit entry.
type HistoryItemDetail struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Variant  string `json:"variant,omitempty"`
}

// OrderHistoryEvent is an append-only audit row. It is never updated or deleted.
type OrderHistoryEvent struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null"`
	Type           enums.HistoryEventType `gorm:"column:type;not null"`
	SnapshotStatus enums.OrderStatus      `gorm:"column:snapshot_status;not null"`
	Actor          enums.HistoryActor     `gorm:"column:actor;not null"`
	Reason         string                 `gorm:"column:reason;not null"`
	Details        []HistoryItemDetail    `gorm:"column:details;type:jsonb;serializer:json"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (OrderHistoryEvent) TableName() string {
	return "order_history_events"
}

func (e *OrderHistoryEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
