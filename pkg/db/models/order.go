package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// Order is a customer purchase. Once created only Status, the two reason
// columns, Version and the item counters change.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	CustomerEmail   string            `gorm:"column:customer_email;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	Currency        enums.Currency    `gorm:"column:currency;not null"`
	TotalMinor      int64             `gorm:"column:total_minor;not null"`
	ReturnReason    *string           `gorm:"column:return_reason"`
	RejectionReason *string           `gorm:"column:rejection_reason"`
	Version         int               `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

func (Order) TableName() string {
	return "orders"
}
