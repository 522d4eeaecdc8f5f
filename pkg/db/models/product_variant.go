package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant owns the stock counter for a sellable SKU.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       string    `gorm:"column:sku;not null"`
	Size      *string   `gorm:"column:size"`
	Color     *string   `gorm:"column:color"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}
