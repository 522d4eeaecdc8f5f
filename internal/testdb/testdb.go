// Package testdb opens isolated in-memory sqlite databases carrying the order
// schema, for repository and service tests.
package testdb

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

var schema = []string{
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		customer_email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending_payment',
		currency TEXT NOT NULL,
		total_minor INTEGER NOT NULL,
		return_reason TEXT,
		rejection_reason TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		variant_id TEXT,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		quantity_returned INTEGER NOT NULL DEFAULT 0 CHECK (quantity_returned >= 0 AND quantity_returned <= quantity),
		quantity_return_requested INTEGER NOT NULL DEFAULT 0 CHECK (quantity_return_requested >= 0 AND quantity_returned + quantity_return_requested <= quantity),
		price_minor_snapshot INTEGER NOT NULL,
		name_snapshot TEXT NOT NULL,
		size_snapshot TEXT,
		color_snapshot TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE order_history_events (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		type TEXT NOT NULL,
		snapshot_status TEXT NOT NULL,
		actor TEXT NOT NULL,
		reason TEXT NOT NULL,
		details TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE product_variants (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL,
		size TEXT,
		color TEXT,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE inventory_movements (
		id TEXT PRIMARY KEY,
		variant_id TEXT NOT NULL,
		order_id TEXT,
		delta INTEGER NOT NULL CHECK (delta <> 0),
		reason TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes access
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

// ItemSpec describes an order line for SeedOrder.
type ItemSpec struct {
	Name            string
	Quantity        int
	Returned        int
	ReturnRequested int
	PriceMinor      int64
	Size            string
	Color           string
	VariantID       *uuid.UUID
}

// SeedVariant inserts a product variant holding stock units.
func SeedVariant(t *testing.T, conn *gorm.DB, sku string, stock int) uuid.UUID {
	t.Helper()
	variant := models.ProductVariant{ID: uuid.New(), SKU: sku, Stock: stock}
	if err := conn.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant.ID
}

// SeedOrder inserts an order in status with the given items.
func SeedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus, userID *uuid.UUID, items ...ItemSpec) models.Order {
	t.Helper()
	order := models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		CustomerEmail: "cliente@example.com",
		Status:        status,
		Currency:      enums.CurrencyEUR,
		Version:       1,
	}
	for _, spec := range items {
		item := models.OrderItem{
			ID:                      uuid.New(),
			OrderID:                 order.ID,
			VariantID:               spec.VariantID,
			Quantity:                spec.Quantity,
			QuantityReturned:        spec.Returned,
			QuantityReturnRequested: spec.ReturnRequested,
			PriceMinorSnapshot:      spec.PriceMinor,
			NameSnapshot:            spec.Name,
		}
		if spec.Size != "" {
			size := spec.Size
			item.SizeSnapshot = &size
		}
		if spec.Color != "" {
			color := spec.Color
			item.ColorSnapshot = &color
		}
		order.TotalMinor += spec.PriceMinor * int64(spec.Quantity)
		order.Items = append(order.Items, item)
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

// Stock reads the current stock of a variant.
func Stock(t *testing.T, conn *gorm.DB, variantID uuid.UUID) int {
	t.Helper()
	var variant models.ProductVariant
	if err := conn.Where("id = ?", variantID).Take(&variant).Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	return variant.Stock
}
