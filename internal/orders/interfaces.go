package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOwner(ctx context.Context, orderID uuid.UUID) (*Owner, error)
	UpdateOrderState(ctx context.Context, order *models.Order) error
	UpdateItemCounters(ctx context.Context, item *models.OrderItem) error
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

// Owner identifies who placed an order.
type Owner struct {
	UserID *uuid.UUID
	Email  string
}
