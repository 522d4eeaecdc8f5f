package history

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
)

// Repository manages persistence for order history events. There is no
// update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.OrderHistoryEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistoryEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.OrderHistoryEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.OrderHistoryEvent, error) {
	var events []models.OrderHistoryEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
