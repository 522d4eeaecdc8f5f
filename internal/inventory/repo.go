package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
)

// Repository persists stock counters and their movement log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	IncrementStock(ctx context.Context, variantID uuid.UUID, delta int) (bool, error)
	InsertMovement(ctx context.Context, movement *models.InventoryMovement) error
	ListMovements(ctx context.Context, variantID uuid.UUID) ([]models.InventoryMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// IncrementStock adds delta in a single UPDATE so concurrent writers on the
// same variant accumulate. It reports false when the variant no longer exists.
func (r *repository) IncrementStock(ctx context.Context, variantID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) InsertMovement(ctx context.Context, movement *models.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, variantID uuid.UUID) ([]models.InventoryMovement, error) {
	var rows []models.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
