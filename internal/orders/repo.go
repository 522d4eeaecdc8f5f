package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.load(ctx, orderID, false)
}

// FindForUpdate loads the order and its items holding row locks until the
// enclosing transaction ends.
func (r *repository) FindForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.load(ctx, orderID, true)
}

func (r *repository) load(ctx context.Context, orderID uuid.UUID, lock bool) (*models.Order, error) {
	var order models.Order
	if err := r.query(ctx, lock).Where("id = ?", orderID).Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrderNotFound(orderID)
		}
		return nil, err
	}

	var items []models.OrderItem
	if err := r.query(ctx, lock).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *repository) query(ctx context.Context, lock bool) *gorm.DB {
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *repository) FindOwner(ctx context.Context, orderID uuid.UUID) (*Owner, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "customer_email").
		Where("id = ?", orderID).
		Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrderNotFound(orderID)
		}
		return nil, err
	}
	return &Owner{UserID: order.UserID, Email: order.CustomerEmail}, nil
}

// UpdateOrderState writes status and reasons guarded by the version read in
// the same transaction. A mismatch means another writer committed first.
func (r *repository) UpdateOrderState(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"status":           order.Status,
			"return_reason":    order.ReturnReason,
			"rejection_reason": order.RejectionReason,
			"version":          gorm.Expr("version + 1"),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeDependency, "order was modified concurrently").
			WithDetails(map[string]any{"order_id": order.ID.String()})
	}
	order.Version++
	return nil
}

func (r *repository) UpdateItemCounters(ctx context.Context, item *models.OrderItem) error {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND order_id = ?", item.ID, item.OrderID).
		Updates(map[string]any{
			"quantity_returned":         item.QuantityReturned,
			"quantity_return_requested": item.QuantityReturnRequested,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeDependency, "order item %s was not updated", item.ID)
	}
	return nil
}

// ListPendingBefore returns unpaid orders created before cutoff, oldest first.
func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusPendingPayment).
		Where("created_at < ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
