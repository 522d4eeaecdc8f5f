package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

const (
	defaultPendingTTL = 30 * time.Minute
	defaultBatchSize  = 100
)

// OrderExpiryJobParams configure the unpaid order expiry job.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Pending   pendingOrderLister
	Orders    orderExpirer
	TTL       time.Duration
	BatchSize int
}

type pendingOrderLister interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type orderExpirer interface {
	Expire(ctx context.Context, caller orders.Caller, orderID uuid.UUID) (*models.Order, error)
}

// NewOrderExpiryJob builds the job that expires orders left unpaid past TTL.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending orders lister required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &orderExpiryJob{
		logg:    params.Logger,
		pending: params.Pending,
		orders:  params.Orders,
		ttl:     ttl,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg    *logger.Logger
	pending pendingOrderLister
	orders  orderExpirer
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run expires one batch. Orders paid or cancelled since they were listed
// fail the transition check and are skipped.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	ids, err := j.pending.ListPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query pending orders: %w", err)
	}

	var (
		errs    error
		expired int
		skipped int
	)
	caller := orders.SystemCaller()
	for _, id := range ids {
		if _, err := j.orders.Expire(ctx, caller, id); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				skipped++
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(ids),
		"expired": expired,
		"skipped": skipped,
		"failed":  len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "order expiry loop complete")
	return errs
}
