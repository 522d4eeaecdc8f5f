package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

// Status is the outcome a payment provider reports for an order.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusNotPaid Status = "not_paid"
)

// Event is the payment signal delivered to the webhook.
type Event struct {
	EventID string    `json:"eventId"`
	OrderID uuid.UUID `json:"orderId"`
	Status  Status    `json:"status"`
}

type orderPayer interface {
	MarkPaid(ctx context.Context, caller orders.Caller, orderID uuid.UUID) (*models.Order, error)
}

// Service translates payment signals into order transitions.
type Service interface {
	HandleEvent(ctx context.Context, event *Event) error
}

type service struct {
	orders orderPayer
	logg   *logger.Logger
}

func NewService(orders orderPayer, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{orders: orders, logg: logg}, nil
}

// HandleEvent marks the order paid on a paid signal and acknowledges a
// not_paid signal without touching the order. A paid signal for an order
// that has already left PENDING_PAYMENT is acknowledged and logged, since
// redelivery cannot change the outcome.
func (s *service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment event required")
	}
	if strings.TrimSpace(event.EventID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if event.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	ctx = s.logg.WithOrderID(ctx, event.OrderID.String())
	ctx = s.logg.WithField(ctx, "payment_event_id", event.EventID)

	switch event.Status {
	case StatusNotPaid:
		s.logg.Info(ctx, "payment not completed; order left pending")
		return nil
	case StatusPaid:
	default:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment status %q", event.Status)
	}

	if _, err := s.orders.MarkPaid(ctx, orders.SystemCaller(), event.OrderID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.logg.Warn(ctx, "payment signal ignored; order is no longer pending")
			return nil
		}
		return err
	}
	return nil
}
