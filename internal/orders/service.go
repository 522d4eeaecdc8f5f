package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/history"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/inventory"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/metrics"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/outbox"
)

const (
	reasonPaymentConfirmed = "Pago confirmado"
	reasonReturnAccepted   = "Productos aceptados"
	reasonExpired          = "Pedido expirado por falta de pago"
	reasonCancelledByAdmin = "Pedido cancelado por administración"
	reasonCancelledByOwner = "Pedido cancelado por el cliente"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service moves orders through their lifecycle. Every mutating call runs in
// one transaction: the order and its items are locked, the transition is
// checked, items and stock are reconciled, and the history entry and outbox
// event are written before commit.
type Service interface {
	MarkPaid(ctx context.Context, caller Caller, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, caller Caller, orderID uuid.UUID, reason string) (*models.Order, error)
	Expire(ctx context.Context, caller Caller, orderID uuid.UUID) (*models.Order, error)
	RequestReturn(ctx context.Context, caller Caller, input RequestReturnInput) (*models.Order, error)
	ResolveReturn(ctx context.Context, caller Caller, input ResolveReturnInput) (*models.Order, error)
	RejectReturn(ctx context.Context, caller Caller, orderID uuid.UUID, reason string) (*models.Order, error)
	GetOrder(ctx context.Context, caller Caller, orderID uuid.UUID) (*OrderView, error)
	ListHistory(ctx context.Context, caller Caller, orderID uuid.UUID) ([]HistoryEventView, error)
}

// ServiceParams bundles the collaborators of the order service.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	History    history.Log
	Ledger     inventory.Ledger
	Outbox     outboxPublisher
	Authorizer Authorizer
	Logger     *logger.Logger
	Metrics    *metrics.OrderTransitionMetrics
}

type service struct {
	repo    Repository
	tx      txRunner
	history history.Log
	ledger  inventory.Ledger
	outbox  outboxPublisher
	authz   Authorizer
	logg    *logger.Logger
	metrics *metrics.OrderTransitionMetrics
}

// NewService builds the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history log required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Authorizer == nil {
		return nil, fmt.Errorf("authorizer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		history: params.History,
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		authz:   params.Authorizer,
		logg:    logg,
		metrics: params.Metrics,
	}, nil
}

// change is what a transition writes once it has been validated.
type change struct {
	status          enums.OrderStatus
	returnReason    *string
	rejectionReason *string
	plan            *itemPlan
	movement        enums.InventoryMovementReason
	entries         []history.Entry
	event           enums.OutboxEventType
	reason          string
	refund          bool
}

// planner validates the locked order and describes the change. It must not
// write anything.
type planner func(order *models.Order) (*change, error)

func (s *service) MarkPaid(ctx context.Context, caller Caller, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, caller, enums.OrderActionMarkPaid, orderID, func(order *models.Order) (*change, error) {
		return &change{
			status: enums.OrderStatusPaid,
			entries: []history.Entry{{
				Type:           enums.HistoryEventStatusChange,
				SnapshotStatus: enums.OrderStatusPaid,
				Actor:          caller.Actor(),
				Reason:         reasonPaymentConfirmed,
			}},
			event:  enums.EventOrderPaid,
			reason: reasonPaymentConfirmed,
		}, nil
	})
}

// Cancel unwinds the order and restocks every unreturned unit. An empty
// reason falls back to a default that names who cancelled. The caller is
// authorized before a supplied reason is checked.
func (s *service) Cancel(ctx context.Context, caller Caller, orderID uuid.UUID, reason string) (*models.Order, error) {
	text := defaultCancelReason(caller)
	check := func() error {
		trimmed := strings.TrimSpace(reason)
		if trimmed == "" {
			return nil
		}
		valid, err := validateReason("reason", trimmed)
		if err != nil {
			return err
		}
		text = valid
		return nil
	}
	return s.checkedTransition(ctx, caller, enums.OrderActionCancel, orderID, check, func(order *models.Order) (*change, error) {
		return unwindChange(caller, planUnwind(order), enums.OrderStatusCancelled, enums.MovementOrderCancelled, enums.EventOrderCanceled, text), nil
	})
}

// Expire cancels an unpaid order on behalf of the system.
func (s *service) Expire(ctx context.Context, caller Caller, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, caller, enums.OrderActionExpire, orderID, func(order *models.Order) (*change, error) {
		return unwindChange(caller, planUnwind(order), enums.OrderStatusExpired, enums.MovementOrderExpired, enums.EventOrderExpired, reasonExpired), nil
	})
}

func (s *service) RequestReturn(ctx context.Context, caller Caller, input RequestReturnInput) (*models.Order, error) {
	reason, err := validateReason("reason", input.Reason)
	if err != nil {
		return nil, s.fail(ctx, enums.OrderActionRequestReturn, input.OrderID, time.Now(), err)
	}
	return s.transition(ctx, caller, enums.OrderActionRequestReturn, input.OrderID, func(order *models.Order) (*change, error) {
		plan, err := planReturnRequest(order, input.Items)
		if err != nil {
			return nil, err
		}
		return &change{
			status:       enums.OrderStatusReturnRequested,
			returnReason: &reason,
			plan:         plan,
			entries: []history.Entry{{
				Type:           enums.HistoryEventStatusChange,
				SnapshotStatus: enums.OrderStatusReturnRequested,
				Actor:          caller.Actor(),
				Reason:         reason,
				Details:        plan.details,
			}},
			event:  enums.EventOrderReturnRequested,
			reason: reason,
		}, nil
	})
}

// ResolveReturn accepts the given quantities and closes the return cycle.
// A call that accepts nothing must explain itself with a rejection note.
func (s *service) ResolveReturn(ctx context.Context, caller Caller, input ResolveReturnInput) (*models.Order, error) {
	note := strings.TrimSpace(input.RejectionNote)
	if note != "" || !acceptsAny(input.Accepted) {
		valid, err := validateReason("rejectionNote", note)
		if err != nil {
			return nil, s.fail(ctx, enums.OrderActionResolveReturn, input.OrderID, time.Now(), err)
		}
		note = valid
	}
	return s.transition(ctx, caller, enums.OrderActionResolveReturn, input.OrderID, func(order *models.Order) (*change, error) {
		plan, err := planReturnResolution(order, input.Accepted)
		if err != nil {
			return nil, err
		}
		status := plan.settledStatus()
		c := &change{
			status:   status,
			plan:     plan,
			movement: enums.MovementReturnAccepted,
			event:    enums.EventOrderReturnResolved,
			reason:   reasonReturnAccepted,
			refund:   true,
		}
		if plan.units > 0 {
			c.entries = append(c.entries, history.Entry{
				Type:           enums.HistoryEventStatusChange,
				SnapshotStatus: status,
				Actor:          caller.Actor(),
				Reason:         reasonReturnAccepted,
				Details:        plan.details,
			})
		}
		if note != "" {
			noteType := enums.HistoryEventIncident
			if plan.units == 0 {
				noteType = enums.HistoryEventStatusChange
				c.reason = note
			}
			c.rejectionReason = &note
			c.entries = append(c.entries, history.Entry{
				Type:           noteType,
				SnapshotStatus: status,
				Actor:          caller.Actor(),
				Reason:         note,
				Details:        plan.remainder,
			})
		}
		return c, nil
	})
}

func (s *service) RejectReturn(ctx context.Context, caller Caller, orderID uuid.UUID, reason string) (*models.Order, error) {
	text, err := validateReason("reason", reason)
	if err != nil {
		return nil, s.fail(ctx, enums.OrderActionRejectReturn, orderID, time.Now(), err)
	}
	return s.transition(ctx, caller, enums.OrderActionRejectReturn, orderID, func(order *models.Order) (*change, error) {
		plan := planRequestRejection(order)
		return &change{
			status:          enums.OrderStatusPaid,
			rejectionReason: &text,
			plan:            plan,
			entries: []history.Entry{{
				Type:           enums.HistoryEventStatusChange,
				SnapshotStatus: enums.OrderStatusPaid,
				Actor:          caller.Actor(),
				Reason:         text,
				Details:        plan.details,
			}},
			event:  enums.EventOrderReturnRejected,
			reason: text,
		}, nil
	})
}

func (s *service) GetOrder(ctx context.Context, caller Caller, orderID uuid.UUID) (*OrderView, error) {
	if err := s.authorize(ctx, caller, enums.OrderActionView, orderID); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, classify(err, "load order")
	}
	return NewOrderView(order, caller.Role), nil
}

func (s *service) ListHistory(ctx context.Context, caller Caller, orderID uuid.UUID) ([]HistoryEventView, error) {
	if err := s.authorize(ctx, caller, enums.OrderActionView, orderID); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindOwner(ctx, orderID); err != nil {
		return nil, classify(err, "load order")
	}
	events, err := s.history.List(ctx, orderID)
	if err != nil {
		return nil, classify(err, "list order history")
	}
	return newHistoryViews(events), nil
}

func (s *service) authorize(ctx context.Context, caller Caller, action enums.OrderAction, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ok, err := s.authz.IsAuthorized(ctx, caller, action, orderID)
	if err != nil {
		return classify(err, "authorize caller")
	}
	if !ok {
		return errUnauthorized(action)
	}
	return nil
}

// transition authorizes before opening the transaction, then runs plan
// against the locked order and persists the result. Any error rolls the
// whole unit back.
func (s *service) transition(ctx context.Context, caller Caller, action enums.OrderAction, orderID uuid.UUID, plan planner) (*models.Order, error) {
	return s.checkedTransition(ctx, caller, action, orderID, nil, plan)
}

// checkedTransition runs check between authorization and the transaction.
func (s *service) checkedTransition(ctx context.Context, caller Caller, action enums.OrderAction, orderID uuid.UUID, check func() error, plan planner) (*models.Order, error) {
	started := time.Now()
	if err := s.authorize(ctx, caller, action, orderID); err != nil {
		return nil, s.fail(ctx, action, orderID, started, err)
	}
	if check != nil {
		if err := check(); err != nil {
			return nil, s.fail(ctx, action, orderID, started, err)
		}
	}

	var (
		result   *models.Order
		from     enums.OrderStatus
		restored []inventory.Adjustment
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if err := CheckTransition(action, order.Status, caller.Role); err != nil {
			return err
		}

		c, err := plan(order)
		if err != nil {
			return err
		}

		if c.plan != nil {
			for _, idx := range c.plan.changed {
				if err := repo.UpdateItemCounters(ctx, &c.plan.items[idx]); err != nil {
					return err
				}
			}
			if len(c.plan.restock) > 0 {
				restored, err = s.ledger.Restock(ctx, tx, inventory.Restock{
					OrderID:     order.ID,
					Reason:      c.movement,
					Adjustments: c.plan.restock,
				})
				if err != nil {
					return err
				}
			}
			order.Items = c.plan.items
		}

		order.Status = c.status
		if c.returnReason != nil {
			order.ReturnReason = c.returnReason
		}
		if c.rejectionReason != nil {
			order.RejectionReason = c.rejectionReason
		}
		if err := repo.UpdateOrderState(ctx, order); err != nil {
			return err
		}

		for _, entry := range c.entries {
			entry.OrderID = order.ID
			if _, err := s.history.Append(ctx, tx, entry); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, s.domainEvent(caller, order, from, c, restored)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, action, orderID, started, classify(err, "order transaction failed"))
	}

	units := 0
	for _, adj := range restored {
		units += adj.Delta
	}
	s.metrics.AddRestocked(units)
	s.metrics.Observe(string(action), "ok", time.Since(started))

	logCtx := s.logg.WithFields(s.logg.WithActor(s.logg.WithOrderID(ctx, orderID.String()), string(caller.Actor())), map[string]any{
		"action":          string(action),
		"from_status":     string(from),
		"to_status":       string(result.Status),
		"units_restocked": units,
	})
	s.logg.Info(logCtx, "order transition committed")
	return result, nil
}

func (s *service) domainEvent(caller Caller, order *models.Order, from enums.OrderStatus, c *change, restored []inventory.Adjustment) outbox.DomainEvent {
	payload := outbox.OrderTransitionEvent{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   order.Status,
		Reason:     c.reason,
	}
	if c.plan != nil {
		payload.Items = c.plan.touched
		if c.refund && c.plan.refund > 0 {
			refund := formatMoney(c.plan.refund, order.Currency)
			payload.Refund = &refund
		}
	}
	for _, adj := range restored {
		payload.Restocked = append(payload.Restocked, outbox.StockReturn{VariantID: adj.VariantID, Quantity: adj.Delta})
	}
	return outbox.DomainEvent{
		EventType:     c.event,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{Actor: caller.Actor(), UserID: caller.UserID},
		Data:          payload,
	}
}

func (s *service) fail(ctx context.Context, action enums.OrderAction, orderID uuid.UUID, started time.Time, err error) error {
	kind := ErrorKind(err)
	s.metrics.Observe(string(action), kind, time.Since(started))

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"action":     string(action),
		"error_kind": kind,
	})
	if kind == KindPersistenceFailure {
		s.logg.Error(logCtx, "order transition failed", err)
	} else {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "order transition rejected")
	}
	return err
}

func unwindChange(caller Caller, plan *itemPlan, status enums.OrderStatus, movement enums.InventoryMovementReason, event enums.OutboxEventType, reason string) *change {
	return &change{
		status:   status,
		plan:     plan,
		movement: movement,
		entries: []history.Entry{{
			Type:           enums.HistoryEventStatusChange,
			SnapshotStatus: status,
			Actor:          caller.Actor(),
			Reason:         reason,
			Details:        plan.details,
		}},
		event:  event,
		reason: reason,
	}
}

func defaultCancelReason(caller Caller) string {
	if caller.isAdmin() {
		return reasonCancelledByAdmin
	}
	return reasonCancelledByOwner
}

func acceptsAny(lines []ItemQuantity) bool {
	for _, line := range lines {
		if line.Qty > 0 {
			return true
		}
	}
	return false
}
