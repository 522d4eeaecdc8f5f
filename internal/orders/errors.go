package orders

import (
	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

// Error kinds reported to callers and used as metric labels.
const (
	KindUnauthorized       = "Unauthorized"
	KindOrderNotFound      = "OrderNotFound"
	KindInvalidTransition  = "InvalidTransition"
	KindMissingReason      = "MissingReason"
	KindExceedsAvailable   = "ExceedsAvailableQuantity"
	KindPersistenceFailure = "PersistenceFailure"
	KindInvalidInput       = "InvalidInput"
)

// ErrorKind names the failure class of err. A nil error yields "".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeForbidden, pkgerrors.CodeUnauthorized:
		return KindUnauthorized
	case pkgerrors.CodeNotFound:
		return KindOrderNotFound
	case pkgerrors.CodeStateConflict:
		return KindInvalidTransition
	case pkgerrors.CodeMissingReason:
		return KindMissingReason
	case pkgerrors.CodeQuantityExceeded:
		return KindExceedsAvailable
	case pkgerrors.CodeValidation:
		return KindInvalidInput
	default:
		return KindPersistenceFailure
	}
}

func errUnauthorized(action enums.OrderAction) error {
	return pkgerrors.Newf(pkgerrors.CodeForbidden, "caller may not %s this order", action)
}

func errOrderNotFound(orderID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID.String()})
}

func errInvalidTransition(action enums.OrderAction, from enums.OrderStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s an order in status %s", action, from).
		WithDetails(map[string]any{
			"action": string(action),
			"status": string(from),
		})
}

func errMissingReason(field string) error {
	return pkgerrors.Newf(pkgerrors.CodeMissingReason, "%s must have at least %d characters", field, minReasonLength).
		WithDetails(map[string]any{"field": field})
}

func errExceeds(itemID uuid.UUID, requested, available int) error {
	return pkgerrors.Newf(pkgerrors.CodeQuantityExceeded,
		"quantity %d exceeds the %d available for item %s", requested, available, itemID).
		WithDetails(map[string]any{
			"item_id":   itemID.String(),
			"requested": requested,
			"available": available,
		})
}

// classify keeps typed errors and turns anything else into a retryable
// persistence failure.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
