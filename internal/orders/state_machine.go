package orders

import (
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// legal source statuses per action
var transitions = map[enums.OrderAction][]enums.OrderStatus{
	enums.OrderActionMarkPaid:      {enums.OrderStatusPendingPayment},
	enums.OrderActionCancel:        {enums.OrderStatusPendingPayment, enums.OrderStatusPaid, enums.OrderStatusReturnRequested},
	enums.OrderActionRequestReturn: {enums.OrderStatusPaid, enums.OrderStatusReturnRequested},
	enums.OrderActionResolveReturn: {enums.OrderStatusReturnRequested},
	enums.OrderActionRejectReturn:  {enums.OrderStatusReturnRequested},
	enums.OrderActionExpire:        {enums.OrderStatusPendingPayment},
}

// CheckTransition reports InvalidTransition when action may not leave from.
// Only admins may cancel once an order has been paid.
func CheckTransition(action enums.OrderAction, from enums.OrderStatus, role enums.CallerRole) error {
	if from.IsTerminal() {
		return errInvalidTransition(action, from)
	}
	if action == enums.OrderActionCancel && role != enums.CallerRoleAdmin && from != enums.OrderStatusPendingPayment {
		return errInvalidTransition(action, from)
	}
	for _, allowed := range transitions[action] {
		if allowed == from {
			return nil
		}
	}
	return errInvalidTransition(action, from)
}

// AllowedActions lists the mutating actions role may attempt from status.
// Ownership is checked separately.
func AllowedActions(status enums.OrderStatus, role enums.CallerRole) []enums.OrderAction {
	permitted := actionsFor(role)
	ordered := []enums.OrderAction{
		enums.OrderActionMarkPaid,
		enums.OrderActionCancel,
		enums.OrderActionRequestReturn,
		enums.OrderActionResolveReturn,
		enums.OrderActionRejectReturn,
		enums.OrderActionExpire,
	}
	out := make([]enums.OrderAction, 0, len(ordered))
	for _, action := range ordered {
		if permitted[action] && CheckTransition(action, status, role) == nil {
			out = append(out, action)
		}
	}
	return out
}
