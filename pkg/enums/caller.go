package enums

import "fmt"

// CallerRole is the capability class of whoever invokes an order operation.
type CallerRole string

const (
	CallerRoleAdmin    CallerRole = "admin"
	CallerRoleCustomer CallerRole = "customer"
	CallerRoleGuest    CallerRole = "guest"
	CallerRoleSystem   CallerRole = "system"
)

var validCallerRoles = []CallerRole{
	CallerRoleAdmin,
	CallerRoleCustomer,
	CallerRoleGuest,
	CallerRoleSystem,
}

func (r CallerRole) String() string {
	return string(r)
}

func (r CallerRole) IsValid() bool {
	for _, candidate := range validCallerRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// HistoryActor maps the role onto the actor label stored in order history.
func (r CallerRole) HistoryActor() HistoryActor {
	switch r {
	case CallerRoleAdmin:
		return HistoryActorAdmin
	case CallerRoleGuest:
		return HistoryActorGuest
	case CallerRoleSystem:
		return HistoryActorSystem
	default:
		return HistoryActorUser
	}
}

func ParseCallerRole(value string) (CallerRole, error) {
	for _, candidate := range validCallerRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid caller role %q", value)
}

// OrderAction names an operation subject to authorization.
type OrderAction string

const (
	OrderActionView          OrderAction = "view"
	OrderActionMarkPaid      OrderAction = "mark_paid"
	OrderActionCancel        OrderAction = "cancel"
	OrderActionRequestReturn OrderAction = "request_return"
	OrderActionResolveReturn OrderAction = "resolve_return"
	OrderActionRejectReturn  OrderAction = "reject_return"
	OrderActionExpire        OrderAction = "expire"
)

func (a OrderAction) String() string {
	return string(a)
}
