package enums

import "fmt"

// OrderStatus is the canonical lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPendingPayment  OrderStatus = "pending_payment"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturned        OrderStatus = "returned"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusExpired         OrderStatus = "expired"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusReturnRequested,
	OrderStatusReturned,
	OrderStatusCancelled,
	OrderStatusExpired,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusExpired, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
