package enums

import "fmt"

// InventoryMovementReason explains why stock moved.
type InventoryMovementReason string

const (
	MovementOrderCancelled InventoryMovementReason = "order_cancelled"
	MovementOrderExpired   InventoryMovementReason = "order_expired"
	MovementReturnAccepted InventoryMovementReason = "return_accepted"
)

var validMovementReasons = []InventoryMovementReason{
	MovementOrderCancelled,
	MovementOrderExpired,
	MovementReturnAccepted,
}

func (r InventoryMovementReason) String() string {
	return string(r)
}

func (r InventoryMovementReason) IsValid() bool {
	for _, candidate := range validMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseInventoryMovementReason(value string) (InventoryMovementReason, error) {
	for _, candidate := range validMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory movement reason %q", value)
}
