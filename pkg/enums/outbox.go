package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrder
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderPaid            OutboxEventType = "order_paid"
	EventOrderCanceled        OutboxEventType = "order_canceled"
	EventOrderExpired         OutboxEventType = "order_expired"
	EventOrderReturnRequested OutboxEventType = "order_return_requested"
	EventOrderReturnResolved  OutboxEventType = "order_return_resolved"
	EventOrderReturnRejected  OutboxEventType = "order_return_rejected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPaid,
	EventOrderCanceled,
	EventOrderExpired,
	EventOrderReturnRequested,
	EventOrderReturnResolved,
	EventOrderReturnRejected,
}

// IsValid reports whether the value is a known outbox event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
