package enums

import "fmt"

// HistoryEventType classifies an audit entry on an order.
type HistoryEventType string

const (
	HistoryEventStatusChange HistoryEventType = "status_change"
	HistoryEventIncident     HistoryEventType = "incident"
)

var validHistoryEventTypes = []HistoryEventType{
	HistoryEventStatusChange,
	HistoryEventIncident,
}

func (t HistoryEventType) String() string {
	return string(t)
}

func (t HistoryEventType) IsValid() bool {
	for _, candidate := range validHistoryEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func ParseHistoryEventType(value string) (HistoryEventType, error) {
	for _, candidate := range validHistoryEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history event type %q", value)
}

// HistoryActor records who caused an audit entry.
type HistoryActor string

const (
	HistoryActorUser   HistoryActor = "user"
	HistoryActorGuest  HistoryActor = "guest"
	HistoryActorAdmin  HistoryActor = "admin"
	HistoryActorSystem HistoryActor = "system"
)

var validHistoryActors = []HistoryActor{
	HistoryActorUser,
	HistoryActorGuest,
	HistoryActorAdmin,
	HistoryActorSystem,
}

func (a HistoryActor) String() string {
	return string(a)
}

func (a HistoryActor) IsValid() bool {
	for _, candidate := range validHistoryActors {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseHistoryActor(value string) (HistoryActor, error) {
	for _, candidate := range validHistoryActors {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history actor %q", value)
}
