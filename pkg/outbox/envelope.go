package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	Actor  enums.HistoryActor `json:"actor"`
	UserID *uuid.UUID         `json:"userId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored outbox payload.
func DecodeEnvelope(payload json.RawMessage) (PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return PayloadEnvelope{}, err
	}
	return envelope, nil
}
