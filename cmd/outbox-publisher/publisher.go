package main

import (
	"context"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/outbox"
)

type eventPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// orderEventMessage keys messages by order so a subscriber with ordering
// enabled receives one order's events in the order they were committed.
func orderEventMessage(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"schema_version": strconv.Itoa(envelope.Version),
			"occurred_at":    envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

type orderedPublisher struct {
	publisher *gcppubsub.Publisher
}

func newOrderedPublisher(p *gcppubsub.Publisher) *orderedPublisher {
	p.EnableMessageOrdering = true
	return &orderedPublisher{publisher: p}
}

func (p *orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return &orderedResult{
		result:    p.publisher.Publish(ctx, msg),
		publisher: p.publisher,
		key:       msg.OrderingKey,
	}
}

func (p *orderedPublisher) Stop() {
	p.publisher.Stop()
}

type orderedResult struct {
	result    *gcppubsub.PublishResult
	publisher *gcppubsub.Publisher
	key       string
}

// Get waits for the server ack. Pub/Sub pauses an ordering key after a failed
// publish, so the key is resumed here for the next retry.
func (r *orderedResult) Get(ctx context.Context) (string, error) {
	id, err := r.result.Get(ctx)
	if err != nil && r.key != "" {
		r.publisher.ResumePublish(r.key)
	}
	return id, err
}
