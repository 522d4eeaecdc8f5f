package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/outbox"
)

type relayOutcome string

const (
	outcomePublished relayOutcome = "published"
	outcomeRetry     relayOutcome = "retry"
	outcomeParked    relayOutcome = "parked"
	outcomeDeferred  relayOutcome = "deferred"
)

type batchSummary struct {
	claimed   int
	published int
	retried   int
	parked    int
	deferred  int
}

func (b *batchSummary) add(outcome relayOutcome) {
	switch outcome {
	case outcomePublished:
		b.published++
	case outcomeRetry:
		b.retried++
	case outcomeParked:
		b.parked++
	case outcomeDeferred:
		b.deferred++
	}
}

// relayBatch claims up to batchSize rows with SKIP LOCKED and relays them in
// created order. Once an order's event fails, its later events in the batch
// are left for the next round so subscribers never see them out of sequence.
func (s *Service) relayBatch(ctx context.Context) (batchSummary, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveBatch(time.Since(start)) }()

	var summary batchSummary
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		summary = batchSummary{}
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		summary.claimed = len(events)

		held := map[uuid.UUID]struct{}{}
		for _, event := range events {
			outcome := outcomeDeferred
			if _, blocked := held[event.AggregateID]; !blocked {
				outcome, err = s.relayEvent(ctx, tx, event)
				if err != nil {
					return err
				}
			}
			if outcome == outcomeRetry || outcome == outcomeDeferred {
				held[event.AggregateID] = struct{}{}
			}
			summary.add(outcome)
			s.metrics.ObserveEvent(string(event.EventType), string(outcome))
		}
		return nil
	})
	if err == nil && summary.claimed > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"claimed":   summary.claimed,
			"published": summary.published,
			"retried":   summary.retried,
			"parked":    summary.parked,
			"deferred":  summary.deferred,
		}), "outbox batch relayed")
	}
	return summary, err
}

func (s *Service) relayEvent(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (relayOutcome, error) {
	ctx = s.logg.WithFields(ctx, eventFields(event))
	envelope, err := relayableEnvelope(event)
	if err != nil {
		return outcomeParked, s.park(ctx, tx, event, "non_retryable", err)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":    envelope.EventID,
		"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	pubErr := s.publish(ctx, orderEventMessage(event, envelope))
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return "", fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(ctx, "outbox event published")
		return outcomePublished, nil
	}

	attempt := event.AttemptCount + 1
	switch {
	case rejectedByPubSub(pubErr):
		return outcomeParked, s.park(ctx, tx, event, "rejected", pubErr)
	case attempt >= s.maxAttempts:
		return outcomeParked, s.park(ctx, tx, event, "max_attempts", fmt.Errorf("max publish attempts reached: %w", pubErr))
	}

	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"next_attempt": attempt + 1,
		"error":        pubErr.Error(),
	}), "outbox publish failed, will retry")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return "", fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return outcomeRetry, nil
}

// park sets attempt_count to the max so the row is never claimed again. The
// retention job removes it after the parked retention window.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason string, cause error) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"terminal_reason": reason,
		"error":           cause.Error(),
	}), "outbox event parked")
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, msg *gcppubsub.Message) error {
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := s.publisher.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher for %s returned no result", s.topic)
	}
	_, err := result.Get(publishCtx)
	return err
}

func relayableEnvelope(event models.OutboxEvent) (outbox.PayloadEnvelope, error) {
	if !event.EventType.IsValid() || !event.AggregateType.IsValid() {
		return outbox.PayloadEnvelope{}, fmt.Errorf("unknown event %s/%s", event.AggregateType, event.EventType)
	}
	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return outbox.PayloadEnvelope{}, fmt.Errorf("decode payload: %w", err)
	}
	if envelope.EventID == "" {
		return outbox.PayloadEnvelope{}, errors.New("payload has no event id")
	}
	return envelope, nil
}

// rejectedByPubSub reports errors that will repeat for the same message, such
// as an oversized payload.
func rejectedByPubSub(err error) bool {
	return status.Code(err) == codes.InvalidArgument
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"order_id":       event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
