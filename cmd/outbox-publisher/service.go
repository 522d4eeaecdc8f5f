package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db/models"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/metrics"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
	OrderEventsTopic() string
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Repository outboxRepository
	Metrics    *metrics.OutboxMetrics
	// Publisher overrides the Pub/Sub publisher built from PubSub.
	Publisher eventPublisher
}

// Service relays committed order events from outbox_events to the order
// events topic. A row is marked published only after Pub/Sub acknowledges it.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	publisher    eventPublisher
	metrics      *metrics.OutboxMetrics
	topic        string
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	}

	topic := params.PubSub.OrderEventsTopic()
	if topic == "" {
		topic = params.Config.PubSub.OrderEventsTopic
	}
	if topic == "" {
		return nil, errors.New("order events topic is required")
	}

	pub := params.Publisher
	if pub == nil {
		handle := params.PubSub.Publisher(topic)
		if handle == nil {
			return nil, fmt.Errorf("no publisher for topic %s", topic)
		}
		pub = newOrderedPublisher(handle)
	}

	cfg := params.Config.Outbox
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		publisher:    pub,
		metrics:      params.Metrics,
		topic:        topic,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: cfg.PollInterval(),
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

// Run relays batches until ctx ends. A batch that published everything it
// claimed is followed immediately by the next one; retries and errors back
// off, and an empty outbox waits one poll interval.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}
	defer s.publisher.Stop()

	wait := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		summary, err := s.relayBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox relay batch failed", err)
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case summary.retried > 0:
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case summary.claimed > 0:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}

		if err := sleep(ctx, wait+rand.N(jitterWindow)); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current < base {
		current = base
	}
	return min(current*2, max)
}
