package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

const (
	defaultPublishedRetention = 7 * 24 * time.Hour
	defaultParkedRetention    = 30 * 24 * time.Hour
	defaultParkedAttempts     = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OutboxRetentionJobParams configure outbox cleanup. Parked rows, the order
// events the publisher gave up on, are kept longer than published ones so they
// can still be inspected and replayed.
type OutboxRetentionJobParams struct {
	Logger             *logger.Logger
	DB                 txRunner
	Repository         outboxRetentionRepo
	PublishedRetention time.Duration
	ParkedRetention    time.Duration
	// MaxAttempts must match the publisher's limit; rows at or above it are parked.
	MaxAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	DeleteParkedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:               params.Logger,
		db:                 params.DB,
		repo:               params.Repository,
		publishedRetention: params.PublishedRetention,
		parkedRetention:    params.ParkedRetention,
		maxAttempts:        params.MaxAttempts,
		now:                time.Now,
	}
	if job.publishedRetention <= 0 {
		job.publishedRetention = defaultPublishedRetention
	}
	if job.parkedRetention <= 0 {
		job.parkedRetention = defaultParkedRetention
	}
	if job.maxAttempts <= 0 {
		job.maxAttempts = defaultParkedAttempts
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg               *logger.Logger
	db                 txRunner
	repo               outboxRetentionRepo
	publishedRetention time.Duration
	parkedRetention    time.Duration
	maxAttempts        int
	now                func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	publishedCutoff := now.Add(-j.publishedRetention)
	parkedCutoff := now.Add(-j.parkedRetention)

	var published, parked int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if published, err = j.repo.DeletePublishedBefore(ctx, tx, publishedCutoff); err != nil {
			return fmt.Errorf("delete published: %w", err)
		}
		if parked, err = j.repo.DeleteParkedBefore(ctx, tx, parkedCutoff, j.maxAttempts); err != nil {
			return fmt.Errorf("delete parked: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"published_cutoff": publishedCutoff,
		"parked_cutoff":    parkedCutoff,
		"published_purged": published,
		"parked_purged":    parked,
	}), "outbox retention sweep complete")
	return nil
}
