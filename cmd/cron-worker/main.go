package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/cron"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/env"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/metrics"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/migrate"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/outbox"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/redis"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ordersService, ordersRepo, err := orders.NewPostgresService(dbClient, logg, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:    logg,
		Pending:   ordersRepo,
		Orders:    ordersService,
		TTL:       cfg.Orders.PendingPaymentTTL,
		BatchSize: cfg.Orders.ExpiryBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order expiry job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:             logg,
		DB:                 dbClient,
		Repository:         outbox.NewRepository(dbClient.DB()),
		PublishedRetention: cfg.Outbox.PublishedRetention,
		ParkedRetention:    cfg.Outbox.ParkedRetention,
		MaxAttempts:        cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(expiryJob, retentionJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metricsCollector,
		Interval:   cfg.Cron.Interval,
		JobTimeout: lock.TTL(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"instance": env.Instance(),
	})
	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	if addr := cfg.App.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, prometheus.DefaultGatherer); err != nil {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
	}
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(appEnv string) string {
	if appEnv == "" {
		appEnv = "local"
	}
	return fmt.Sprintf(lockKeyFormat, appEnv)
}
