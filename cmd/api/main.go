package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/routes"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/payments"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/db"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/env"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/migrate"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/redis"
)

const (
	paymentWebhookScope = "payments-webhook"
	shutdownTimeout     = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	ordersService, _, err := orders.NewPostgresService(dbClient, logg, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(ordersService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	var paymentGuard *payments.IdempotencyGuard
	if cfg.Payments.WebhookSecret != "" {
		paymentGuard, err = payments.NewIdempotencyGuard(redisClient, cfg.Payments.IdempotencyTTL, paymentWebhookScope)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment webhook guard", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "payment webhook secret not set, webhook route disabled")
	}

	port := env.Get("PORT", cfg.App.Port)
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": env.Instance(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, ordersService, paymentsService, paymentGuard, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
