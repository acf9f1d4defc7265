package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/hearth/adapter/api"
	"github.com/felixgeelhaar/hearth/internal/app"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/hearth/pkg/config"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat, "hearth-worker"))
	slog.SetDefault(logger)
	logger.Info("starting hearth worker", "env", cfg.AppEnv)

	shutdownTracing, err := observability.SetupTracing(ctx, "hearth-worker", cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	metrics := observability.NewPrometheusMetrics()
	container, err := app.NewContainer(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return 1
	}
	defer container.Close()

	if cfg.OutboxProcessorEnabled {
		logger.Info("starting outbox processor",
			"poll_interval", cfg.OutboxPollInterval,
			"batch_size", cfg.OutboxBatchSize,
			"max_retries", cfg.OutboxMaxRetries,
		)
		if err := container.OutboxProcessor.Start(ctx); err != nil {
			logger.Error("failed to start outbox processor", "error", err)
			return 1
		}
	}

	if cfg.RabbitMQURL != "" {
		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:       cfg.RabbitMQURL,
			QueueName: cfg.ConsumerQueue,
			Logger:    logger,
		}, container.EventRegistry)
		if err != nil {
			logger.Error("failed to start event consumer", "error", err)
			return 1
		}
		defer func() { _ = consumer.Close() }()

		go func() {
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("event consumer stopped", "error", err)
				cancel()
			}
		}()
	}

	go purgeLoop(ctx, container, cfg, logger)
	go statsLoop(ctx, container, cfg.OutboxStatsInterval, logger)

	if cfg.WorkerHealthAddr != "" {
		serverCfg := api.DefaultServerConfig()
		serverCfg.Addr = cfg.WorkerHealthAddr
		server := api.NewServer(serverCfg, api.Deps{
			Health:               container.HealthChecks(),
			Metrics:              metrics.Handler(),
			OutboxStats:          container.OutboxProcessor.GetStats,
			GetUserScope:         container.GetUserScopeHandler,
			ListUserMemberships:  container.ListUserMembershipsHandler,
			ListHouseholdMembers: container.ListHouseholdMembersHandler,
			CheckInvariant:       container.CheckInvariantHandler,
		}, logger)

		go func() {
			if err := server.Start(); err != nil {
				logger.Error("http server error", "error", err)
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http server shutdown error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down worker")
	return 0
}

// purgeLoop deletes published outbox rows older than the retention window.
func purgeLoop(ctx context.Context, container *app.Container, cfg *config.Config, logger *slog.Logger) {
	logger = observability.LogOperation(logger, "outbox_purge")
	ticker := time.NewTicker(cfg.OutboxCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := container.OutboxRepo.Purge(ctx, time.Now().Add(-cfg.OutboxRetention()))
			if err != nil {
				logger.Error("outbox cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("outbox cleanup completed", "deleted", deleted, "retention_days", cfg.OutboxRetentionDays)
			}
		}
	}
}

func statsLoop(ctx context.Context, container *app.Container, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := container.OutboxProcessor.GetStats()
			logger.Info("outbox stats",
				"running", stats.IsRunning,
				"published", stats.PublishedCount,
				"failed", stats.FailedCount,
				"dead", stats.DeadCount,
				"lag_seconds", stats.LagSeconds,
				"oldest_message_at", stats.OldestMessageAt,
				"last_processed_at", stats.LastProcessedAt,
				"last_error", stats.LastError,
			)
		}
	}
}
