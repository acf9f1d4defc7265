// Package app wires the membership core to its stores, cache and event relay.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/application/services"
	"github.com/felixgeelhaar/hearth/internal/membership/infrastructure/cache"
	"github.com/felixgeelhaar/hearth/internal/membership/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/hearth/pkg/config"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// ScopeCache is the user scope cache as seen by both the read and the write
// side.
type ScopeCache interface {
	queries.ScopeCache
	services.ScopeInvalidator
}

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics

	// Database
	DBConn   database.Connection
	DBDriver database.Driver

	// Redis, nil when the scope cache is process-local.
	RedisClient *redis.Client

	// Repositories
	Repos      persistence.Repositories
	OutboxRepo outbox.Repository

	UnitOfWork sharedApplication.UnitOfWork
	ScopeCache ScopeCache

	// Event relay
	EventRegistry   *eventbus.Registry
	EventPublisher  eventbus.Publisher
	OutboxProcessor *outbox.Processor

	// Write side
	Memberships *services.Service
	RetryPolicy sharedApplication.RetryPolicy

	// Query Handlers
	GetUserScopeHandler         *queries.GetUserScopeHandler
	ListUserMembershipsHandler  *queries.ListUserMembershipsHandler
	ListHouseholdMembersHandler *queries.ListHouseholdMembersHandler
	CheckInvariantHandler       *queries.CheckInvariantHandler
}

// NewContainer connects to the configured database and builds every
// membership handler on top of it.
//
// In local mode the SQLite schema is migrated on start. Redis and RabbitMQ
// are optional: without them the scope cache is process-local and relayed
// events are dispatched in-process. Outside development an unreachable
// Redis or RabbitMQ that was configured is an error.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics observability.Metrics) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		RetryPolicy: sharedApplication.RetryPolicy{
			Attempts: cfg.ConflictRetries,
			Base:     sharedApplication.DefaultRetryPolicy().Base,
		},
	}

	conn, err := openConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to database", "driver", c.DBDriver)

	if c.DBDriver == database.DriverSQLite {
		if _, err := c.Migrate(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}

	if err := c.connectRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}

	factory := NewRepositoryFactory(conn)
	if c.Repos, err = factory.MembershipRepositories(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create membership repositories: %w", err)
	}
	if c.OutboxRepo, err = factory.OutboxRepository(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create outbox repository: %w", err)
	}
	c.UnitOfWork = database.NewUnitOfWork(conn)

	if c.RedisClient != nil {
		c.ScopeCache = cache.NewRedisScopeCache(c.RedisClient, cfg.ScopeCacheTTL)
	} else {
		c.ScopeCache = cache.NewInMemoryScopeCache(cfg.ScopeCacheTTL, 0)
	}

	if err := c.connectPublisher(); err != nil {
		c.Close()
		return nil, err
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig(cfg), logger,
		outbox.WithMetrics(metrics),
	)

	c.Memberships = services.New(services.Deps{
		Memberships: c.Repos.Memberships,
		Users:       c.Repos.Users,
		Households:  c.Repos.Households,
		UnitOfWork:  c.UnitOfWork,
		Events:      outbox.NewSink(c.OutboxRepo),
		Cache:       c.ScopeCache,
		Logger:      logger,
		Metrics:     metrics,
	})

	c.GetUserScopeHandler = queries.NewGetUserScopeHandler(c.Repos.Users, c.ScopeCache, metrics, logger)
	c.ListUserMembershipsHandler = queries.NewListUserMembershipsHandler(c.Repos.Memberships)
	c.ListHouseholdMembersHandler = queries.NewListHouseholdMembersHandler(c.Repos.Memberships, c.Repos.Households)
	c.CheckInvariantHandler = queries.NewCheckInvariantHandler(c.Repos.Memberships, c.Repos.Users, metrics)

	logger.Info("container initialized",
		"driver", c.DBDriver,
		"redis", c.RedisClient != nil,
	)
	return c, nil
}

// Migrate applies pending schema migrations.
func (c *Container) Migrate(ctx context.Context) ([]migrations.Applied, error) {
	c.Logger.Info("running migrations", "driver", c.DBDriver)
	applied, err := migrations.Up(ctx, c.DBConn, c.Config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, a := range applied {
		c.Logger.Info("migration applied", "version", a.Version, "source", a.Source)
	}
	return applied, nil
}

// HealthChecks returns the readiness checks for the connected backends.
func (c *Container) HealthChecks() *observability.HealthRegistry {
	health := observability.NewHealthRegistry(2 * time.Second)
	health.Register("database", observability.PingChecker("database", true, c.DBConn.Ping))
	if c.RedisClient != nil {
		health.Register("redis", observability.PingChecker("redis", false, func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}
	return health
}

// Close releases every resource the container opened.
func (c *Container) Close() {
	if c.OutboxProcessor != nil && c.OutboxProcessor.IsRunning() {
		c.OutboxProcessor.Stop()
		c.Logger.Info("outbox processor stopped")
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}

	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("error closing database connection", "error", err, "driver", c.DBDriver)
		} else {
			c.Logger.Info("database connection closed", "driver", c.DBDriver)
		}
	}
}

func openConnection(ctx context.Context, cfg *config.Config) (database.Connection, error) {
	dbCfg := database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	}
	if cfg.LocalMode() {
		dbCfg.Driver = database.DriverSQLite
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

func (c *Container) connectRedis(ctx context.Context) error {
	if c.Config.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		c.Logger.Warn("invalid Redis URL, scope cache will use in-memory fallback", "error", err)
		return nil
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.Logger.Warn("Redis not available, scope cache will use in-memory fallback", "error", err)
		return nil
	}
	c.RedisClient = client
	c.Logger.Info("connected to Redis")
	return nil
}

// connectPublisher picks where the outbox relay sends events. Consumers in
// EventRegistry receive them in-process unless a broker is configured.
func (c *Container) connectPublisher() error {
	c.EventRegistry = eventbus.NewRegistry(c.Logger)
	c.EventRegistry.Register(cache.NewInvalidationConsumer(c.ScopeCache))

	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewInProcessBus(c.EventRegistry, c.Logger)
		return nil
	}

	publisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		if !c.Config.IsDevelopment() {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		c.Logger.Warn("RabbitMQ not available, relaying events in-process", "error", err)
		c.EventPublisher = eventbus.NewInProcessBus(c.EventRegistry, c.Logger)
		return nil
	}
	c.EventPublisher = eventbus.NewBreakerPublisher(publisher, eventbus.DefaultBreakerConfig(), c.Logger)
	return nil
}

func processorConfig(cfg *config.Config) outbox.ProcessorConfig {
	pc := outbox.DefaultProcessorConfig()
	if cfg.OutboxPollInterval > 0 {
		pc.PollInterval = cfg.OutboxPollInterval
	}
	if cfg.OutboxBatchSize > 0 {
		pc.BatchSize = cfg.OutboxBatchSize
	}
	if cfg.OutboxMaxRetries > 0 {
		pc.MaxRetries = cfg.OutboxMaxRetries
	}
	return pc
}
