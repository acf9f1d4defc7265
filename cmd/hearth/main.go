package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/adapter/cli/household"
	"github.com/felixgeelhaar/hearth/adapter/cli/membership"
	"github.com/felixgeelhaar/hearth/adapter/cli/user"
	"github.com/felixgeelhaar/hearth/internal/app"
	"github.com/felixgeelhaar/hearth/pkg/config"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat, "hearth"))
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	shutdownTracing, err := observability.SetupTracing(ctx, "hearth", cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	container, err := app.NewContainer(ctx, cfg, logger, nil)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			return 1
		}
		// In development, allow CLI to run without database
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()
		cli.SetApp(cli.NewApp(
			container.Memberships,
			container.GetUserScopeHandler,
			container.ListUserMembershipsHandler,
			container.ListHouseholdMembersHandler,
			container.CheckInvariantHandler,
			container,
			container.RetryPolicy,
		))
	}

	// Register commands
	cli.AddCommand(user.Cmd)
	cli.AddCommand(household.Cmd)
	cli.AddCommand(membership.Cmd)

	return cli.Execute(ctx)
}
