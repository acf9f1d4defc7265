package cli

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/application/services"
	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/migrations"
)

// ErrNotInitialized is returned by commands run without a database.
var ErrNotInitialized = errors.New("application not initialized - database connection required")

// Migrator applies schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) ([]migrations.Applied, error)
}

// App holds the CLI application dependencies.
type App struct {
	Memberships *services.Service

	// Query Handlers
	GetUserScopeHandler         *queries.GetUserScopeHandler
	ListUserMembershipsHandler  *queries.ListUserMembershipsHandler
	ListHouseholdMembersHandler *queries.ListHouseholdMembersHandler
	CheckInvariantHandler       *queries.CheckInvariantHandler

	Migrator    Migrator
	RetryPolicy sharedApplication.RetryPolicy
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	memberships *services.Service,
	getUserScopeHandler *queries.GetUserScopeHandler,
	listUserMembershipsHandler *queries.ListUserMembershipsHandler,
	listHouseholdMembersHandler *queries.ListHouseholdMembersHandler,
	checkInvariantHandler *queries.CheckInvariantHandler,
	migrator Migrator,
	retryPolicy sharedApplication.RetryPolicy,
) *App {
	return &App{
		Memberships:                 memberships,
		GetUserScopeHandler:         getUserScopeHandler,
		ListUserMembershipsHandler:  listUserMembershipsHandler,
		ListHouseholdMembersHandler: listHouseholdMembersHandler,
		CheckInvariantHandler:       checkInvariantHandler,
		Migrator:                    migrator,
		RetryPolicy:                 retryPolicy,
	}
}

// Retry runs fn again while it fails with a concurrent assignment conflict.
func (a *App) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	return services.RetryOnConflict(ctx, a.RetryPolicy, fn)
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the application or ErrNotInitialized.
func RequireApp() (*App, error) {
	if app == nil || app.Memberships == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}
