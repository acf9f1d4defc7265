package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	internalApp "github.com/felixgeelhaar/hearth/internal/app"
	"github.com/felixgeelhaar/hearth/internal/membership/application/services"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/pkg/config"
)

// setupLocalModeTestApp creates a test application with SQLite for integration tests.
func setupLocalModeTestApp(t *testing.T) (*cli.App, *internalApp.Container) {
	t.Helper()

	cfg := &config.Config{
		AppEnv:          "test",
		SQLitePath:      filepath.Join(t.TempDir(), "test.db"),
		OutboxBatchSize: 100,
		ConflictRetries: 3,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	container, err := internalApp.NewContainer(context.Background(), cfg, logger, nil)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	app := cli.NewApp(
		container.Memberships,
		container.GetUserScopeHandler,
		container.ListUserMembershipsHandler,
		container.ListHouseholdMembersHandler,
		container.CheckInvariantHandler,
		container,
		container.RetryPolicy,
	)
	cli.SetApp(app)
	t.Cleanup(func() { cli.SetApp(nil) })
	return app, container
}

func TestCreateCmd_RegistersUser(t *testing.T) {
	setupLocalModeTestApp(t)

	var out bytes.Buffer
	createCmd.SetContext(context.Background())
	createCmd.SetOut(&out)
	require.NoError(t, createCmd.RunE(createCmd, []string{"Ada@Example.com", "Ada"}))

	assert.Contains(t, out.String(), "User created:")
	assert.Contains(t, out.String(), "email: ada@example.com")

	err := createCmd.RunE(createCmd, []string{"ada@example.com", "Ada again"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestShowCmd_JSON(t *testing.T) {
	app, _ := setupLocalModeTestApp(t)
	ctx := context.Background()
	u, err := app.Memberships.RegisterUser(ctx, "grace@example.com", "Grace")
	require.NoError(t, err)
	home, m, err := app.Memberships.Bootstrap(ctx, services.BootstrapInput{
		OwnerID: u.ID(),
		Name:    "Home",
		Type:    domain.TypeSoloPlan,
	})
	require.NoError(t, err)

	cli.SetJSONOutput(true)
	defer cli.SetJSONOutput(false)

	var out bytes.Buffer
	showCmd.SetContext(ctx)
	showCmd.SetOut(&out)
	require.NoError(t, showCmd.RunE(showCmd, []string{u.ID().String()}))

	var got struct {
		Scope struct {
			HouseholdID *uuid.UUID `json:"household_id"`
			Role        string     `json:"role"`
		} `json:"scope"`
		Memberships []struct {
			ID        uuid.UUID `json:"id"`
			IsPrimary bool      `json:"is_primary"`
		} `json:"memberships"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.NotNil(t, got.Scope.HouseholdID)
	assert.Equal(t, home.ID(), *got.Scope.HouseholdID)
	assert.Equal(t, "admin", got.Scope.Role)
	require.Len(t, got.Memberships, 1)
	assert.Equal(t, m.ID(), got.Memberships[0].ID)
	assert.True(t, got.Memberships[0].IsPrimary)
}

func TestShowCmd_UnknownUser(t *testing.T) {
	setupLocalModeTestApp(t)
	showCmd.SetContext(context.Background())
	showCmd.SetOut(io.Discard)

	err := showCmd.RunE(showCmd, []string{uuid.NewString()})

	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestResyncCmd_RepairsDrift(t *testing.T) {
	app, container := setupLocalModeTestApp(t)
	ctx := context.Background()
	u, err := app.Memberships.RegisterUser(ctx, "linus@example.com", "Linus")
	require.NoError(t, err)
	home, _, err := app.Memberships.Bootstrap(ctx, services.BootstrapInput{
		OwnerID: u.ID(),
		Name:    "Home",
		Type:    domain.TypeFamilyWorkspace,
	})
	require.NoError(t, err)

	drifted, err := container.Repos.Users.FindByID(ctx, u.ID())
	require.NoError(t, err)
	drifted.ApplyScope(domain.NoScope(), time.Now())
	require.NoError(t, container.Repos.Users.UpdateScope(ctx, drifted))

	report, err := app.CheckInvariantHandler.Handle(ctx, u.ID())
	require.NoError(t, err)
	require.False(t, report.OK())

	var out bytes.Buffer
	resyncCmd.SetContext(ctx)
	resyncCmd.SetOut(&out)
	require.NoError(t, resyncCmd.RunE(resyncCmd, []string{u.ID().String()}))

	assert.Contains(t, out.String(), "Household: "+home.ID().String())
	report, err = app.CheckInvariantHandler.Handle(ctx, u.ID())
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestResyncCmd_InvalidID(t *testing.T) {
	setupLocalModeTestApp(t)
	resyncCmd.SetContext(context.Background())

	err := resyncCmd.RunE(resyncCmd, []string{"42"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user ID")
}
