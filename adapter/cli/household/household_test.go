package household

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

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
func setupLocalModeTestApp(t *testing.T) *cli.App {
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
	return app
}

func resetFlags() {
	ownerID = ""
	membershipType = string(domain.TypeFamilyWorkspace)
	statuses = nil
}

func TestCreateCmd_WithoutOwner(t *testing.T) {
	setupLocalModeTestApp(t)
	resetFlags()

	var out bytes.Buffer
	createCmd.SetContext(context.Background())
	createCmd.SetOut(&out)
	require.NoError(t, createCmd.RunE(createCmd, []string{"Maple Street"}))

	assert.True(t, strings.HasPrefix(out.String(), "Household created: "))
	assert.NotContains(t, out.String(), "owner membership")
}

func TestCreateCmd_WithOwnerBootstraps(t *testing.T) {
	app := setupLocalModeTestApp(t)
	ctx := context.Background()
	owner, err := app.Memberships.RegisterUser(ctx, "owner@example.com", "Owner")
	require.NoError(t, err)

	resetFlags()
	ownerID = owner.ID().String()
	membershipType = "flat_share"

	var out bytes.Buffer
	createCmd.SetContext(ctx)
	createCmd.SetOut(&out)
	require.NoError(t, createCmd.RunE(createCmd, []string{"Flat 4"}))
	assert.Contains(t, out.String(), "(primary: true)")

	memberships, err := app.ListUserMembershipsHandler.Handle(ctx, owner.ID())
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, "admin", memberships[0].Role)
	assert.Equal(t, "fs", memberships[0].Type)
	assert.True(t, memberships[0].IsPrimary)
}

func TestCreateCmd_Errors(t *testing.T) {
	setupLocalModeTestApp(t)
	createCmd.SetContext(context.Background())
	createCmd.SetOut(io.Discard)

	resetFlags()
	err := createCmd.RunE(createCmd, []string{"  "})
	require.ErrorIs(t, err, domain.ErrEmptyName)

	resetFlags()
	ownerID = uuid.NewString()
	err = createCmd.RunE(createCmd, []string{"Ghost House"})
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	resetFlags()
	ownerID = "owner"
	err = createCmd.RunE(createCmd, []string{"Nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid owner ID")
}

func TestMembersCmd_FiltersByStatus(t *testing.T) {
	app := setupLocalModeTestApp(t)
	ctx := context.Background()
	home, err := app.Memberships.CreateHousehold(ctx, "Home")
	require.NoError(t, err)

	var ended *domain.Membership
	for i, email := range []string{"a@example.com", "b@example.com"} {
		u, err := app.Memberships.RegisterUser(ctx, email, "Member")
		require.NoError(t, err)
		m, err := app.Memberships.Create(ctx, services.CreateMembershipInput{
			UserID:      u.ID(),
			HouseholdID: home.ID(),
			Type:        domain.TypeFamilyWorkspace,
			Role:        domain.RoleParent,
			IsPrimary:   true,
		})
		require.NoError(t, err)
		if i == 1 {
			ended = m
		}
	}
	_, err = app.Memberships.Deactivate(ctx, ended.ID(), domain.StatusExpired)
	require.NoError(t, err)

	resetFlags()
	statuses = []string{"active"}
	var out bytes.Buffer
	membersCmd.SetContext(ctx)
	membersCmd.SetOut(&out)
	require.NoError(t, membersCmd.RunE(membersCmd, []string{home.ID().String()}))

	assert.NotContains(t, out.String(), ended.ID().String())
	assert.Contains(t, out.String(), "active")

	statuses = []string{"gone"}
	err = membersCmd.RunE(membersCmd, []string{home.ID().String()})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	statuses = nil
	err = membersCmd.RunE(membersCmd, []string{uuid.NewString()})
	require.ErrorIs(t, err, domain.ErrHouseholdNotFound)
}
