package persistence_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/membership/infrastructure/persistence"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/migrations"
)

type fixture struct {
	conn  database.Connection
	repos persistence.Repositories
	now   time.Time
}

func openSQLite(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "hearth.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = migrations.Up(ctx, conn, "")
	require.NoError(t, err)
	return newFixture(t, conn)
}

// openPostgres connects to HEARTH_TEST_POSTGRES_URL. The database must be
// disposable: migrations run against it and rows are left behind.
func openPostgres(t *testing.T) fixture {
	t.Helper()
	url := os.Getenv("HEARTH_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("HEARTH_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	conn, err := postgres.NewConnection(ctx, database.Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = migrations.Up(ctx, conn, url)
	require.NoError(t, err)
	return newFixture(t, conn)
}

func newFixture(t *testing.T, conn database.Connection) fixture {
	repos, err := persistence.NewRepositories(conn)
	require.NoError(t, err)
	return fixture{conn: conn, repos: repos, now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (f fixture) user(t *testing.T) *domain.User {
	t.Helper()
	email, err := domain.NewEmail(uuid.NewString()[:8] + "@example.com")
	require.NoError(t, err)
	u, err := domain.NewUser(email, "Test User", f.now)
	require.NoError(t, err)
	require.NoError(t, f.repos.Users.Insert(context.Background(), u))
	return u
}

func (f fixture) household(t *testing.T, name string) *domain.Household {
	t.Helper()
	h, err := domain.NewHousehold(name, f.now)
	require.NoError(t, err)
	require.NoError(t, f.repos.Households.Insert(context.Background(), h))
	return h
}

func (f fixture) membership(t *testing.T, userID, householdID uuid.UUID, at time.Time) *domain.Membership {
	t.Helper()
	m, err := domain.NewMembership(domain.NewMembershipParams{
		UserID:      userID,
		HouseholdID: householdID,
		Type:        domain.TypeFamilyWorkspace,
		Role:        domain.RoleParent,
	}, at)
	require.NoError(t, err)
	require.NoError(t, f.repos.Memberships.Insert(context.Background(), m))
	return m
}

func TestRepositories_SQLite(t *testing.T) {
	runRepositoryContract(t, openSQLite)
}

func TestRepositories_Postgres(t *testing.T) {
	runRepositoryContract(t, openPostgres)
}

func runRepositoryContract(t *testing.T, open func(t *testing.T) fixture) {
	t.Run("membership round trip", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		u, h := f.user(t), f.household(t, "Round Trip")
		org := uuid.New()
		amount := int64(1299)
		next := f.now.AddDate(0, 1, 0)

		m, err := domain.NewMembership(domain.NewMembershipParams{
			UserID:         u.ID(),
			HouseholdID:    h.ID(),
			Type:           domain.TypeFlatShare,
			Role:           domain.RoleFlatmate,
			OrganisationID: &org,
			Billing: domain.Billing{
				Cycle:           "monthly",
				NextBillingDate: &next,
				AmountMinor:     &amount,
				PaymentStatus:   "paid",
			},
		}, f.now)
		require.NoError(t, err)
		require.NoError(t, f.repos.Memberships.Insert(ctx, m))

		got, err := f.repos.Memberships.FindByID(ctx, m.ID())
		require.NoError(t, err)
		want, have := m.ToRecord(), got.ToRecord()
		assert.True(t, want.StartDate.Equal(have.StartDate))
		assert.True(t, want.Billing.NextBillingDate.Equal(*have.Billing.NextBillingDate))
		want.StartDate, want.CreatedAt, want.UpdatedAt, want.Billing.NextBillingDate = time.Time{}, time.Time{}, time.Time{}, nil
		have.StartDate, have.CreatedAt, have.UpdatedAt, have.Billing.NextBillingDate = time.Time{}, time.Time{}, time.Time{}, nil
		assert.Equal(t, want, have)

		byPair, err := f.repos.Memberships.FindByUserAndHousehold(ctx, u.ID(), h.ID())
		require.NoError(t, err)
		assert.Equal(t, m.ID(), byPair.ID())

		_, err = f.repos.Memberships.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
	})

	t.Run("duplicate pair maps to ErrDuplicateMembership", func(t *testing.T) {
		f := open(t)
		u, h := f.user(t), f.household(t, "Dup")
		f.membership(t, u.ID(), h.ID(), f.now)

		again, err := domain.NewMembership(domain.NewMembershipParams{
			UserID: u.ID(), HouseholdID: h.ID(), Type: domain.TypeSoloPlan, Role: domain.RoleAdmin,
		}, f.now)
		require.NoError(t, err)
		err = f.repos.Memberships.Insert(context.Background(), again)
		assert.ErrorIs(t, err, domain.ErrDuplicateMembership)
	})

	t.Run("second primary maps to ErrConcurrentAssignmentConflict", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		u := f.user(t)
		first := f.membership(t, u.ID(), f.household(t, "A").ID(), f.now)
		second := f.membership(t, u.ID(), f.household(t, "B").ID(), f.now.Add(time.Second))

		require.NoError(t, first.MarkPrimary(f.now))
		require.NoError(t, f.repos.Memberships.Update(ctx, first))
		require.NoError(t, second.MarkPrimary(f.now))

		err := f.repos.Memberships.Update(ctx, second)
		assert.ErrorIs(t, err, domain.ErrConcurrentAssignmentConflict)

		primary, err := f.repos.Memberships.FindPrimaryByUser(ctx, u.ID())
		require.NoError(t, err)
		assert.Equal(t, first.ID(), primary.ID())
	})

	t.Run("clear primary except", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		u := f.user(t)
		first := f.membership(t, u.ID(), f.household(t, "A").ID(), f.now)
		second := f.membership(t, u.ID(), f.household(t, "B").ID(), f.now.Add(time.Second))
		require.NoError(t, first.MarkPrimary(f.now))
		require.NoError(t, f.repos.Memberships.Update(ctx, first))

		n, err := f.repos.Memberships.ClearPrimaryExcept(ctx, u.ID(), first.ID(), f.now)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = f.repos.Memberships.ClearPrimaryExcept(ctx, u.ID(), second.ID(), f.now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = f.repos.Memberships.FindPrimaryByUser(ctx, u.ID())
		assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
	})

	t.Run("latest active prefers newest creation", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		u := f.user(t)
		older := f.membership(t, u.ID(), f.household(t, "Older").ID(), f.now)
		newest := f.membership(t, u.ID(), f.household(t, "Newest").ID(), f.now.Add(time.Hour))
		f.membership(t, u.ID(), f.household(t, "Middle").ID(), f.now.Add(time.Minute))

		latest, err := f.repos.Memberships.FindLatestActiveByUser(ctx, u.ID())
		require.NoError(t, err)
		assert.Equal(t, newest.ID(), latest.ID())

		_, err = newest.Deactivate(domain.StatusExpired, f.now.Add(2*time.Hour))
		require.NoError(t, err)
		require.NoError(t, f.repos.Memberships.Update(ctx, newest))

		latest, err = f.repos.Memberships.FindLatestActiveByUser(ctx, u.ID())
		require.NoError(t, err)
		assert.NotEqual(t, older.ID(), latest.ID())
		assert.NotEqual(t, newest.ID(), latest.ID())
	})

	t.Run("latest active breaks timestamp ties by insertion order", func(t *testing.T) {
		f := open(t)
		u := f.user(t)
		f.membership(t, u.ID(), f.household(t, "First").ID(), f.now)
		second := f.membership(t, u.ID(), f.household(t, "Second").ID(), f.now)

		latest, err := f.repos.Memberships.FindLatestActiveByUser(context.Background(), u.ID())
		require.NoError(t, err)
		assert.Equal(t, second.ID(), latest.ID())
	})

	t.Run("listings", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		h := f.household(t, "Shared")
		alice, bob := f.user(t), f.user(t)
		a := f.membership(t, alice.ID(), h.ID(), f.now)
		b := f.membership(t, bob.ID(), h.ID(), f.now.Add(time.Minute))
		f.membership(t, alice.ID(), f.household(t, "Other").ID(), f.now.Add(2*time.Minute))
		_, err := b.Deactivate(domain.StatusCancelled, f.now.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, f.repos.Memberships.Update(ctx, b))

		all, err := f.repos.Memberships.ListByHousehold(ctx, h.ID(), domain.MembershipFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, a.ID(), all[0].ID())

		active, err := f.repos.Memberships.ListByHousehold(ctx, h.ID(), domain.MembershipFilter{Statuses: []domain.Status{domain.StatusActive}})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, a.ID(), active[0].ID())

		ended, err := f.repos.Memberships.ListByHousehold(ctx, h.ID(), domain.MembershipFilter{Statuses: []domain.Status{domain.StatusCancelled, domain.StatusExpired}})
		require.NoError(t, err)
		require.Len(t, ended, 1)
		require.NotNil(t, ended[0].EndedAt())

		mine, err := f.repos.Memberships.ListByUser(ctx, alice.ID())
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		households, err := f.repos.Households.ListForUser(ctx, alice.ID())
		require.NoError(t, err)
		require.Len(t, households, 2)
		assert.Equal(t, "Shared", households[0].Name())
	})

	t.Run("lock by user inside a transaction", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		u := f.user(t)
		f.membership(t, u.ID(), f.household(t, "A").ID(), f.now)
		f.membership(t, u.ID(), f.household(t, "B").ID(), f.now.Add(time.Second))

		uow := database.NewUnitOfWork(f.conn)
		txCtx, err := uow.Begin(ctx)
		require.NoError(t, err)
		locked, err := f.repos.Memberships.LockByUser(txCtx, u.ID())
		require.NoError(t, err)
		assert.Len(t, locked, 2)
		require.NoError(t, uow.Commit(txCtx))
	})

	t.Run("users", func(t *testing.T) {
		f := open(t)
		ctx := context.Background()
		u := f.user(t)
		h := f.household(t, "Home")

		found, err := f.repos.Users.FindByEmail(ctx, u.Email())
		require.NoError(t, err)
		assert.Equal(t, u.ID(), found.ID())
		assert.True(t, found.Scope().IsEmpty())

		householdID := h.ID()
		u.ApplyScope(domain.Scope{HouseholdID: &householdID, Role: domain.RoleAdmin}, f.now.Add(time.Minute))
		require.NoError(t, f.repos.Users.UpdateScope(ctx, u))

		found, err = f.repos.Users.FindByID(ctx, u.ID())
		require.NoError(t, err)
		assert.Equal(t, &householdID, found.HouseholdID())
		assert.Equal(t, domain.RoleAdmin, found.Role())

		dup, err := domain.NewUser(u.Email(), "Someone Else", f.now)
		require.NoError(t, err)
		assert.ErrorIs(t, f.repos.Users.Insert(ctx, dup), domain.ErrEmailTaken)

		_, err = f.repos.Users.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
		_, err = f.repos.Households.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrHouseholdNotFound)
	})
}
