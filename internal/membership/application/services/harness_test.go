package services_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hearth/internal/membership/application/services"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/membership/infrastructure/persistence"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// stepClock advances by step on every reading so creation order is visible
// in timestamps. A zero step freezes time.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type recordingCache struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (c *recordingCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userIDs...)
	return nil
}

func (c *recordingCache) invalidated() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uuid.UUID(nil), c.users...)
}

type harness struct {
	conn    database.Connection
	repos   persistence.Repositories
	outbox  *outbox.SQLiteRepository
	cache   *recordingCache
	metrics *observability.InMemoryMetrics
	clock   *stepClock
	deps    services.Deps
	svc     *services.Service
}

func newHarness(t *testing.T, step time.Duration) *harness {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "hearth.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = migrations.Up(ctx, conn, "")
	require.NoError(t, err)

	repos, err := persistence.NewRepositories(conn)
	require.NoError(t, err)

	h := &harness{
		conn:    conn,
		repos:   repos,
		outbox:  outbox.NewSQLiteRepository(conn),
		cache:   &recordingCache{},
		metrics: observability.NewInMemoryMetrics(),
		clock:   &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), step: step},
	}
	h.deps = services.Deps{
		Memberships: repos.Memberships,
		Users:       repos.Users,
		Households:  repos.Households,
		UnitOfWork:  database.NewUnitOfWork(conn),
		Events:      outbox.NewSink(h.outbox),
		Cache:       h.cache,
		Clock:       h.clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:     h.metrics,
	}
	h.svc = services.New(h.deps)
	return h
}

func (h *harness) user(t *testing.T) *domain.User {
	t.Helper()
	u, err := h.svc.RegisterUser(context.Background(), uuid.NewString()[:8]+"@example.com", "Member")
	require.NoError(t, err)
	return u
}

func (h *harness) household(t *testing.T, name string) *domain.Household {
	t.Helper()
	hh, err := h.svc.CreateHousehold(context.Background(), name)
	require.NoError(t, err)
	return hh
}

func (h *harness) create(t *testing.T, u *domain.User, hh *domain.Household, role domain.Role, primary bool) *domain.Membership {
	t.Helper()
	m, err := h.svc.Create(context.Background(), services.CreateMembershipInput{
		UserID:      u.ID(),
		HouseholdID: hh.ID(),
		Type:        domain.TypeFamilyWorkspace,
		Role:        role,
		IsPrimary:   primary,
	})
	require.NoError(t, err)
	return m
}

func (h *harness) membership(t *testing.T, id uuid.UUID) *domain.Membership {
	t.Helper()
	m, err := h.repos.Memberships.FindByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (h *harness) reloadUser(t *testing.T, id uuid.UUID) *domain.User {
	t.Helper()
	u, err := h.repos.Users.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (h *harness) routingKeys(t *testing.T) []string {
	t.Helper()
	msgs, err := h.outbox.Pending(context.Background(), time.Now().Add(24*time.Hour), 1000)
	require.NoError(t, err)
	keys := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		keys = append(keys, msg.RoutingKey)
	}
	return keys
}

// assertConsistent checks that the user has at most one primary membership,
// that it is active, and that the user's household and role mirror it.
func (h *harness) assertConsistent(t *testing.T, userID uuid.UUID) {
	t.Helper()
	all, err := h.repos.Memberships.ListByUser(context.Background(), userID)
	require.NoError(t, err)

	var primaries []*domain.Membership
	for _, m := range all {
		if m.IsPrimary() {
			primaries = append(primaries, m)
		}
	}
	require.LessOrEqual(t, len(primaries), 1, "user %s has %d primary memberships", userID, len(primaries))

	u := h.reloadUser(t, userID)
	if len(primaries) == 0 {
		assert.True(t, u.Scope().Equal(domain.NoScope()), "user without primary keeps scope %+v", u.Scope())
		return
	}
	assert.Equal(t, domain.StatusActive, primaries[0].Status())
	assert.True(t, u.Scope().Equal(domain.ScopeOf(primaries[0])), "user scope %+v does not mirror primary", u.Scope())
}
