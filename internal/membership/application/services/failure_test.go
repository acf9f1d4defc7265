package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hearth/internal/membership/application/services"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

type txMarker struct{}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func activeMembership(t *testing.T) *domain.Membership {
	t.Helper()
	m, err := domain.NewMembership(domain.NewMembershipParams{
		UserID:      uuid.New(),
		HouseholdID: uuid.New(),
		Type:        domain.TypeSoloPlan,
		Role:        domain.RoleAdmin,
	}, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	m.ClearDomainEvents()
	return m
}

func TestSetPrimary_StoreConflictRollsBack(t *testing.T) {
	m := activeMembership(t)
	txCtx := context.WithValue(context.Background(), txMarker{}, "tx")

	uow := new(mockUnitOfWork)
	uow.On("Begin", mock.Anything).Return(txCtx, nil)
	uow.On("Rollback", mock.Anything).Return(nil)

	repo := new(mockMembershipRepo)
	repo.On("FindByID", txCtx, m.ID()).Return(m, nil)
	repo.On("LockByUser", txCtx, m.UserID()).Return([]*domain.Membership{m}, nil)
	repo.On("ClearPrimaryExcept", txCtx, m.UserID(), m.ID(), mock.Anything).Return(int64(0), nil)
	repo.On("Update", txCtx, m).Return(fmt.Errorf("update membership %s: %w", m.ID(), domain.ErrConcurrentAssignmentConflict))

	metrics := observability.NewInMemoryMetrics()
	svc := services.New(services.Deps{Memberships: repo, UnitOfWork: uow, Metrics: metrics, Logger: discardLogger})

	_, err := svc.SetPrimary(context.Background(), m.ID())

	require.ErrorIs(t, err, domain.ErrConcurrentAssignmentConflict)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricAssignmentConflicts,
		observability.T(observability.OperationKey, "set_primary")))
	uow.AssertCalled(t, "Rollback", mock.Anything)
	uow.AssertNotCalled(t, "Commit", mock.Anything)
	repo.AssertExpectations(t)
}

func TestDeactivate_SinkFailureRollsBack(t *testing.T) {
	m := activeMembership(t)
	txCtx := context.WithValue(context.Background(), txMarker{}, "tx")

	uow := new(mockUnitOfWork)
	uow.On("Begin", mock.Anything).Return(txCtx, nil)
	uow.On("Rollback", mock.Anything).Return(nil)

	repo := new(mockMembershipRepo)
	repo.On("FindByID", txCtx, m.ID()).Return(m, nil)
	repo.On("LockByUser", txCtx, m.UserID()).Return([]*domain.Membership{m}, nil)
	repo.On("Update", txCtx, m).Return(nil)

	sink := new(mockEventSink)
	sinkErr := errors.New("outbox unavailable")
	sink.On("Append", txCtx, mock.Anything).Return(sinkErr)

	svc := services.New(services.Deps{Memberships: repo, UnitOfWork: uow, Events: sink, Logger: discardLogger})

	_, err := svc.Deactivate(context.Background(), m.ID(), domain.StatusCancelled)

	require.ErrorIs(t, err, sinkErr)
	assert.False(t, domain.IsCallerError(err))
	uow.AssertNotCalled(t, "Commit", mock.Anything)
	repo.AssertNotCalled(t, "FindLatestActiveByUser", mock.Anything, mock.Anything)
	sink.AssertExpectations(t)
}

func TestSetPrimary_BeginFailureTouchesNothing(t *testing.T) {
	uow := new(mockUnitOfWork)
	beginErr := errors.New("database is locked")
	uow.On("Begin", mock.Anything).Return(nil, beginErr)
	repo := new(mockMembershipRepo)

	svc := services.New(services.Deps{Memberships: repo, UnitOfWork: uow, Logger: discardLogger})

	_, err := svc.SetPrimary(context.Background(), uuid.New())

	require.ErrorIs(t, err, beginErr)
	repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

// failingSink rejects any batch carrying the given routing key.
type failingSink struct {
	next   sharedApplication.EventSink
	failOn string
	err    error
}

func (s failingSink) Append(ctx context.Context, events ...sharedDomain.DomainEvent) error {
	for _, e := range events {
		if e.RoutingKey() == s.failOn {
			return s.err
		}
	}
	return s.next.Append(ctx, events...)
}

func TestCreate_LateFailureRollsBackInsert(t *testing.T) {
	h := newHarness(t, time.Second)
	u := h.user(t)
	home := h.household(t, "Home")
	before := h.routingKeys(t)

	deps := h.deps
	sinkErr := errors.New("outbox full")
	deps.Events = failingSink{next: outbox.NewSink(h.outbox), failOn: domain.RoutingKeyUserScopeSynced, err: sinkErr}
	svc := services.New(deps)

	_, err := svc.Create(context.Background(), services.CreateMembershipInput{
		UserID:      u.ID(),
		HouseholdID: home.ID(),
		Type:        domain.TypeFamilyWorkspace,
		Role:        domain.RoleAdmin,
		IsPrimary:   true,
	})

	require.ErrorIs(t, err, sinkErr)
	all, err := h.repos.Memberships.ListByUser(context.Background(), u.ID())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Nil(t, h.reloadUser(t, u.ID()).HouseholdID())
	assert.Equal(t, before, h.routingKeys(t))
}

func TestDeactivate_LateFailureKeepsPrimary(t *testing.T) {
	h := newHarness(t, time.Second)
	u := h.user(t)
	homeHousehold := h.household(t, "Home")
	m := h.create(t, u, homeHousehold, domain.RoleAdmin, true)

	deps := h.deps
	sinkErr := errors.New("outbox full")
	deps.Events = failingSink{next: outbox.NewSink(h.outbox), failOn: domain.RoutingKeyUserScopeCleared, err: sinkErr}
	svc := services.New(deps)

	_, err := svc.Deactivate(context.Background(), m.ID(), domain.StatusExpired)

	require.ErrorIs(t, err, sinkErr)
	stored := h.membership(t, m.ID())
	assert.Equal(t, domain.StatusActive, stored.Status())
	assert.True(t, stored.IsPrimary())
	assert.Nil(t, stored.EndedAt())
	reloaded := h.reloadUser(t, u.ID())
	require.NotNil(t, reloaded.HouseholdID())
	assert.Equal(t, homeHousehold.ID(), *reloaded.HouseholdID())
	h.assertConsistent(t, u.ID())
}

// cancellingSink cancels the request once the given routing key has been
// written, leaving the rest of the operation to run on a cancelled context.
type cancellingSink struct {
	next   sharedApplication.EventSink
	on     string
	cancel context.CancelFunc
}

func (s cancellingSink) Append(ctx context.Context, events ...sharedDomain.DomainEvent) error {
	if err := s.next.Append(ctx, events...); err != nil {
		return err
	}
	for _, e := range events {
		if e.RoutingKey() == s.on {
			s.cancel()
		}
	}
	return nil
}

func TestCreate_CancelledBeforeCommitRollsBack(t *testing.T) {
	h := newHarness(t, time.Second)
	u := h.user(t)
	home := h.household(t, "Home")
	before := h.routingKeys(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deps := h.deps
	deps.Events = cancellingSink{next: outbox.NewSink(h.outbox), on: domain.RoutingKeyUserScopeSynced, cancel: cancel}
	svc := services.New(deps)

	_, err := svc.Create(ctx, services.CreateMembershipInput{
		UserID:      u.ID(),
		HouseholdID: home.ID(),
		Type:        domain.TypeFamilyWorkspace,
		Role:        domain.RoleAdmin,
		IsPrimary:   true,
	})

	require.ErrorIs(t, err, context.Canceled)
	all, err := h.repos.Memberships.ListByUser(context.Background(), u.ID())
	require.NoError(t, err)
	assert.Empty(t, all)
	reloaded := h.reloadUser(t, u.ID())
	assert.Nil(t, reloaded.HouseholdID())
	assert.Equal(t, domain.RoleObserver, reloaded.Role())
	assert.Equal(t, before, h.routingKeys(t))
	assert.Empty(t, h.cache.invalidated())
}

func TestRetryOnConflict(t *testing.T) {
	policy := sharedApplication.RetryPolicy{Attempts: 3, Base: time.Millisecond}

	t.Run("retries conflicts until success", func(t *testing.T) {
		calls := 0
		err := services.RetryOnConflict(context.Background(), policy, func(context.Context) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("set primary: %w", domain.ErrConcurrentAssignmentConflict)
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns caller errors at once", func(t *testing.T) {
		calls := 0
		err := services.RetryOnConflict(context.Background(), policy, func(context.Context) error {
			calls++
			return domain.ErrMembershipNotActive
		})

		require.ErrorIs(t, err, domain.ErrMembershipNotActive)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after the policy's attempts", func(t *testing.T) {
		calls := 0
		err := services.RetryOnConflict(context.Background(), policy, func(context.Context) error {
			calls++
			return domain.ErrConcurrentAssignmentConflict
		})

		require.ErrorIs(t, err, domain.ErrConcurrentAssignmentConflict)
		assert.Equal(t, 4, calls)
	})
}
