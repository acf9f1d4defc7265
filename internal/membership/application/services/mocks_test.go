package services_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
)

// mockUnitOfWork is a mock implementation of UnitOfWork.
type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// mockMembershipRepo is a mock implementation of domain.MembershipRepository.
type mockMembershipRepo struct {
	mock.Mock
}

func (m *mockMembershipRepo) Insert(ctx context.Context, membership *domain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *mockMembershipRepo) Update(ctx context.Context, membership *domain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *mockMembershipRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) FindByUserAndHousehold(ctx context.Context, userID, householdID uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, userID, householdID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) ClearPrimaryExcept(ctx context.Context, userID, keepID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, keepID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMembershipRepo) FindLatestActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) FindPrimaryByUser(ctx context.Context, userID uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) ListByHousehold(ctx context.Context, householdID uuid.UUID, filter domain.MembershipFilter) ([]*domain.Membership, error) {
	args := m.Called(ctx, householdID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

// mockEventSink is a mock implementation of application.EventSink.
type mockEventSink struct {
	mock.Mock
}

func (m *mockEventSink) Append(ctx context.Context, events ...sharedDomain.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
