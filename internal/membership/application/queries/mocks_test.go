package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

// mockUserRepo is a mock implementation of domain.UserRepository.
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Insert(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) UpdateScope(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

// mockHouseholdRepo is a mock implementation of domain.HouseholdRepository.
type mockHouseholdRepo struct {
	mock.Mock
}

func (m *mockHouseholdRepo) Insert(ctx context.Context, h *domain.Household) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *mockHouseholdRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Household, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Household), args.Error(1)
}

func (m *mockHouseholdRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Household, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Household), args.Error(1)
}

// mockMembershipRepo is a mock implementation of the read methods of
// domain.MembershipRepository. Write methods are not expected by queries.
type mockMembershipRepo struct {
	mock.Mock
	domain.MembershipRepository
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

// mockScopeCache is a mock implementation of ScopeCache.
type mockScopeCache struct {
	mock.Mock
}

func (m *mockScopeCache) Get(ctx context.Context, userID uuid.UUID) (UserScope, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(UserScope), args.Bool(1), args.Error(2)
}

func (m *mockScopeCache) Version(ctx context.Context, userID uuid.UUID) (uint64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockScopeCache) SetIfVersion(ctx context.Context, scope UserScope, version uint64) (bool, error) {
	args := m.Called(ctx, scope, version)
	return args.Bool(0), args.Error(1)
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testUser(scope domain.Scope) *domain.User {
	email, _ := domain.NewEmail("member@example.com")
	return domain.RehydrateUser(uuid.New(), email, "Member", scope, t0, t0)
}

func storedMembership(userID, householdID uuid.UUID, primary bool) *domain.Membership {
	m, err := domain.RehydrateMembership(domain.MembershipRecord{
		ID:          uuid.New(),
		UserID:      userID,
		HouseholdID: householdID,
		Type:        string(domain.TypeFamilyWorkspace),
		Role:        string(domain.RoleParent),
		Status:      string(domain.StatusActive),
		IsPrimary:   primary,
		StartDate:   t0,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	})
	if err != nil {
		panic(err)
	}
	return m
}
