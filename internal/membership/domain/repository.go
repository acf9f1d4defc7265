package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MembershipFilter narrows household listings. An empty filter matches all.
type MembershipFilter struct {
	Statuses []Status
}

// Matches reports whether status passes the filter.
func (f MembershipFilter) Matches(status Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// MembershipRepository persists memberships. Implementations run every
// statement in the transaction carried by ctx, when there is one.
type MembershipRepository interface {
	// Insert stores a new membership. ErrDuplicateMembership is returned
	// when the user already has a membership in the household.
	Insert(ctx context.Context, m *Membership) error
	// Update writes the mutable fields. A write that would give the user a
	// second primary membership returns ErrConcurrentAssignmentConflict.
	Update(ctx context.Context, m *Membership) error
	FindByID(ctx context.Context, id uuid.UUID) (*Membership, error)
	FindByUserAndHousehold(ctx context.Context, userID, householdID uuid.UUID) (*Membership, error)
	// LockByUser loads every membership of the user and holds row locks on
	// them until the transaction ends.
	LockByUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	// ClearPrimaryExcept unsets the primary flag on the user's memberships
	// other than keepID and returns how many rows changed.
	ClearPrimaryExcept(ctx context.Context, userID, keepID uuid.UUID, at time.Time) (int64, error)
	// FindLatestActiveByUser returns the most recently created active
	// membership. Creation order breaks ties between equal timestamps.
	// Lookups return ErrMembershipNotFound when nothing matches.
	FindLatestActiveByUser(ctx context.Context, userID uuid.UUID) (*Membership, error)
	FindPrimaryByUser(ctx context.Context, userID uuid.UUID) (*Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	ListByHousehold(ctx context.Context, householdID uuid.UUID, filter MembershipFilter) ([]*Membership, error)
}

// UserRepository persists users.
type UserRepository interface {
	Insert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email Email) (*User, error)
	// UpdateScope writes the mirrored household and role.
	UpdateScope(ctx context.Context, u *User) error
}

// HouseholdRepository persists households.
type HouseholdRepository interface {
	Insert(ctx context.Context, h *Household) error
	FindByID(ctx context.Context, id uuid.UUID) (*Household, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Household, error)
}
