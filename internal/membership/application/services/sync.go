package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
)

// Sync writes the household and role of a user's primary membership onto
// the user record. It runs in the caller's transaction and never opens one.
type Sync struct {
	users       domain.UserRepository
	memberships domain.MembershipRepository
	clock       sharedDomain.Clock
}

// NewSync creates a Sync.
func NewSync(users domain.UserRepository, memberships domain.MembershipRepository, clock sharedDomain.Clock) *Sync {
	if clock == nil {
		clock = sharedDomain.SystemClock
	}
	return &Sync{users: users, memberships: memberships, clock: clock}
}

// Apply mirrors primary membership m onto its user. The user row is written
// even when the mirror already matches.
func (s *Sync) Apply(ctx context.Context, m *domain.Membership) (*domain.User, error) {
	return s.write(ctx, m.UserID(), domain.ScopeOf(m))
}

// Clear removes the household from the user and resets the role to the
// default.
func (s *Sync) Clear(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.write(ctx, userID, domain.NoScope())
}

// Resync rebuilds the mirror from the user's current primary membership,
// or clears it when there is none.
func (s *Sync) Resync(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	primary, err := s.memberships.FindPrimaryByUser(ctx, userID)
	switch {
	case err == nil:
		return s.Apply(ctx, primary)
	case errors.Is(err, domain.ErrMembershipNotFound):
		return s.Clear(ctx, userID)
	default:
		return nil, err
	}
}

func (s *Sync) write(ctx context.Context, userID uuid.UUID, scope domain.Scope) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.ApplyScope(scope, s.clock.Now())
	if err := s.users.UpdateScope(ctx, u); err != nil {
		return nil, fmt.Errorf("sync user %s: %w", userID, err)
	}
	return u, nil
}
