package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// SetPrimary makes the membership its user's primary one, clears every
// other primary of the user and mirrors the result onto the user. Calling
// it on the current primary changes no membership but still re-syncs the
// user.
func (s *Service) SetPrimary(ctx context.Context, membershipID uuid.UUID) (*domain.Membership, error) {
	var result *domain.Membership
	err := s.observe(ctx, "set_primary", func(ctx context.Context) error {
		err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			m, err := s.memberships.FindByID(txCtx, membershipID)
			if err != nil {
				return err
			}
			if !m.IsActive() {
				return fmt.Errorf("%w: %s is %s", domain.ErrMembershipNotActive, m.ID(), m.Status())
			}
			result, err = s.promote(txCtx, m.UserID(), m.ID())
			return err
		})
		if err != nil {
			return err
		}
		s.invalidate(ctx, result.UserID())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Resync rebuilds the user's household and role from the current primary
// membership.
func (s *Service) Resync(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var result *domain.User
	ctx = observability.WithUserID(ctx, userID)
	err := s.observe(ctx, "resync", func(ctx context.Context) error {
		err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			// Serialize with concurrent assignments for the same user.
			if _, err := s.memberships.LockByUser(txCtx, userID); err != nil {
				return err
			}
			u, err := s.sync.Resync(txCtx, userID)
			if err != nil {
				return err
			}
			result = u
			return s.emit(txCtx, u)
		})
		if err != nil {
			return err
		}
		s.invalidate(ctx, userID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// promote runs the primary switch inside the caller's transaction. The
// user's memberships are locked first; the target is re-read from the
// locked set so the active check holds for the rest of the transaction.
func (s *Service) promote(ctx context.Context, userID, membershipID uuid.UUID) (*domain.Membership, error) {
	locked, err := s.memberships.LockByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	target := findMembership(locked, membershipID)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMembershipNotFound, membershipID)
	}

	now := s.clock.Now()
	switched := !target.IsPrimary()
	if err := target.MarkPrimary(now); err != nil {
		return nil, err
	}

	sources := make([]eventSource, 0, len(locked)+1)
	for _, m := range locked {
		if m != target && m.ClearPrimary(now) {
			sources = append(sources, m)
		}
	}

	// Clear before set so the primary index holds after every statement.
	if _, err := s.memberships.ClearPrimaryExcept(ctx, userID, target.ID(), now); err != nil {
		return nil, err
	}
	if err := s.memberships.Update(ctx, target); err != nil {
		return nil, err
	}

	user, err := s.sync.Apply(ctx, target)
	if err != nil {
		return nil, err
	}
	sources = append(sources, target, user)
	if err := s.emit(ctx, sources...); err != nil {
		return nil, err
	}

	if switched {
		s.metrics.Counter(observability.MetricPrimarySwitches, 1)
		s.logger.InfoContext(ctx, "primary membership set",
			observability.UserIDKey, userID,
			observability.MembershipIDKey, target.ID(),
			observability.HouseholdIDKey, target.HouseholdID(),
		)
	}
	return target, nil
}
