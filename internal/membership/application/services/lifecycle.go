package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// CreateMembershipInput contains the data needed to create a membership.
type CreateMembershipInput struct {
	UserID         uuid.UUID
	HouseholdID    uuid.UUID
	Type           domain.MembershipType
	Role           domain.Role // DefaultRole when empty
	IsPrimary      bool
	OrganisationID *uuid.UUID
	Billing        domain.Billing
}

// Create adds an active membership. With IsPrimary set the new membership
// also becomes the user's primary one in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateMembershipInput) (*domain.Membership, error) {
	var result *domain.Membership
	err := s.observe(ctx, "create", func(ctx context.Context) error {
		if in.Role == "" {
			in.Role = domain.DefaultRole
		}
		var err error
		if in.Type, err = domain.ParseMembershipType(string(in.Type)); err != nil {
			return err
		}
		if in.Role, err = domain.ParseRole(string(in.Role)); err != nil {
			return err
		}

		err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			m, err := s.create(txCtx, in)
			result = m
			return err
		})
		if err != nil {
			return err
		}
		if in.IsPrimary {
			s.invalidate(ctx, in.UserID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) create(ctx context.Context, in CreateMembershipInput) (*domain.Membership, error) {
	if _, err := s.users.FindByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	if _, err := s.households.FindByID(ctx, in.HouseholdID); err != nil {
		return nil, err
	}

	_, err := s.memberships.FindByUserAndHousehold(ctx, in.UserID, in.HouseholdID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: user %s in household %s", domain.ErrDuplicateMembership, in.UserID, in.HouseholdID)
	case !errors.Is(err, domain.ErrMembershipNotFound):
		return nil, err
	}

	m, err := domain.NewMembership(domain.NewMembershipParams{
		UserID:         in.UserID,
		HouseholdID:    in.HouseholdID,
		Type:           in.Type,
		Role:           in.Role,
		OrganisationID: in.OrganisationID,
		Billing:        in.Billing,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}

	// Inserted as non-primary and promoted afterwards.
	if err := s.memberships.Insert(ctx, m); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, m); err != nil {
		return nil, err
	}

	s.metrics.Counter(observability.MetricMembershipsCreated, 1, observability.T("type", string(m.Type())))
	s.logger.InfoContext(ctx, "membership created",
		observability.UserIDKey, m.UserID(),
		observability.HouseholdIDKey, m.HouseholdID(),
		observability.MembershipIDKey, m.ID(),
	)

	if !in.IsPrimary {
		return m, nil
	}
	return s.promote(ctx, m.UserID(), m.ID())
}

// Deactivate ends a membership with a cancelled, expired or inactive
// status. When it was the user's primary one, the most recently created
// remaining active membership is promoted; without one the user's household
// is cleared and the role reset.
func (s *Service) Deactivate(ctx context.Context, membershipID uuid.UUID, status domain.Status) (*domain.Membership, error) {
	var result *domain.Membership
	err := s.observe(ctx, "deactivate", func(ctx context.Context) error {
		if !status.IsDeactivation() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidDeactivationStatus, status)
		}

		var wasPrimary bool
		err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			var err error
			result, wasPrimary, err = s.deactivate(txCtx, membershipID, status)
			return err
		})
		if err != nil {
			return err
		}
		if wasPrimary {
			s.invalidate(ctx, result.UserID())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) deactivate(ctx context.Context, membershipID uuid.UUID, status domain.Status) (*domain.Membership, bool, error) {
	m, err := s.memberships.FindByID(ctx, membershipID)
	if err != nil {
		return nil, false, err
	}
	userID := m.UserID()

	locked, err := s.memberships.LockByUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	target := findMembership(locked, membershipID)
	if target == nil {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrMembershipNotFound, membershipID)
	}

	wasPrimary, err := target.Deactivate(status, s.clock.Now())
	if err != nil {
		return nil, false, err
	}
	if err := s.memberships.Update(ctx, target); err != nil {
		return nil, false, err
	}
	if err := s.emit(ctx, target); err != nil {
		return nil, false, err
	}

	s.metrics.Counter(observability.MetricMembershipsDeactivated, 1, observability.T(observability.StatusKey, string(status)))
	s.logger.InfoContext(ctx, "membership deactivated",
		observability.UserIDKey, userID,
		observability.MembershipIDKey, target.ID(),
		observability.StatusKey, status,
		"was_primary", wasPrimary,
	)

	if !wasPrimary {
		return target, false, nil
	}

	next, err := s.memberships.FindLatestActiveByUser(ctx, userID)
	switch {
	case err == nil:
		if _, err := s.promote(ctx, userID, next.ID()); err != nil {
			return nil, false, err
		}
		s.metrics.Counter(observability.MetricPrimaryFallbacks, 1)
	case errors.Is(err, domain.ErrMembershipNotFound):
		u, err := s.sync.Clear(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		if err := s.emit(ctx, u); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, err
	}
	return target, true, nil
}

// ChangeRole updates the role of an active membership. When the membership
// is primary the user's role mirror follows in the same transaction.
func (s *Service) ChangeRole(ctx context.Context, membershipID uuid.UUID, role domain.Role) (*domain.Membership, error) {
	var result *domain.Membership
	err := s.observe(ctx, "change_role", func(ctx context.Context) error {
		var err error
		if role, err = domain.ParseRole(string(role)); err != nil {
			return err
		}

		err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			m, err := s.memberships.FindByID(txCtx, membershipID)
			if err != nil {
				return err
			}
			locked, err := s.memberships.LockByUser(txCtx, m.UserID())
			if err != nil {
				return err
			}
			target := findMembership(locked, membershipID)
			if target == nil {
				return fmt.Errorf("%w: %s", domain.ErrMembershipNotFound, membershipID)
			}

			if err := target.ChangeRole(role, s.clock.Now()); err != nil {
				return err
			}
			if err := s.memberships.Update(txCtx, target); err != nil {
				return err
			}
			sources := []eventSource{target}
			if target.IsPrimary() {
				u, err := s.sync.Apply(txCtx, target)
				if err != nil {
					return err
				}
				sources = append(sources, u)
			}
			result = target
			return s.emit(txCtx, sources...)
		})
		if err != nil {
			return err
		}
		if result.IsPrimary() {
			s.invalidate(ctx, result.UserID())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
