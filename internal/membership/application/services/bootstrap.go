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

// RegisterUser creates a user without a household.
func (s *Service) RegisterUser(ctx context.Context, email, name string) (*domain.User, error) {
	var result *domain.User
	err := s.observe(ctx, "register_user", func(ctx context.Context) error {
		addr, err := domain.NewEmail(email)
		if err != nil {
			return err
		}
		u, err := domain.NewUser(addr, name, s.clock.Now())
		if err != nil {
			return err
		}

		return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			_, err := s.users.FindByEmail(txCtx, addr)
			switch {
			case err == nil:
				return fmt.Errorf("%w: %s", domain.ErrEmailTaken, addr)
			case !errors.Is(err, domain.ErrUserNotFound):
				return err
			}
			if err := s.users.Insert(txCtx, u); err != nil {
				return err
			}
			result = u
			return s.emit(txCtx, u)
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateHousehold creates a household with no members.
func (s *Service) CreateHousehold(ctx context.Context, name string) (*domain.Household, error) {
	var result *domain.Household
	err := s.observe(ctx, "create_household", func(ctx context.Context) error {
		return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			h, err := s.createHousehold(txCtx, name)
			result = h
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) createHousehold(ctx context.Context, name string) (*domain.Household, error) {
	h, err := domain.NewHousehold(name, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.households.Insert(ctx, h); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, h); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "household created", observability.HouseholdIDKey, h.ID())
	return h, nil
}

// BootstrapInput contains the data needed to open a household for its owner.
type BootstrapInput struct {
	OwnerID uuid.UUID
	Name    string
	Type    domain.MembershipType
}

// Bootstrap creates a household with an admin membership for its owner. The
// membership becomes primary when the owner has no primary membership yet.
func (s *Service) Bootstrap(ctx context.Context, in BootstrapInput) (*domain.Household, *domain.Membership, error) {
	var (
		household  *domain.Household
		membership *domain.Membership
	)
	err := s.observe(ctx, "bootstrap", func(ctx context.Context) error {
		var err error
		if in.Type, err = domain.ParseMembershipType(string(in.Type)); err != nil {
			return err
		}

		err = sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
			if _, err := s.users.FindByID(txCtx, in.OwnerID); err != nil {
				return err
			}
			_, err := s.memberships.FindPrimaryByUser(txCtx, in.OwnerID)
			hasPrimary := err == nil
			if err != nil && !errors.Is(err, domain.ErrMembershipNotFound) {
				return err
			}

			household, err = s.createHousehold(txCtx, in.Name)
			if err != nil {
				return err
			}
			membership, err = s.create(txCtx, CreateMembershipInput{
				UserID:      in.OwnerID,
				HouseholdID: household.ID(),
				Type:        in.Type,
				Role:        domain.RoleAdmin,
				IsPrimary:   !hasPrimary,
			})
			return err
		})
		if err != nil {
			return err
		}
		if membership.IsPrimary() {
			s.invalidate(ctx, in.OwnerID)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return household, membership, nil
}
