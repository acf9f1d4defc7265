package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

// ListUserMembershipsHandler lists every membership of a user, oldest first.
type ListUserMembershipsHandler struct {
	memberships domain.MembershipRepository
}

// NewListUserMembershipsHandler creates a new ListUserMembershipsHandler.
func NewListUserMembershipsHandler(memberships domain.MembershipRepository) *ListUserMembershipsHandler {
	return &ListUserMembershipsHandler{memberships: memberships}
}

// Handle executes the query.
func (h *ListUserMembershipsHandler) Handle(ctx context.Context, userID uuid.UUID) ([]MembershipDTO, error) {
	ms, err := h.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toMembershipDTOs(ms), nil
}

// ListHouseholdMembersQuery contains the parameters for listing a household.
type ListHouseholdMembersQuery struct {
	HouseholdID uuid.UUID
	Statuses    []string // all statuses when empty
}

// ListHouseholdMembersHandler lists the memberships of a household.
type ListHouseholdMembersHandler struct {
	memberships domain.MembershipRepository
	households  domain.HouseholdRepository
}

// NewListHouseholdMembersHandler creates a new ListHouseholdMembersHandler.
func NewListHouseholdMembersHandler(memberships domain.MembershipRepository, households domain.HouseholdRepository) *ListHouseholdMembersHandler {
	return &ListHouseholdMembersHandler{memberships: memberships, households: households}
}

// Handle executes the query. Unknown households return ErrHouseholdNotFound
// rather than an empty list.
func (h *ListHouseholdMembersHandler) Handle(ctx context.Context, query ListHouseholdMembersQuery) ([]MembershipDTO, error) {
	var filter domain.MembershipFilter
	for _, raw := range query.Statuses {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	if _, err := h.households.FindByID(ctx, query.HouseholdID); err != nil {
		return nil, err
	}
	ms, err := h.memberships.ListByHousehold(ctx, query.HouseholdID, filter)
	if err != nil {
		return nil, err
	}
	return toMembershipDTOs(ms), nil
}
