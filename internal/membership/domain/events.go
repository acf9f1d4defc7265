package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	MembershipAggregateType = "Membership"
	UserAggregateType       = "User"
	HouseholdAggregateType  = "Household"

	RoutingKeyMembershipCreated        = "membership.created"
	RoutingKeyMembershipPrimarySet     = "membership.primary_set"
	RoutingKeyMembershipPrimaryCleared = "membership.primary_cleared"
	RoutingKeyMembershipDeactivated    = "membership.deactivated"
	RoutingKeyMembershipRoleChanged    = "membership.role_changed"
	RoutingKeyHouseholdCreated         = "household.created"
	RoutingKeyUserRegistered           = "user.registered"
	RoutingKeyUserScopeSynced          = "user.scope_synced"
	RoutingKeyUserScopeCleared         = "user.scope_cleared"
)

// MembershipCreated is emitted when a membership is inserted.
type MembershipCreated struct {
	sharedDomain.BaseEvent
	UserID      uuid.UUID      `json:"user_id"`
	HouseholdID uuid.UUID      `json:"household_id"`
	Type        MembershipType `json:"membership_type"`
	Role        Role           `json:"role"`
}

// NewMembershipCreated creates a MembershipCreated event.
func NewMembershipCreated(m *Membership) *MembershipCreated {
	return &MembershipCreated{
		BaseEvent:   sharedDomain.NewBaseEvent(m.ID(), MembershipAggregateType, RoutingKeyMembershipCreated, m.CreatedAt()),
		UserID:      m.userID,
		HouseholdID: m.householdID,
		Type:        m.membershipType,
		Role:        m.role,
	}
}

// MembershipPrimarySet is emitted when a membership becomes primary.
type MembershipPrimarySet struct {
	sharedDomain.BaseEvent
	UserID      uuid.UUID `json:"user_id"`
	HouseholdID uuid.UUID `json:"household_id"`
}

// NewMembershipPrimarySet creates a MembershipPrimarySet event.
func NewMembershipPrimarySet(m *Membership, at time.Time) *MembershipPrimarySet {
	return &MembershipPrimarySet{
		BaseEvent:   sharedDomain.NewBaseEvent(m.ID(), MembershipAggregateType, RoutingKeyMembershipPrimarySet, at),
		UserID:      m.userID,
		HouseholdID: m.householdID,
	}
}

// MembershipPrimaryCleared is emitted when a membership stops being primary
// while staying active.
type MembershipPrimaryCleared struct {
	sharedDomain.BaseEvent
	UserID      uuid.UUID `json:"user_id"`
	HouseholdID uuid.UUID `json:"household_id"`
}

// NewMembershipPrimaryCleared creates a MembershipPrimaryCleared event.
func NewMembershipPrimaryCleared(m *Membership, at time.Time) *MembershipPrimaryCleared {
	return &MembershipPrimaryCleared{
		BaseEvent:   sharedDomain.NewBaseEvent(m.ID(), MembershipAggregateType, RoutingKeyMembershipPrimaryCleared, at),
		UserID:      m.userID,
		HouseholdID: m.householdID,
	}
}

// MembershipDeactivated is emitted when a membership enters an ended state.
type MembershipDeactivated struct {
	sharedDomain.BaseEvent
	UserID      uuid.UUID `json:"user_id"`
	HouseholdID uuid.UUID `json:"household_id"`
	Status      Status    `json:"status"`
	EndedAt     time.Time `json:"ended_at"`
	WasPrimary  bool      `json:"was_primary"`
}

// NewMembershipDeactivated creates a MembershipDeactivated event.
func NewMembershipDeactivated(m *Membership, wasPrimary bool, at time.Time) *MembershipDeactivated {
	e := &MembershipDeactivated{
		BaseEvent:   sharedDomain.NewBaseEvent(m.ID(), MembershipAggregateType, RoutingKeyMembershipDeactivated, at),
		UserID:      m.userID,
		HouseholdID: m.householdID,
		Status:      m.Status(),
		WasPrimary:  wasPrimary,
	}
	if ended := m.EndedAt(); ended != nil {
		e.EndedAt = *ended
	}
	return e
}

// MembershipRoleChanged is emitted when a membership's role changes.
type MembershipRoleChanged struct {
	sharedDomain.BaseEvent
	UserID      uuid.UUID `json:"user_id"`
	HouseholdID uuid.UUID `json:"household_id"`
	From        Role      `json:"from"`
	To          Role      `json:"to"`
	IsPrimary   bool      `json:"is_primary"`
}

// NewMembershipRoleChanged creates a MembershipRoleChanged event.
func NewMembershipRoleChanged(m *Membership, from Role, at time.Time) *MembershipRoleChanged {
	return &MembershipRoleChanged{
		BaseEvent:   sharedDomain.NewBaseEvent(m.ID(), MembershipAggregateType, RoutingKeyMembershipRoleChanged, at),
		UserID:      m.userID,
		HouseholdID: m.householdID,
		From:        from,
		To:          m.role,
		IsPrimary:   m.IsPrimary(),
	}
}

// HouseholdCreated is emitted when a household is bootstrapped.
type HouseholdCreated struct {
	sharedDomain.BaseEvent
	Name string `json:"name"`
}

// NewHouseholdCreated creates a HouseholdCreated event.
func NewHouseholdCreated(h *Household) *HouseholdCreated {
	return &HouseholdCreated{
		BaseEvent: sharedDomain.NewBaseEvent(h.ID(), HouseholdAggregateType, RoutingKeyHouseholdCreated, h.CreatedAt()),
		Name:      h.name,
	}
}

// UserRegistered is emitted when a user is created.
type UserRegistered struct {
	sharedDomain.BaseEvent
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewUserRegistered creates a UserRegistered event.
func NewUserRegistered(u *User) *UserRegistered {
	return &UserRegistered{
		BaseEvent: sharedDomain.NewBaseEvent(u.ID(), UserAggregateType, RoutingKeyUserRegistered, u.CreatedAt()),
		Email:     u.email.String(),
		Name:      u.name,
	}
}

// UserScopeSynced is emitted when the user's household and role are
// rewritten from a primary membership.
type UserScopeSynced struct {
	sharedDomain.BaseEvent
	HouseholdID uuid.UUID `json:"household_id"`
	Role        Role      `json:"role"`
}

// NewUserScopeSynced creates a UserScopeSynced event.
func NewUserScopeSynced(userID, householdID uuid.UUID, role Role, at time.Time) *UserScopeSynced {
	return &UserScopeSynced{
		BaseEvent:   sharedDomain.NewBaseEvent(userID, UserAggregateType, RoutingKeyUserScopeSynced, at),
		HouseholdID: householdID,
		Role:        role,
	}
}

// UserScopeCleared is emitted when the user is left without a household.
type UserScopeCleared struct {
	sharedDomain.BaseEvent
	PreviousHouseholdID *uuid.UUID `json:"previous_household_id,omitempty"`
}

// NewUserScopeCleared creates a UserScopeCleared event.
func NewUserScopeCleared(userID uuid.UUID, previous *uuid.UUID, at time.Time) *UserScopeCleared {
	return &UserScopeCleared{
		BaseEvent:           sharedDomain.NewBaseEvent(userID, UserAggregateType, RoutingKeyUserScopeCleared, at),
		PreviousHouseholdID: previous,
	}
}
