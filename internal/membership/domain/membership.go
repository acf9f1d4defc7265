package domain

import (
	"fmt"
	"time"

	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/google/uuid"
)

// Billing holds subscription fields that are stored and returned unchanged.
type Billing struct {
	Cycle           string
	NextBillingDate *time.Time
	AmountMinor     *int64
	PaymentStatus   string
}

// Membership records a user's relationship to one household.
type Membership struct {
	sharedDomain.BaseAggregateRoot
	userID         uuid.UUID
	householdID    uuid.UUID
	membershipType MembershipType
	role           Role
	state          State
	startDate      time.Time
	organisationID *uuid.UUID
	billing        Billing
}

// NewMembershipParams are the inputs of NewMembership.
type NewMembershipParams struct {
	UserID         uuid.UUID
	HouseholdID    uuid.UUID
	Type           MembershipType
	Role           Role
	OrganisationID *uuid.UUID
	Billing        Billing
}

// NewMembership creates an active, non-primary membership starting at now.
// Primary status is granted separately through MarkPrimary.
func NewMembership(p NewMembershipParams, now time.Time) (*Membership, error) {
	if _, err := ParseMembershipType(string(p.Type)); err != nil {
		return nil, err
	}
	if _, err := ParseRole(string(p.Role)); err != nil {
		return nil, err
	}

	m := &Membership{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		userID:            p.UserID,
		householdID:       p.HouseholdID,
		membershipType:    p.Type,
		role:              p.Role,
		state:             Active{},
		startDate:         now.UTC(),
		organisationID:    p.OrganisationID,
		billing:           p.Billing,
	}
	m.Record(NewMembershipCreated(m))
	return m, nil
}

// MembershipRecord is the stored form of a membership.
type MembershipRecord struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	HouseholdID    uuid.UUID
	Type           string
	Role           string
	Status         string
	IsPrimary      bool
	StartDate      time.Time
	EndedAt        *time.Time
	OrganisationID *uuid.UUID
	Billing        Billing
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RehydrateMembership rebuilds a membership from storage. Records whose
// columns do not describe a valid state are rejected with ErrCorruptMembership.
func RehydrateMembership(r MembershipRecord) (*Membership, error) {
	t, err := ParseMembershipType(r.Type)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptMembership, r.ID, err)
	}
	role, err := ParseRole(r.Role)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptMembership, r.ID, err)
	}
	status, err := ParseStatus(r.Status)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCorruptMembership, r.ID, err)
	}
	state, ok := stateFromRecord(status, r.IsPrimary, r.EndedAt)
	if !ok {
		return nil, fmt.Errorf("%w %s: status %s with primary=%t ended_at=%v",
			ErrCorruptMembership, r.ID, status, r.IsPrimary, r.EndedAt)
	}

	return &Membership{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(r.ID, r.CreatedAt, r.UpdatedAt),
		),
		userID:         r.UserID,
		householdID:    r.HouseholdID,
		membershipType: t,
		role:           role,
		state:          state,
		startDate:      r.StartDate.UTC(),
		organisationID: r.OrganisationID,
		billing:        r.Billing,
	}, nil
}

// ToRecord returns the stored form of the membership.
func (m *Membership) ToRecord() MembershipRecord {
	return MembershipRecord{
		ID:             m.ID(),
		UserID:         m.userID,
		HouseholdID:    m.householdID,
		Type:           string(m.membershipType),
		Role:           string(m.role),
		Status:         string(m.Status()),
		IsPrimary:      m.IsPrimary(),
		StartDate:      m.startDate,
		EndedAt:        m.EndedAt(),
		OrganisationID: m.organisationID,
		Billing:        m.billing,
		CreatedAt:      m.CreatedAt(),
		UpdatedAt:      m.UpdatedAt(),
	}
}

// Field accessors. OrganisationID is nil for memberships outside an
// organisation.
func (m *Membership) UserID() uuid.UUID          { return m.userID }
func (m *Membership) HouseholdID() uuid.UUID     { return m.householdID }
func (m *Membership) Type() MembershipType       { return m.membershipType }
func (m *Membership) Role() Role                 { return m.role }
func (m *Membership) StartDate() time.Time       { return m.startDate }
func (m *Membership) OrganisationID() *uuid.UUID { return m.organisationID }

// State returns the lifecycle state. Switch on its concrete type to reach
// the primary flag of Active or the end time of an ended state.
func (m *Membership) State() State { return m.state }

// Status is the stored status string of State.
func (m *Membership) Status() Status { return m.state.Status() }

// IsActive reports whether the membership is in the Active state.
func (m *Membership) IsActive() bool { return m.Status() == StatusActive }

// Billing returns the subscription fields as they were stored. The domain
// never reads or changes them.
func (m *Membership) Billing() Billing { return m.billing }

// IsPrimary reports whether this is the user's primary membership.
func (m *Membership) IsPrimary() bool {
	a, ok := m.state.(Active)
	return ok && a.Primary
}

// EndedAt returns when the membership first left the active state.
func (m *Membership) EndedAt() *time.Time {
	if at, ok := endedAt(m.state); ok {
		return &at
	}
	return nil
}

// MarkPrimary makes an active membership the user's primary one. Marking an
// already primary membership changes nothing.
func (m *Membership) MarkPrimary(now time.Time) error {
	a, ok := m.state.(Active)
	if !ok {
		return fmt.Errorf("%w: %s is %s", ErrMembershipNotActive, m.ID(), m.Status())
	}
	if a.Primary {
		return nil
	}
	m.state = Active{Primary: true}
	m.Touch(now)
	m.Record(NewMembershipPrimarySet(m, now))
	return nil
}

// ClearPrimary removes primary status. It reports whether anything changed.
func (m *Membership) ClearPrimary(now time.Time) bool {
	if !m.IsPrimary() {
		return false
	}
	m.state = Active{}
	m.Touch(now)
	m.Record(NewMembershipPrimaryCleared(m, now))
	return true
}

// Deactivate moves the membership into an ended state and reports whether it
// was primary. Primary status is dropped in the same transition. The end
// instant is set the first time the membership leaves the active state and
// kept on every later transition.
func (m *Membership) Deactivate(status Status, now time.Time) (wasPrimary bool, err error) {
	if !status.IsDeactivation() {
		return false, fmt.Errorf("%w: %q", ErrInvalidDeactivationStatus, status)
	}

	wasPrimary = m.IsPrimary()
	at, ended := endedAt(m.state)
	if !ended {
		at = now.UTC()
	}
	next, _ := endedState(status, at)
	m.state = next
	m.Touch(now)
	m.Record(NewMembershipDeactivated(m, wasPrimary, now))
	return wasPrimary, nil
}

// ChangeRole updates the role of an active membership.
func (m *Membership) ChangeRole(role Role, now time.Time) error {
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}
	if !m.IsActive() {
		return fmt.Errorf("%w: %s is %s", ErrMembershipNotActive, m.ID(), m.Status())
	}
	if m.role == role {
		return nil
	}
	from := m.role
	m.role = role
	m.Touch(now)
	m.Record(NewMembershipRoleChanged(m, from, now))
	return nil
}
