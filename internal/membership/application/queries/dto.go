package queries

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

// MembershipDTO is a data transfer object for memberships.
type MembershipDTO struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	HouseholdID     uuid.UUID  `json:"household_id"`
	Type            string     `json:"membership_type"`
	Role            string     `json:"role"`
	Status          string     `json:"status"`
	IsPrimary       bool       `json:"is_primary"`
	StartDate       time.Time  `json:"start_date"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	OrganisationID  *uuid.UUID `json:"organisation_id,omitempty"`
	BillingCycle    string     `json:"billing_cycle,omitempty"`
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
	AmountMinor     *int64     `json:"amount_minor,omitempty"`
	PaymentStatus   string     `json:"payment_status,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToMembershipDTO converts a membership for output.
func ToMembershipDTO(m *domain.Membership) MembershipDTO {
	billing := m.Billing()
	return MembershipDTO{
		ID:              m.ID(),
		UserID:          m.UserID(),
		HouseholdID:     m.HouseholdID(),
		Type:            string(m.Type()),
		Role:            string(m.Role()),
		Status:          string(m.Status()),
		IsPrimary:       m.IsPrimary(),
		StartDate:       m.StartDate(),
		EndedAt:         m.EndedAt(),
		OrganisationID:  m.OrganisationID(),
		BillingCycle:    billing.Cycle,
		NextBillingDate: billing.NextBillingDate,
		AmountMinor:     billing.AmountMinor,
		PaymentStatus:   billing.PaymentStatus,
		CreatedAt:       m.CreatedAt(),
	}
}

func toMembershipDTOs(ms []*domain.Membership) []MembershipDTO {
	dtos := make([]MembershipDTO, 0, len(ms))
	for _, m := range ms {
		dtos = append(dtos, ToMembershipDTO(m))
	}
	return dtos
}

// UserScope is the household and role household-scoped reads are filtered
// by. HouseholdID is nil for a user without a primary membership.
type UserScope struct {
	UserID      uuid.UUID  `json:"user_id"`
	HouseholdID *uuid.UUID `json:"household_id,omitempty"`
	Role        string     `json:"role"`
}

// ScopeOfUser converts the mirrored fields of u.
func ScopeOfUser(u *domain.User) UserScope {
	return UserScope{UserID: u.ID(), HouseholdID: u.HouseholdID(), Role: string(u.Role())}
}
