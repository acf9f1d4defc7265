package domain

import "github.com/google/uuid"

// Scope is the household and role mirrored onto a user. Household-scoped
// data is read through it.
type Scope struct {
	HouseholdID *uuid.UUID
	Role        Role
}

// NoScope is the scope of a user without a primary membership.
func NoScope() Scope {
	return Scope{Role: DefaultRole}
}

// ScopeOf returns the scope a primary membership grants.
func ScopeOf(m *Membership) Scope {
	householdID := m.HouseholdID()
	return Scope{HouseholdID: &householdID, Role: m.Role()}
}

// IsEmpty reports whether the scope names no household.
func (s Scope) IsEmpty() bool {
	return s.HouseholdID == nil
}

// Equal compares household and role.
func (s Scope) Equal(other Scope) bool {
	if s.Role != other.Role {
		return false
	}
	if s.HouseholdID == nil || other.HouseholdID == nil {
		return s.HouseholdID == nil && other.HouseholdID == nil
	}
	return *s.HouseholdID == *other.HouseholdID
}
