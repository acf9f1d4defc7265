package domain

import (
	"fmt"
	"strings"
)

// MembershipType is the subscription tier of a membership.
type MembershipType string

const (
	TypeFamilyWorkspace MembershipType = "fw"
	TypeFlatShare       MembershipType = "fs"
	TypeSoloPlan        MembershipType = "sp"
)

var membershipTypes = map[MembershipType]string{
	TypeFamilyWorkspace: "family workspace",
	TypeFlatShare:       "flat share",
	TypeSoloPlan:        "solo plan",
}

// typeAliases maps the long tier names operators type onto stored codes.
var typeAliases = map[string]MembershipType{
	"family_workspace": TypeFamilyWorkspace,
	"flat_share":       TypeFlatShare,
	"solo_plan":        TypeSoloPlan,
}

// ParseMembershipType validates a membership type code. The long names
// family_workspace, flat_share and solo_plan are accepted too.
func ParseMembershipType(s string) (MembershipType, error) {
	t := MembershipType(strings.ToLower(strings.TrimSpace(s)))
	if alias, ok := typeAliases[string(t)]; ok {
		t = alias
	}
	if _, ok := membershipTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMembershipType, s)
	}
	return t, nil
}

// Label returns the human readable tier name.
func (t MembershipType) Label() string { return membershipTypes[t] }

func (t MembershipType) String() string { return string(t) }

// Role is the permission level a membership grants inside its household.
// The primary membership's role is mirrored onto the user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleParent   Role = "parent"
	RoleTeen     Role = "teen"
	RoleChild    Role = "child"
	RoleFlatmate Role = "flatmate"
	RoleObserver Role = "observer"
)

// DefaultRole is the user role when no primary membership exists.
const DefaultRole = RoleObserver

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleParent, RoleTeen, RoleChild, RoleFlatmate, RoleObserver:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

func (r Role) String() string { return string(r) }

// Status is the persisted lifecycle status of a membership.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusInactive  Status = "inactive"
)

// ParseStatus validates any lifecycle status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusActive, StatusCancelled, StatusExpired, StatusInactive:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsDeactivation reports whether s is a status a membership may be
// deactivated into.
func (s Status) IsDeactivation() bool {
	return s == StatusCancelled || s == StatusExpired || s == StatusInactive
}

func (s Status) String() string { return string(s) }
