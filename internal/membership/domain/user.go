package domain

import (
	"regexp"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email is a validated, lower-cased email address.
type Email struct {
	value string
}

// NewEmail validates and normalizes an email address.
func NewEmail(value string) (Email, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || !emailRegex.MatchString(value) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: value}, nil
}

func (e Email) String() string { return e.value }

// User is the account whose household and role this package keeps in sync
// with its primary membership. Nothing else in this package writes to it.
type User struct {
	sharedDomain.BaseAggregateRoot
	email Email
	name  string
	scope Scope
}

// NewUser registers a user with no household.
func NewUser(email Email, name string, now time.Time) (*User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	u := &User{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		email:             email,
		name:              name,
		scope:             NoScope(),
	}
	u.Record(NewUserRegistered(u))
	return u, nil
}

// RehydrateUser rebuilds a user from storage.
func RehydrateUser(id uuid.UUID, email Email, name string, scope Scope, createdAt, updatedAt time.Time) *User {
	return &User{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		email: email,
		name:  name,
		scope: scope,
	}
}

func (u *User) Email() Email            { return u.email }
func (u *User) Name() string            { return u.name }
func (u *User) Scope() Scope            { return u.scope }
func (u *User) Role() Role              { return u.scope.Role }
func (u *User) HouseholdID() *uuid.UUID { return u.scope.HouseholdID }

// ApplyScope overwrites the mirrored household and role. An event is recorded
// only when the values change.
func (u *User) ApplyScope(scope Scope, now time.Time) bool {
	if u.scope.Equal(scope) {
		return false
	}
	previous := u.scope.HouseholdID
	u.scope = scope
	u.Touch(now)
	if scope.IsEmpty() {
		u.Record(NewUserScopeCleared(u.ID(), previous, now))
	} else {
		u.Record(NewUserScopeSynced(u.ID(), *scope.HouseholdID, scope.Role, now))
	}
	return true
}
