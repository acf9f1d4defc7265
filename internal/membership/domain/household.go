package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/google/uuid"
)

// MaxNameLength bounds user and household names.
const MaxNameLength = 255

// Household is a tenant group that memberships point at.
type Household struct {
	sharedDomain.BaseAggregateRoot
	name string
}

// NewHousehold creates a household named name.
func NewHousehold(name string, now time.Time) (*Household, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	h := &Household{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		name:              name,
	}
	h.Record(NewHouseholdCreated(h))
	return h, nil
}

// RehydrateHousehold rebuilds a household from storage.
func RehydrateHousehold(id uuid.UUID, name string, createdAt, updatedAt time.Time) *Household {
	return &Household{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		name: name,
	}
}

func (h *Household) Name() string { return h.name }

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}
