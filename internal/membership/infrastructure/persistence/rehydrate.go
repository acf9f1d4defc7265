package persistence

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/google/uuid"
)

func rehydrateUser(id uuid.UUID, email, name, role string, householdID *uuid.UUID, createdAt, updatedAt time.Time) (*domain.User, error) {
	e, err := domain.NewEmail(email)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return domain.RehydrateUser(id, e, name, domain.Scope{HouseholdID: householdID, Role: r}, createdAt, updatedAt), nil
}
