package persistence

import (
	"fmt"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
)

// Repositories groups the stores of one connection.
type Repositories struct {
	Memberships domain.MembershipRepository
	Users       domain.UserRepository
	Households  domain.HouseholdRepository
}

// NewRepositories returns the stores matching the connection's driver.
func NewRepositories(conn database.Connection) (Repositories, error) {
	switch conn.Driver() {
	case database.DriverSQLite:
		return Repositories{
			Memberships: NewSQLiteMembershipRepository(conn),
			Users:       NewSQLiteUserRepository(conn),
			Households:  NewSQLiteHouseholdRepository(conn),
		}, nil
	case database.DriverPostgres:
		return Repositories{
			Memberships: NewPostgresMembershipRepository(conn),
			Users:       NewPostgresUserRepository(conn),
			Households:  NewPostgresHouseholdRepository(conn),
		}, nil
	}
	return Repositories{}, fmt.Errorf("no repositories for driver %q", conn.Driver())
}
