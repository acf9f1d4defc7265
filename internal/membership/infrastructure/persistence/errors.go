// Package persistence stores users, households and memberships on SQLite
// and PostgreSQL.
package persistence

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
)

// constraintNames identifies the schema constraints as each driver reports
// them. SQLite names unique violations by column list.
type constraintNames struct {
	userHousehold string
	onePrimary    string
	userEmail     string
}

var (
	sqliteConstraints = constraintNames{
		userHousehold: "memberships.user_id, memberships.household_id",
		onePrimary:    "memberships.user_id",
		userEmail:     "users.email",
	}
	postgresConstraints = constraintNames{
		userHousehold: "memberships_user_household_key",
		onePrimary:    "memberships_one_primary_per_user",
		userEmail:     "users_email_key",
	}
)

// translateWriteError maps storage failures on membership and user writes
// onto domain errors. Anything unrecognized is returned unchanged.
func translateWriteError(err error, names constraintNames) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, names.userHousehold):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateMembership, err)
	case database.IsUniqueViolation(err, names.onePrimary):
		return fmt.Errorf("%w: %v", domain.ErrConcurrentAssignmentConflict, err)
	case database.IsUniqueViolation(err, names.userEmail):
		return fmt.Errorf("%w: %v", domain.ErrEmailTaken, err)
	case errors.Is(err, database.ErrTxConflict):
		return fmt.Errorf("%w: %v", domain.ErrConcurrentAssignmentConflict, err)
	}
	return err
}

// translateReadError maps lock and busy failures raised while reading under
// a write transaction.
func translateReadError(err error) error {
	if errors.Is(err, database.ErrTxConflict) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrentAssignmentConflict, err)
	}
	return err
}
