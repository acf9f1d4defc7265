package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoRows is returned when a query expected to return a row returns none.
var ErrNoRows = errors.New("no rows in result set")

// ErrTxConflict reports that the database aborted a statement because a
// concurrent transaction held or changed the same rows (serialization
// failure, deadlock, busy writer). The operation may be retried.
var ErrTxConflict = errors.New("concurrent transaction conflict")

// IsNoRows returns true if the error indicates no rows were found.
func IsNoRows(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, ErrNoRows)
}

// ConstraintKind classifies integrity constraint violations.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintOther      ConstraintKind = "other"
)

// ConstraintError is a driver-neutral integrity violation.
//
// Constraint holds the constraint or index name on PostgreSQL. SQLite does
// not report index names for unique violations, so there it holds the
// column list ("memberships.user_id") or the CHECK constraint name.
type ConstraintError struct {
	Driver     Driver
	Kind       ConstraintKind
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s constraint %q violated: %v", e.Kind, e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// AsConstraintError extracts a ConstraintError from err.
func AsConstraintError(err error) (*ConstraintError, bool) {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique violation on the named
// constraint. An empty name matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	ce, ok := AsConstraintError(err)
	if !ok || ce.Kind != ConstraintUnique {
		return false
	}
	return constraint == "" || ce.Constraint == constraint
}
