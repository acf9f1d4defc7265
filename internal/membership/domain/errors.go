package domain

import "errors"

// Caller errors. They are detected before anything is written.
var (
	ErrDuplicateMembership       = errors.New("membership already exists for this user and household")
	ErrMembershipNotActive       = errors.New("membership is not active")
	ErrInvalidDeactivationStatus = errors.New("invalid deactivation status")
	ErrMembershipNotFound        = errors.New("membership not found")
	ErrUserNotFound              = errors.New("user not found")
	ErrHouseholdNotFound         = errors.New("household not found")
	ErrInvalidRole               = errors.New("invalid membership role")
	ErrInvalidMembershipType     = errors.New("invalid membership type")
	ErrInvalidStatus             = errors.New("invalid membership status")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailTaken                = errors.New("email address already registered")
	ErrEmptyName                 = errors.New("name cannot be empty")
	ErrNameTooLong               = errors.New("name exceeds maximum length")
)

// ErrConcurrentAssignmentConflict is returned when the store rejects a write
// because another transaction changed the same user's primary membership.
// Callers may retry the whole operation.
var ErrConcurrentAssignmentConflict = errors.New("concurrent primary assignment conflict")

// ErrCorruptMembership is returned when a stored row cannot be represented
// as a valid membership state.
var ErrCorruptMembership = errors.New("corrupt membership record")

var callerErrors = []error{
	ErrDuplicateMembership,
	ErrMembershipNotActive,
	ErrInvalidDeactivationStatus,
	ErrMembershipNotFound,
	ErrUserNotFound,
	ErrHouseholdNotFound,
	ErrInvalidRole,
	ErrInvalidMembershipType,
	ErrInvalidStatus,
	ErrInvalidEmail,
	ErrEmailTaken,
	ErrEmptyName,
	ErrNameTooLong,
}

// IsCallerError reports whether err was caused by the request rather than by
// the system. Transports map these to 4xx responses.
func IsCallerError(err error) bool {
	for _, target := range callerErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err is a retryable assignment conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentAssignmentConflict)
}
