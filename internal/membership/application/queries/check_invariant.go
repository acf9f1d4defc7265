package queries

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// InvariantReport describes how a user's stored state compares with the
// single-primary rule and the scope mirror.
type InvariantReport struct {
	UserID     uuid.UUID   `json:"user_id"`
	PrimaryIDs []uuid.UUID `json:"primary_ids"`
	Expected   UserScope   `json:"expected"`
	Actual     UserScope   `json:"actual"`
	Violations []string    `json:"violations,omitempty"`
}

// OK reports whether no violation was found.
func (r InvariantReport) OK() bool { return len(r.Violations) == 0 }

// CheckInvariantHandler inspects one user.
type CheckInvariantHandler struct {
	memberships domain.MembershipRepository
	users       domain.UserRepository
	metrics     observability.Metrics
}

// NewCheckInvariantHandler creates a new CheckInvariantHandler.
func NewCheckInvariantHandler(memberships domain.MembershipRepository, users domain.UserRepository, metrics observability.Metrics) *CheckInvariantHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CheckInvariantHandler{memberships: memberships, users: users, metrics: metrics}
}

// Handle reads the user's memberships and user row without locking them.
func (h *CheckInvariantHandler) Handle(ctx context.Context, userID uuid.UUID) (InvariantReport, error) {
	u, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return InvariantReport{}, err
	}
	ms, err := h.memberships.ListByUser(ctx, userID)
	if err != nil {
		return InvariantReport{}, err
	}

	report := InvariantReport{
		UserID:   userID,
		Actual:   ScopeOfUser(u),
		Expected: UserScope{UserID: userID, Role: string(domain.DefaultRole)},
	}

	var primary *domain.Membership
	for _, m := range ms {
		if !m.IsPrimary() {
			continue
		}
		report.PrimaryIDs = append(report.PrimaryIDs, m.ID())
		if primary == nil {
			primary = m
		}
	}
	if n := len(report.PrimaryIDs); n > 1 {
		report.Violations = append(report.Violations, fmt.Sprintf("%d primary memberships", n))
	}

	expected := domain.NoScope()
	if primary != nil {
		expected = domain.ScopeOf(primary)
	}
	report.Expected = UserScope{UserID: userID, HouseholdID: expected.HouseholdID, Role: string(expected.Role)}
	if !u.Scope().Equal(expected) {
		report.Violations = append(report.Violations, fmt.Sprintf("user mirrors household %s role %s, expected household %s role %s",
			formatHousehold(u.HouseholdID()), u.Role(), formatHousehold(expected.HouseholdID), expected.Role))
	}

	if n := len(report.Violations); n > 0 {
		h.metrics.Counter(observability.MetricInvariantViolations, int64(n))
	}
	return report, nil
}

func formatHousehold(id *uuid.UUID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}
