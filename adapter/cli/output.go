package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
)

// ParseID parses a UUID argument, naming kind in the error.
func ParseID(kind, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID: %w", kind, err)
	}
	return id, nil
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintMembership writes one membership, as JSON when --json is set.
func PrintMembership(w io.Writer, m queries.MembershipDTO) error {
	if outputJSON {
		return PrintJSON(w, m)
	}
	fmt.Fprintf(w, "Membership: %s\n", m.ID)
	fmt.Fprintf(w, "  User:      %s\n", m.UserID)
	fmt.Fprintf(w, "  Household: %s\n", m.HouseholdID)
	fmt.Fprintf(w, "  Type:      %s\n", m.Type)
	fmt.Fprintf(w, "  Role:      %s\n", m.Role)
	fmt.Fprintf(w, "  Status:    %s\n", m.Status)
	fmt.Fprintf(w, "  Primary:   %t\n", m.IsPrimary)
	fmt.Fprintf(w, "  Started:   %s\n", m.StartDate.Format(time.RFC3339))
	if m.EndedAt != nil {
		fmt.Fprintf(w, "  Ended:     %s\n", m.EndedAt.Format(time.RFC3339))
	}
	return nil
}

// PrintMemberships writes a membership table, as JSON when --json is set.
func PrintMemberships(w io.Writer, ms []queries.MembershipDTO) error {
	if outputJSON {
		return PrintJSON(w, ms)
	}
	if len(ms) == 0 {
		fmt.Fprintln(w, "No memberships.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tHOUSEHOLD\tTYPE\tROLE\tSTATUS\tPRIMARY")
	for _, m := range ms {
		primary := ""
		if m.IsPrimary {
			primary = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.UserID, m.HouseholdID, m.Type, m.Role, m.Status, primary)
	}
	return tw.Flush()
}

// PrintScope writes a user's household scope.
func PrintScope(w io.Writer, s queries.UserScope) error {
	if outputJSON {
		return PrintJSON(w, s)
	}
	household := "none"
	if s.HouseholdID != nil {
		household = s.HouseholdID.String()
	}
	fmt.Fprintf(w, "User: %s\n", s.UserID)
	fmt.Fprintf(w, "  Household: %s\n", household)
	fmt.Fprintf(w, "  Role:      %s\n", s.Role)
	return nil
}
