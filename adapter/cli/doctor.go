package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
)

// ErrInvariantViolated is returned by doctor when any user failed a check.
var ErrInvariantViolated = errors.New("invariant violations found")

var doctorCmd = &cobra.Command{
	Use:   "doctor <user-id>...",
	Short: "Check users against the single-primary rule",
	Long: `Report users holding more than one primary membership or whose
household and role differ from their primary membership.

Drift is repaired with "hearth user resync".

Examples:
  hearth doctor 550e8400-e29b-41d4-a716-446655440000`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(args))
		for _, arg := range args {
			id, err := ParseID("user", arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		reports := make([]queries.InvariantReport, 0, len(ids))
		failed := false
		for _, id := range ids {
			report, err := app.CheckInvariantHandler.Handle(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("check user %s: %w", id, err)
			}
			reports = append(reports, report)
			failed = failed || !report.OK()
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			if err := PrintJSON(out, reports); err != nil {
				return err
			}
		} else {
			for _, r := range reports {
				if r.OK() {
					fmt.Fprintf(out, "%s ok\n", r.UserID)
					continue
				}
				fmt.Fprintf(out, "%s FAIL\n", r.UserID)
				for _, v := range r.Violations {
					fmt.Fprintf(out, "  - %s\n", v)
				}
			}
		}

		if failed {
			return ErrInvariantViolated
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
