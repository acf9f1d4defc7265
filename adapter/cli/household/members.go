package household

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
)

var statuses []string

var membersCmd = &cobra.Command{
	Use:   "members <household-id>",
	Short: "List the memberships of a household",
	Long: `List the memberships of a household, optionally filtered by status.

Examples:
  hearth household members 550e8400-e29b-41d4-a716-446655440000
  hearth household members 550e8400-e29b-41d4-a716-446655440000 --status active`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		householdID, err := cli.ParseID("household", args[0])
		if err != nil {
			return err
		}

		members, err := app.ListHouseholdMembersHandler.Handle(cmd.Context(), queries.ListHouseholdMembersQuery{
			HouseholdID: householdID,
			Statuses:    statuses,
		})
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		return cli.PrintMemberships(cmd.OutOrStdout(), members)
	},
}

func init() {
	membersCmd.Flags().StringSliceVar(&statuses, "status", nil, "only show these statuses (active, cancelled, expired, inactive)")
}
