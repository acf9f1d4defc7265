package membership

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

var endStatus string

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <membership-id>",
	Short: "End a membership",
	Long: `End a membership as cancelled, expired or inactive.

When the membership was the user's primary one, the most recently created
remaining active membership becomes primary. Without one the user's
household and role are cleared.

Examples:
  hearth membership deactivate 550e8400-e29b-41d4-a716-446655440000
  hearth membership deactivate 550e8400-e29b-41d4-a716-446655440000 --status expired`,
	Aliases: []string{"end"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		membershipID, err := cli.ParseID("membership", args[0])
		if err != nil {
			return err
		}

		var m *domain.Membership
		err = app.Retry(cmd.Context(), func(ctx context.Context) error {
			m, err = app.Memberships.Deactivate(ctx, membershipID, domain.Status(endStatus))
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to deactivate membership: %w", err)
		}
		return cli.PrintMembership(cmd.OutOrStdout(), queries.ToMembershipDTO(m))
	},
}

func init() {
	deactivateCmd.Flags().StringVarP(&endStatus, "status", "s", string(domain.StatusCancelled), "end status (cancelled, expired, inactive)")
}
