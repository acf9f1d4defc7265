package membership

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

var setPrimaryCmd = &cobra.Command{
	Use:   "set-primary <membership-id>",
	Short: "Make a membership the user's primary one",
	Long: `Make an active membership its user's primary membership. The previous
primary membership is cleared and the user's household and role follow
the new one. Running it twice has no further effect.

Examples:
  hearth membership set-primary 550e8400-e29b-41d4-a716-446655440000`,
	Args: cobra.ExactArgs(1),
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
			m, err = app.Memberships.SetPrimary(ctx, membershipID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to set primary membership: %w", err)
		}
		return cli.PrintMembership(cmd.OutOrStdout(), queries.ToMembershipDTO(m))
	},
}
