package membership

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

var roleCmd = &cobra.Command{
	Use:   "role <membership-id> <role>",
	Short: "Change the role of an active membership",
	Long: `Change the role of an active membership. A primary membership's new
role is mirrored onto its user.

Examples:
  hearth membership role 550e8400-e29b-41d4-a716-446655440000 teen`,
	Args: cobra.ExactArgs(2),
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
			m, err = app.Memberships.ChangeRole(ctx, membershipID, domain.Role(args[1]))
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to change role: %w", err)
		}
		return cli.PrintMembership(cmd.OutOrStdout(), queries.ToMembershipDTO(m))
	},
}
