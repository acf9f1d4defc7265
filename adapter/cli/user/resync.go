package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

var resyncCmd = &cobra.Command{
	Use:   "resync <user-id>",
	Short: "Rewrite a user's household and role from the primary membership",
	Long: `Recompute the household and role stored on a user from the current
primary membership, clearing them when there is none.

Examples:
  hearth user resync 550e8400-e29b-41d4-a716-446655440000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		userID, err := cli.ParseID("user", args[0])
		if err != nil {
			return err
		}

		var u *domain.User
		err = app.Retry(cmd.Context(), func(ctx context.Context) error {
			u, err = app.Memberships.Resync(ctx, userID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to resync user: %w", err)
		}
		return cli.PrintScope(cmd.OutOrStdout(), queries.ScopeOfUser(u))
	},
}
