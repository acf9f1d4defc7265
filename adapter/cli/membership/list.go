package membership

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
)

var listCmd = &cobra.Command{
	Use:     "list <user-id>",
	Short:   "List a user's memberships",
	Aliases: []string{"ls"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		userID, err := cli.ParseID("user", args[0])
		if err != nil {
			return err
		}

		memberships, err := app.ListUserMembershipsHandler.Handle(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to list memberships: %w", err)
		}
		return cli.PrintMemberships(cmd.OutOrStdout(), memberships)
	},
}
