package user

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
)

var showCmd = &cobra.Command{
	Use:     "show <user-id>",
	Short:   "Show a user's household scope and memberships",
	Aliases: []string{"get"},
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

		ctx := cmd.Context()
		scope, err := app.GetUserScopeHandler.Handle(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		memberships, err := app.ListUserMembershipsHandler.Handle(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list memberships: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, struct {
				Scope       queries.UserScope       `json:"scope"`
				Memberships []queries.MembershipDTO `json:"memberships"`
			}{scope, memberships})
		}
		if err := cli.PrintScope(out, scope); err != nil {
			return err
		}
		fmt.Fprintln(out)
		return cli.PrintMemberships(out, memberships)
	},
}
