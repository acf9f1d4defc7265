package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

var createCmd = &cobra.Command{
	Use:   "create <email> <name>",
	Short: "Register a user",
	Long: `Register a user without any household.

Examples:
  hearth user create ada@example.com "Ada Lovelace"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		var u *domain.User
		err = app.Retry(cmd.Context(), func(ctx context.Context) error {
			u, err = app.Memberships.RegisterUser(ctx, args[0], args[1])
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to register user: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, map[string]any{
				"id":    u.ID(),
				"email": u.Email().String(),
				"name":  u.Name(),
			})
		}
		fmt.Fprintf(out, "User created: %s\n", u.ID())
		fmt.Fprintf(out, "  email: %s\n", u.Email())
		return nil
	},
}
