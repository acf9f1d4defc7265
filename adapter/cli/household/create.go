package household

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/services"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

var (
	ownerID        string
	membershipType string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a household",
	Long: `Create a household. With --owner the owner also gets an admin
membership, which becomes primary when the owner has none yet.

Examples:
  hearth household create "Maple Street"
  hearth household create "Maple Street" --owner 550e8400-e29b-41d4-a716-446655440000
  hearth household create "Flat 4" --owner 550e8400-e29b-41d4-a716-446655440000 --type flat_share`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if ownerID == "" {
			var h *domain.Household
			err = app.Retry(cmd.Context(), func(ctx context.Context) error {
				h, err = app.Memberships.CreateHousehold(ctx, args[0])
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to create household: %w", err)
			}
			if cli.JSONOutput() {
				return cli.PrintJSON(out, map[string]any{"id": h.ID(), "name": h.Name()})
			}
			fmt.Fprintf(out, "Household created: %s\n", h.ID())
			return nil
		}

		owner, err := cli.ParseID("owner", ownerID)
		if err != nil {
			return err
		}
		var (
			h *domain.Household
			m *domain.Membership
		)
		err = app.Retry(cmd.Context(), func(ctx context.Context) error {
			h, m, err = app.Memberships.Bootstrap(ctx, services.BootstrapInput{
				OwnerID: owner,
				Name:    args[0],
				Type:    domain.MembershipType(membershipType),
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to create household: %w", err)
		}
		if cli.JSONOutput() {
			return cli.PrintJSON(out, map[string]any{
				"id":            h.ID(),
				"name":          h.Name(),
				"membership_id": m.ID(),
				"is_primary":    m.IsPrimary(),
			})
		}
		fmt.Fprintf(out, "Household created: %s\n", h.ID())
		fmt.Fprintf(out, "  owner membership: %s (primary: %t)\n", m.ID(), m.IsPrimary())
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&ownerID, "owner", "", "user ID of the owner, who becomes admin")
	createCmd.Flags().StringVar(&membershipType, "type", string(domain.TypeFamilyWorkspace), "owner membership type (family_workspace, flat_share, solo_plan)")
}
