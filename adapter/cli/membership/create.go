package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hearth/adapter/cli"
	"github.com/felixgeelhaar/hearth/internal/membership/application/queries"
	"github.com/felixgeelhaar/hearth/internal/membership/application/services"
	"github.com/felixgeelhaar/hearth/internal/membership/domain"
)

var (
	userID         string
	householdID    string
	membershipType string
	role           string
	primary        bool
	organisationID string
	billingCycle   string
	nextBilling    string
	amountMinor    int64
	paymentStatus  string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a membership",
	Long: `Create an active membership of a user in a household.

With --primary the membership also becomes the user's primary one and
any previous primary membership is cleared.

Examples:
  hearth membership create --user <user-id> --household <household-id> --type family_workspace --role parent
  hearth membership create --user <user-id> --household <household-id> --type flat_share --primary`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		in := services.CreateMembershipInput{
			Type:      domain.MembershipType(membershipType),
			Role:      domain.Role(role),
			IsPrimary: primary,
			Billing: domain.Billing{
				Cycle:         billingCycle,
				PaymentStatus: paymentStatus,
			},
		}
		if in.UserID, err = cli.ParseID("user", userID); err != nil {
			return err
		}
		if in.HouseholdID, err = cli.ParseID("household", householdID); err != nil {
			return err
		}
		if organisationID != "" {
			org, err := cli.ParseID("organisation", organisationID)
			if err != nil {
				return err
			}
			in.OrganisationID = &org
		}
		if nextBilling != "" {
			parsed, err := time.Parse("2006-01-02", nextBilling)
			if err != nil {
				return fmt.Errorf("invalid next billing date format (use YYYY-MM-DD): %w", err)
			}
			in.Billing.NextBillingDate = &parsed
		}
		if cmd.Flags().Changed("amount") {
			amount := amountMinor
			in.Billing.AmountMinor = &amount
		}

		var m *domain.Membership
		err = app.Retry(cmd.Context(), func(ctx context.Context) error {
			m, err = app.Memberships.Create(ctx, in)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to create membership: %w", err)
		}
		return cli.PrintMembership(cmd.OutOrStdout(), queries.ToMembershipDTO(m))
	},
}

func init() {
	createCmd.Flags().StringVarP(&userID, "user", "u", "", "user ID (required)")
	createCmd.Flags().StringVar(&householdID, "household", "", "household ID (required)")
	createCmd.Flags().StringVarP(&membershipType, "type", "t", "", "membership type (family_workspace, flat_share, solo_plan)")
	createCmd.Flags().StringVarP(&role, "role", "r", "", "role (admin, parent, teen, child, flatmate, observer); observer when empty")
	createCmd.Flags().BoolVar(&primary, "primary", false, "make this the user's primary membership")
	createCmd.Flags().StringVar(&organisationID, "organisation", "", "organisation ID")
	createCmd.Flags().StringVar(&billingCycle, "billing-cycle", "", "billing cycle, e.g. monthly")
	createCmd.Flags().StringVar(&nextBilling, "next-billing", "", "next billing date (YYYY-MM-DD)")
	createCmd.Flags().Int64Var(&amountMinor, "amount", 0, "billing amount in minor units")
	createCmd.Flags().StringVar(&paymentStatus, "payment-status", "", "payment status")
	_ = createCmd.MarkFlagRequired("user")
	_ = createCmd.MarkFlagRequired("household")
	_ = createCmd.MarkFlagRequired("type")
}

