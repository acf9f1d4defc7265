package membership

import (
	"github.com/spf13/cobra"
)

// Cmd is the membership command group
var Cmd = &cobra.Command{
	Use:     "membership",
	Short:   "Manage memberships",
	Aliases: []string{"m"},
	Long: `Create and end memberships, change roles and choose which membership
is a user's primary one.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(deactivateCmd)
	Cmd.AddCommand(setPrimaryCmd)
	Cmd.AddCommand(roleCmd)
	Cmd.AddCommand(listCmd)
}
