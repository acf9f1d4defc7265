package user

import (
	"github.com/spf13/cobra"
)

// Cmd is the user command group
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  `Register users, inspect their household scope and repair it.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(resyncCmd)
}
