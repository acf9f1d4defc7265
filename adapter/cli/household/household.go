package household

import (
	"github.com/spf13/cobra"
)

// Cmd is the household command group
var Cmd = &cobra.Command{
	Use:   "household",
	Short: "Manage households",
	Long:  `Create households and list their members.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(membersCmd)
}
