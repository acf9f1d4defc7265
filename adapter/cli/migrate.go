package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply pending schema migrations to the configured database.

SQLite databases are migrated automatically on start; PostgreSQL
databases are only migrated by this command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Migrator == nil {
			return ErrNotInitialized
		}

		applied, err := app.Migrator.Migrate(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(applied) == 0 {
			fmt.Fprintln(out, "Schema is up to date.")
			return nil
		}
		for _, a := range applied {
			fmt.Fprintf(out, "applied %d %s\n", a.Version, a.Source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
