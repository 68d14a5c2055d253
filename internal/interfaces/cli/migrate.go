package cli

import (
	"fmt"

	"github.com/garyjia/design-bureau/internal/container"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		db, err := container.ProvideDatabase(&e.cfg.Database, e.logger)
		if err != nil {
			return err
		}
		defer db.Conn.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date: %s\n", e.cfg.Database.Path)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
