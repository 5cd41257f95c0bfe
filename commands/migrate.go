package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cppla/yatube/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update every table and index",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := boot()
		if err != nil {
			return err
		}
		if err := db.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
