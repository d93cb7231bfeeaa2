package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"asset-catalog/internal/bootstrap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the catalog tables",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	db, err := bootstrap.OpenDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := bootstrap.Migrate(db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}
