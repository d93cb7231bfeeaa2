// Package cli implements catalogctl, the administrative command line for the
// asset catalog.
package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"asset-catalog/internal/config"
	"asset-catalog/internal/logger"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Administer the asset catalog",
	Long: `catalogctl runs maintenance tasks against the asset catalog database and
file store. Configuration is read the same way as the server: CONFIG_FILE
(default configs/config.toml) plus environment overrides.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(userCmd)
}

func loadConfig(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	log = logger.New(cfg.Log, "catalogctl")
	return nil
}
