package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"asset-catalog/internal/bootstrap"
	"asset-catalog/internal/repository"
	"asset-catalog/internal/worker"
)

var sweepGrace time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stored files that no asset references",
	Long: `Run one orphan sweep: list every object in the file store, and remove
the ones that are not an asset file or thumbnail and are older than the
grace period.

Examples:
  catalogctl sweep              # grace period from storage.sweep_grace_seconds
  catalogctl sweep --grace 10m`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepGrace, "grace", 0, "Skip files younger than this (default from config)")
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	store, _, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}

	grace := sweepGrace
	if !cmd.Flags().Changed("grace") {
		grace = cfg.SweepGrace()
	}
	sweeper := worker.NewOrphanSweeper(store, repository.NewAssetRepository(db), grace, 0, log)
	return sweepOnce(ctx, sweeper, grace, cmd.OutOrStdout())
}

func sweepOnce(ctx context.Context, sweeper *worker.OrphanSweeper, grace time.Duration, out io.Writer) error {
	report, err := sweeper.SweepOnce(ctx, grace)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	fmt.Fprintf(out, "scanned %d, removed %d, failed %d\n", report.Scanned, report.Removed, report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("%d files could not be removed", report.Failed)
	}
	return nil
}
