package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"asset-catalog/internal/app"
	"asset-catalog/internal/bootstrap"
	"asset-catalog/internal/cache"
	redisClient "asset-catalog/internal/platform/redis"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user together with their assets and files",
	Long: `Delete a user account. The user's stored files are removed first, then
the user row; the user's assets and their tag links go with it.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserDelete,
}

func init() {
	userCmd.AddCommand(userDeleteCmd)
}

func runUserDelete(cmd *cobra.Command, args []string) error {
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

	// cached copies expire on their own if redis is unreachable
	var assetCache app.AssetCache
	if client, err := redisClient.New(ctx, cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, skipping cache invalidation")
	} else {
		defer client.Close()
		assetCache = cache.NewAssetCache(client, cfg.AssetCacheTTL())
	}

	services := bootstrap.NewServices(cfg, bootstrap.ServiceDeps{
		DB:    db,
		Store: store,
		Cache: assetCache,
		Log:   log,
	})
	return deleteUser(ctx, services.Users, args[0], cmd.OutOrStdout())
}

func deleteUser(ctx context.Context, users *app.UserService, username string, out io.Writer) error {
	result, err := users.DeleteUser(ctx, username)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted user %s (id %d) with %d assets\n", username, result.UserID, result.AssetsDeleted)
	for _, name := range result.FilesFailed {
		fmt.Fprintf(out, "could not remove file %s\n", name)
	}
	return nil
}
