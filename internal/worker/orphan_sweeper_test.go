package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-catalog/internal/model"
	"asset-catalog/internal/repository"
	"asset-catalog/internal/storage"
	"asset-catalog/internal/testutil"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestOrphanSweeper_RemovesOnlyOldUnreferencedFiles(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "alice")

	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir)
	require.NoError(t, err)
	store := storage.NewStore(backend, 1<<20, nil)

	assets := repository.NewAssetRepository(db)
	require.NoError(t, assets.Create(ctx, &model.Asset{
		Name:          "kept",
		FilePath:      "kept.png",
		ThumbnailPath: "thumb-kept.png",
		MimeType:      "image/png",
		IsActive:      true,
		OwnerID:       owner.ID,
	}, nil))

	writeAged(t, dir, "kept.png", 2*time.Hour)
	writeAged(t, dir, "thumb-kept.png", 2*time.Hour)
	writeAged(t, dir, "orphan.png", 2*time.Hour)
	writeAged(t, dir, "fresh-orphan.png", time.Minute)

	sweeper := NewOrphanSweeper(store, assets, time.Hour, 0, zerolog.Nop())
	report, err := sweeper.SweepOnce(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Scanned: 4, Removed: 1}, report)

	for name, want := range map[string]bool{
		"kept.png":         true,
		"thumb-kept.png":   true,
		"orphan.png":       false,
		"fresh-orphan.png": true,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.Equal(t, want, err == nil, name)
	}
}

func TestOrphanSweeper_DisabledIntervalDoesNotStart(t *testing.T) {
	db := testutil.OpenDB(t)
	backend, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	sweeper := NewOrphanSweeper(storage.NewStore(backend, 1, nil), repository.NewAssetRepository(db), time.Hour, 0, zerolog.Nop())
	sweeper.Start(context.Background())
	assert.Nil(t, sweeper.cancel)
	sweeper.Close()
}

func TestOrphanSweeper_StartRunsOnTicker(t *testing.T) {
	db := testutil.OpenDB(t)
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir)
	require.NoError(t, err)
	writeAged(t, dir, "orphan.bin", time.Hour)

	sweeper := NewOrphanSweeper(storage.NewStore(backend, 1, nil), repository.NewAssetRepository(db), time.Minute, 10*time.Millisecond, zerolog.Nop())
	sweeper.Start(context.Background())
	defer sweeper.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "orphan.bin"))
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}
