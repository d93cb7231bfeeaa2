package app

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-catalog/internal/repository"
	"asset-catalog/internal/testutil"
)

func TestCategoryService_CRUD(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db), repository.NewAssetRepository(db), nil, zerolog.Nop())
	ctx := context.Background()

	hardware, err := svc.Create(ctx, CategoryInput{Name: " Hardware ", Description: "things with plugs"})
	require.NoError(t, err)
	assert.Equal(t, "Hardware", hardware.Name)

	_, err = svc.Create(ctx, CategoryInput{Name: "Hardware"})
	assert.ErrorIs(t, err, ErrConflict)

	software, err := svc.Create(ctx, CategoryInput{Name: "Software"})
	require.NoError(t, err)

	taken := "Hardware"
	_, err = svc.Update(ctx, software.ID, CategoryPatch{Name: &taken})
	assert.ErrorIs(t, err, ErrCategoryExists)

	desc := "licences"
	updated, err := svc.Update(ctx, software.ID, CategoryPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Software", updated.Name)
	assert.Equal(t, "licences", updated.Description)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Hardware", list[0].Name)

	require.NoError(t, svc.Delete(ctx, hardware.ID))
	_, err = svc.Get(ctx, hardware.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, hardware.ID), ErrNotFound)

	_, err = svc.Create(ctx, CategoryInput{Name: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTagService_CRUD(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewTagService(repository.NewTagRepository(db), repository.NewAssetRepository(db), nil, zerolog.Nop())
	ctx := context.Background()

	fragile, err := svc.Create(ctx, TagInput{Name: "fragile"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, TagInput{Name: "fragile", Description: "again"})
	assert.ErrorIs(t, err, ErrTagExists)

	name := "handle-with-care"
	renamed, err := svc.Update(ctx, fragile.ID, TagPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "handle-with-care", renamed.Name)

	got, err := svc.Get(ctx, fragile.ID)
	require.NoError(t, err)
	assert.Equal(t, "handle-with-care", got.Name)

	_, err = svc.Update(ctx, 999, TagPatch{Name: &name})
	assert.ErrorIs(t, err, ErrTagNotFound)

	require.NoError(t, svc.Delete(ctx, fragile.ID))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCategoryService_DeleteDropsCachedAssets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")

	hardware, err := env.categories.Create(ctx, CategoryInput{Name: "Hardware"})
	require.NoError(t, err)
	asset, err := env.assets.Create(ctx, alice.ID, CreateAssetInput{Name: "Router", CategoryID: &hardware.ID, File: pngUpload(t, "router.png")})
	require.NoError(t, err)

	cached, err := env.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, cached.Category)

	require.NoError(t, env.categories.Delete(ctx, hardware.ID))
	assert.Contains(t, env.cache.deletes, asset.ID)

	got, err := env.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Category)
	assert.Nil(t, got.CategoryID)
}

func TestCategoryService_UpdateRefreshesCachedAssets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")

	hardware, err := env.categories.Create(ctx, CategoryInput{Name: "Hardware"})
	require.NoError(t, err)
	asset, err := env.assets.Create(ctx, alice.ID, CreateAssetInput{Name: "Router", CategoryID: &hardware.ID, File: pngUpload(t, "router.png")})
	require.NoError(t, err)
	_, err = env.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)

	name := "Networking"
	_, err = env.categories.Update(ctx, hardware.ID, CategoryPatch{Name: &name})
	require.NoError(t, err)

	got, err := env.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Networking", got.Category.Name)
}

func TestTagService_ChangesDropCachedAssets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, env.db, "alice")

	fragile, err := env.tags.Create(ctx, TagInput{Name: "fragile"})
	require.NoError(t, err)
	asset, err := env.assets.Create(ctx, alice.ID, CreateAssetInput{Name: "Vase", TagIDs: []uint{fragile.ID}, File: pngUpload(t, "vase.png")})
	require.NoError(t, err)
	_, err = env.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)

	name := "handle-with-care"
	_, err = env.tags.Update(ctx, fragile.ID, TagPatch{Name: &name})
	require.NoError(t, err)

	got, err := env.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "handle-with-care", got.Tags[0].Name)

	require.NoError(t, env.tags.Delete(ctx, fragile.ID))

	got, err = env.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}
