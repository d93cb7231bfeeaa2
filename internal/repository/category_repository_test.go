package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-catalog/internal/model"
	"asset-catalog/internal/testutil"
)

func TestCategoryRepository_DuplicateName(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	repo := NewCategoryRepository(db)

	require.NoError(t, repo.Create(ctx, &model.Category{Name: "Hardware"}))
	assert.ErrorIs(t, repo.Create(ctx, &model.Category{Name: "Hardware"}), ErrDuplicate)
}

func TestCategoryRepository_DeleteDetachesAssets(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "alice")
	repo := NewCategoryRepository(db)

	category := &model.Category{Name: "Hardware"}
	require.NoError(t, repo.Create(ctx, category))

	assets := NewAssetRepository(db)
	asset := newAsset(owner.ID, "Router", "")
	asset.CategoryID = &category.ID
	require.NoError(t, assets.Create(ctx, asset, nil))

	require.NoError(t, repo.DeleteByID(ctx, category.ID))

	got, err := assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.Category)

	gone, err := repo.GetByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestTagRepository_GetByIDsSkipsMissing(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	repo := NewTagRepository(db)

	a := &model.Tag{Name: "a"}
	require.NoError(t, repo.Create(ctx, a))

	tags, err := repo.GetByIDs(ctx, []uint{a.ID, 999})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "a", tags[0].Name)

	none, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTagRepository_DeleteUnlinksAssets(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "alice")
	repo := NewTagRepository(db)

	tag := &model.Tag{Name: "fragile"}
	require.NoError(t, repo.Create(ctx, tag))
	assets := NewAssetRepository(db)
	asset := newAsset(owner.ID, "Vase", "")
	require.NoError(t, assets.Create(ctx, asset, []model.Tag{*tag}))

	require.NoError(t, repo.DeleteByID(ctx, tag.ID))

	got, err := assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)
}
