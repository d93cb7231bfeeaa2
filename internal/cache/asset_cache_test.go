package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-catalog/internal/model"
)

func newTestCache(t *testing.T) (*AssetCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAssetCache(client, 30*time.Second), srv
}

func TestAssetCache_SetGetDelete(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	asset := &model.Asset{
		ID:       1,
		Name:     "Logo",
		FilePath: "1-x-logo.png",
		Owner:    model.User{ID: 3, Username: "alice", PasswordHash: "secret-hash"},
		Tags:     []model.Tag{{ID: 2, Name: "brand"}},
	}
	require.NoError(t, c.Set(ctx, asset))
	assert.Equal(t, 30*time.Second, srv.TTL("asset:1"))

	raw, err := srv.Get("asset:1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret-hash")

	got, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Logo", got.Name)
	assert.Equal(t, "alice", got.Owner.Username)
	require.Len(t, got.Tags, 1)

	require.NoError(t, c.Delete(ctx, 1))
	_, ok, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssetCache_ExpiresAfterTTL(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &model.Asset{ID: 7, Name: "x"}))
	srv.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssetCache_CorruptEntryIsDropped(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, srv.Set("asset:9", "{not json"))

	_, ok, err := c.Get(ctx, 9)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, srv.Exists("asset:9"))
}

func TestAssetCache_UnreachableRedis(t *testing.T) {
	c, srv := newTestCache(t)
	srv.Close()

	_, ok, err := c.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, ok)
}
