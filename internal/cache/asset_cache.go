package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"asset-catalog/internal/model"
)

type AssetCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAssetCache(client *redisv9.Client, ttl time.Duration) *AssetCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &AssetCache{client: client, ttl: ttl}
}

// Get reports a miss, not an error, when the key is absent. An entry that no
// longer decodes is dropped and reported as an error.
func (c *AssetCache) Get(ctx context.Context, id uint) (*model.Asset, bool, error) {
	key := c.assetKey(id)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get asset failed: %w", err)
	}

	var asset model.Asset
	if err := json.Unmarshal(raw, &asset); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return nil, false, fmt.Errorf("unmarshal cached asset failed: %w", err)
	}
	return &asset, true, nil
}

func (c *AssetCache) Set(ctx context.Context, asset *model.Asset) error {
	payload, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("marshal asset cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.assetKey(asset.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set asset failed: %w", err)
	}
	return nil
}

func (c *AssetCache) Delete(ctx context.Context, id uint) error {
	if err := c.client.Del(ctx, c.assetKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete asset failed: %w", err)
	}
	return nil
}

func (c *AssetCache) assetKey(id uint) string {
	return fmt.Sprintf("asset:%d", id)
}
