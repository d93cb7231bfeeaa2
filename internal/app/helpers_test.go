package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"asset-catalog/internal/model"
	"asset-catalog/internal/repository"
	"asset-catalog/internal/storage"
	"asset-catalog/internal/testutil"
)

const (
	testMaxUpload = 1 << 20
	testMaxPixels = 1_000_000
)

type fakeCache struct {
	mu      sync.Mutex
	items   map[uint]model.Asset
	gets    int
	hits    int
	deletes []uint
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[uint]model.Asset{}}
}

func (c *fakeCache) Get(_ context.Context, id uint) (*model.Asset, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	asset, ok := c.items[id]
	if !ok {
		return nil, false, nil
	}
	c.hits++
	return &asset, true, nil
}

func (c *fakeCache) Set(_ context.Context, asset *model.Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[asset.ID] = *asset
	return nil
}

func (c *fakeCache) Delete(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.deletes = append(c.deletes, id)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []model.FileCleanupJob
}

func (p *fakePublisher) PublishFileCleanup(_ context.Context, job model.FileCleanupJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

// flakyBackend is a local backend whose removes can be made to fail.
type flakyBackend struct {
	*storage.LocalBackend
	failRemove bool
}

func (b *flakyBackend) Remove(ctx context.Context, name string) error {
	if b.failRemove {
		return errors.New("disk is read-only")
	}
	return b.LocalBackend.Remove(ctx, name)
}

type testEnv struct {
	db        *gorm.DB
	backend   *flakyBackend
	store     *storage.Store
	cache     *fakeCache
	publisher *fakePublisher
	auth      *AuthService
	assets     *AssetService
	categories *CategoryService
	tags       *TagService
	users      *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)

	local, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	backend := &flakyBackend{LocalBackend: local}
	store := storage.NewStore(backend, testMaxUpload, nil)

	cache := newFakeCache()
	publisher := &fakePublisher{}
	log := zerolog.Nop()

	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)

	return &testEnv{
		db:        db,
		backend:   backend,
		store:     store,
		cache:     cache,
		publisher: publisher,
		auth:      NewAuthService(userRepo, "test-secret", time.Hour, 4),
		assets: NewAssetService(AssetDeps{
			Assets:     assetRepo,
			Categories: categoryRepo,
			Tags:       tagRepo,
			Store:      store,
			Inspector:  NewInspector(store, 64, testMaxPixels, log),
			Cache:      cache,
			Cleanup:    publisher,
			PublicPath: "/uploads",
			Log:        log,
		}),
		categories: NewCategoryService(categoryRepo, assetRepo, cache, log),
		tags:       NewTagService(tagRepo, assetRepo, cache, log),
		users:      NewUserService(userRepo, assetRepo, store, cache, 4, log),
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// oversizedPNG is a 1x1 PNG whose IHDR claims a w x h canvas.
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func pngUpload(t *testing.T, name string) *FileUpload {
	data := pngBytes(t, 128, 64)
	return &FileUpload{
		Reader:       bytes.NewReader(data),
		OriginalName: name,
		MimeType:     "image/png",
		Size:         int64(len(data)),
	}
}

func (e *testEnv) fileExists(t *testing.T, name string) bool {
	t.Helper()
	_, err := e.store.ResolveDownloadPath(name)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}
