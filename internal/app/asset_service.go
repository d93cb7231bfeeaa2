package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"asset-catalog/internal/model"
	"asset-catalog/internal/repository"
	"asset-catalog/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// AssetCache is a read-through cache of single assets. Implementations must
// treat every error as a miss on the caller's side.
type AssetCache interface {
	Get(ctx context.Context, id uint) (*model.Asset, bool, error)
	Set(ctx context.Context, asset *model.Asset) error
	Delete(ctx context.Context, id uint) error
}

type CleanupPublisher interface {
	PublishFileCleanup(ctx context.Context, job model.FileCleanupJob) error
}

type AssetDeps struct {
	Assets     *repository.AssetRepository
	Categories *repository.CategoryRepository
	Tags       *repository.TagRepository
	Store      *storage.Store
	Inspector  *Inspector
	Cache      AssetCache
	Cleanup    CleanupPublisher
	PublicPath string
	Log        zerolog.Logger
}

type AssetService struct {
	assetRepo    *repository.AssetRepository
	categoryRepo *repository.CategoryRepository
	tagRepo      *repository.TagRepository
	store        *storage.Store
	inspector    *Inspector
	cache        AssetCache
	cleanup      CleanupPublisher
	publicPath   string
	log          zerolog.Logger
	now          func() time.Time
}

// FileUpload is an incoming file. Size is the size the client declared, or 0
// if unknown; the store counts the bytes either way.
type FileUpload struct {
	Reader       io.Reader
	OriginalName string
	MimeType     string
	Size         int64
}

type CreateAssetInput struct {
	Name          string   `validate:"required,max=255"`
	Description   string   `validate:"max=5000"`
	SerialNumber  string   `validate:"max=128"`
	PurchasePrice *float64 `validate:"omitnil,gte=0,lt=100000000"`
	PurchaseDate  *time.Time
	Location      string `validate:"max=255"`
	CategoryID    *uint
	TagIDs        []uint
	File          *FileUpload `validate:"-"`
}

// UpdateAssetInput carries a patch; nil fields are left unchanged. A non-nil
// empty TagIDs clears the asset's tags.
type UpdateAssetInput struct {
	Name          *string  `validate:"omitnil,min=1,max=255"`
	Description   *string  `validate:"omitnil,max=5000"`
	SerialNumber  *string  `validate:"omitnil,max=128"`
	PurchasePrice *float64 `validate:"omitnil,gte=0,lt=100000000"`
	PurchaseDate  *time.Time
	Location      *string `validate:"omitnil,max=255"`
	CategoryID    *uint
	ClearCategory bool
	TagIDs        *[]uint
	File          *FileUpload `validate:"-"`
}

type ListAssetsInput struct {
	Page   int
	Limit  int
	Search string
}

type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type AssetPage struct {
	Assets []model.Asset
	Meta   PageMeta
}

// Download is either a local file path or an open stream, never both.
type Download struct {
	Asset  *model.Asset
	Path   string
	Reader io.ReadCloser
	Size   int64
}

func NewAssetService(deps AssetDeps) *AssetService {
	return &AssetService{
		assetRepo:    deps.Assets,
		categoryRepo: deps.Categories,
		tagRepo:      deps.Tags,
		store:        deps.Store,
		inspector:    deps.Inspector,
		cache:        deps.Cache,
		cleanup:      deps.Cleanup,
		publicPath:   deps.PublicPath,
		log:          deps.Log,
		now:          time.Now,
	}
}

// Create stores the file first and inserts the row second. If the insert
// fails the new file is removed again.
func (s *AssetService) Create(ctx context.Context, ownerID uint, input CreateAssetInput) (*model.Asset, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.File == nil || input.File.Reader == nil {
		return nil, ErrFileRequired
	}

	categoryID, err := s.resolveCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, input.TagIDs)
	if err != nil {
		return nil, err
	}

	stored, meta, err := s.storeFile(ctx, input.File)
	if err != nil {
		return nil, err
	}

	asset := &model.Asset{
		Name:          input.Name,
		Description:   input.Description,
		SerialNumber:  input.SerialNumber,
		PurchasePrice: input.PurchasePrice,
		PurchaseDate:  input.PurchaseDate,
		Location:      input.Location,
		IsActive:      true,
		OwnerID:       ownerID,
		CategoryID:    categoryID,
	}
	applyFile(asset, stored, meta)

	if err := s.assetRepo.Create(ctx, asset, tags); err != nil {
		s.removeFiles(ctx, "asset insert failed", stored.Name, meta.ThumbnailPath)
		return nil, err
	}

	s.log.Info().
		Uint("asset_id", asset.ID).
		Uint("owner_id", ownerID).
		Str("file", stored.Name).
		Int64("size", stored.Size).
		Msg("asset created")

	return s.reload(ctx, asset.ID)
}

func (s *AssetService) List(ctx context.Context, input ListAssetsInput) (*AssetPage, error) {
	page, limit := normalizePage(input.Page, input.Limit)

	assets, total, err := s.assetRepo.List(ctx, repository.AssetListQuery{
		Offset: (page - 1) * limit,
		Limit:  limit,
		Search: input.Search,
	})
	if err != nil {
		return nil, err
	}
	s.withURLs(assets)

	return &AssetPage{
		Assets: assets,
		Meta: PageMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

func (s *AssetService) GetByID(ctx context.Context, id uint) (*model.Asset, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Uint("asset_id", id).Msg("asset cache read failed")
		}
		if ok {
			cached.WithPublicURLs(s.publicPath)
			return cached, nil
		}
	}

	asset, err := s.assetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, asset); err != nil {
			s.log.Warn().Err(err).Uint("asset_id", id).Msg("asset cache write failed")
		}
	}
	asset.WithPublicURLs(s.publicPath)
	return asset, nil
}

// Update applies the patch for the owner. A replacement file is stored before
// the row changes; the old file is removed only after the row points away
// from it.
func (s *AssetService) Update(ctx context.Context, id, ownerID uint, input UpdateAssetInput) (*model.Asset, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	asset, err := s.ownedAsset(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	switch {
	case input.ClearCategory:
		asset.CategoryID = nil
	case input.CategoryID != nil:
		categoryID, err := s.resolveCategory(ctx, input.CategoryID)
		if err != nil {
			return nil, err
		}
		asset.CategoryID = categoryID
	}
	asset.Category = nil

	var tags *[]model.Tag
	if input.TagIDs != nil {
		resolved, err := s.resolveTags(ctx, *input.TagIDs)
		if err != nil {
			return nil, err
		}
		tags = &resolved
	}

	if input.Name != nil {
		asset.Name = *input.Name
	}
	if input.Description != nil {
		asset.Description = *input.Description
	}
	if input.SerialNumber != nil {
		asset.SerialNumber = *input.SerialNumber
	}
	if input.PurchasePrice != nil {
		asset.PurchasePrice = input.PurchasePrice
	}
	if input.PurchaseDate != nil {
		asset.PurchaseDate = input.PurchaseDate
	}
	if input.Location != nil {
		asset.Location = *input.Location
	}

	var oldFile, oldThumb, newFile, newThumb string
	if input.File != nil && input.File.Reader != nil {
		stored, meta, err := s.storeFile(ctx, input.File)
		if err != nil {
			return nil, err
		}
		oldFile, oldThumb = asset.FilePath, asset.ThumbnailPath
		newFile, newThumb = stored.Name, meta.ThumbnailPath
		applyFile(asset, stored, meta)
	}

	if err := s.assetRepo.Update(ctx, asset, tags); err != nil {
		s.removeFiles(ctx, "asset update failed", newFile, newThumb)
		return nil, err
	}
	s.invalidate(ctx, id)
	s.removeFiles(ctx, "file replaced", oldFile, oldThumb)

	s.log.Info().Uint("asset_id", id).Uint("owner_id", ownerID).Bool("file_replaced", newFile != "").Msg("asset updated")
	return s.reload(ctx, id)
}

// Delete removes the row, then best-effort removes the file and thumbnail.
// A file that cannot be removed does not fail the call.
func (s *AssetService) Delete(ctx context.Context, id, ownerID uint) error {
	asset, err := s.ownedAsset(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.assetRepo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.removeFiles(ctx, "asset deleted", asset.FilePath, asset.ThumbnailPath)

	s.log.Info().Uint("asset_id", id).Uint("owner_id", ownerID).Msg("asset deleted")
	return nil
}

func (s *AssetService) ListByOwner(ctx context.Context, ownerID uint) ([]model.Asset, error) {
	assets, err := s.assetRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.withURLs(assets)
	return assets, nil
}

// Download resolves the asset's file. Local stores return a path; others
// return an open reader the caller must close.
func (s *AssetService) Download(ctx context.Context, id uint) (*Download, error) {
	asset, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	path, err := s.store.ResolveDownloadPath(asset.FilePath)
	switch {
	case err == nil:
		return &Download{Asset: asset, Path: path, Size: asset.Size}, nil
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrFileNotFound
	case !errors.Is(err, storage.ErrNotLocal):
		return nil, err
	}

	rc, obj, err := s.store.Open(ctx, asset.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &Download{Asset: asset, Reader: rc, Size: obj.Size}, nil
}

func (s *AssetService) ownedAsset(ctx context.Context, id, ownerID uint) (*model.Asset, error) {
	asset, err := s.assetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	if asset.OwnerID != ownerID {
		return nil, ErrNotAssetOwner
	}
	return asset, nil
}

func (s *AssetService) reload(ctx context.Context, id uint) (*model.Asset, error) {
	asset, err := s.assetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	asset.WithPublicURLs(s.publicPath)
	return asset, nil
}

func (s *AssetService) resolveCategory(ctx context.Context, id *uint) (*uint, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	category, err := s.categoryRepo.GetByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrUnknownCategory
	}
	return &category.ID, nil
}

func (s *AssetService) resolveTags(ctx context.Context, ids []uint) ([]model.Tag, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, ErrUnknownTag
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []model.Tag{}, nil
	}

	tags, err := s.tagRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(unique) {
		return nil, ErrUnknownTag
	}
	return tags, nil
}

// storeFile saves the upload and inspects it. Files the inspector reads are
// buffered while they stream to the store; the store caps their size.
func (s *AssetService) storeFile(ctx context.Context, up *FileUpload) (*storage.StoredFile, FileMetadata, error) {
	reader := up.Reader
	var buf *bytes.Buffer
	if s.inspector != nil && s.inspector.Wants(storage.NormalizeMimeType(up.MimeType)) {
		buf = &bytes.Buffer{}
		reader = io.TeeReader(reader, buf)
	}

	stored, err := s.store.Save(ctx, storage.Upload{
		Reader:       reader,
		OriginalName: up.OriginalName,
		MimeType:     up.MimeType,
		Size:         up.Size,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			return nil, FileMetadata{}, ErrFileTypeRejected
		case errors.Is(err, storage.ErrTooLarge):
			return nil, FileMetadata{}, ErrFileTooLarge
		}
		return nil, FileMetadata{}, err
	}

	var meta FileMetadata
	if buf != nil {
		meta = s.inspector.Inspect(ctx, stored, buf.Bytes())
	}
	return stored, meta, nil
}

// removeFiles deletes stored files without failing the caller. A failed
// delete is queued for one retry by the cleanup worker.
func (s *AssetService) removeFiles(ctx context.Context, reason string, names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		err := s.store.Remove(ctx, name)
		if err == nil {
			continue
		}
		s.log.Warn().Err(err).Str("file", name).Str("reason", reason).Msg("remove stored file failed")
		if s.cleanup == nil {
			continue
		}
		job := model.FileCleanupJob{FilePath: name, Reason: reason, EnqueuedAt: s.now().UTC()}
		if err := s.cleanup.PublishFileCleanup(ctx, job); err != nil {
			s.log.Error().Err(err).Str("file", name).Msg("enqueue file cleanup failed")
		}
	}
}

func (s *AssetService) invalidate(ctx context.Context, id uint) {
	invalidateAssets(ctx, s.cache, s.log, id)
}

// invalidateAssets drops cached copies. Failures are logged; entries expire
// on their own.
func invalidateAssets(ctx context.Context, cache AssetCache, log zerolog.Logger, ids ...uint) {
	if cache == nil {
		return
	}
	for _, id := range ids {
		if err := cache.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Uint("asset_id", id).Msg("asset cache invalidate failed")
		}
	}
}

func (s *AssetService) withURLs(assets []model.Asset) {
	for i := range assets {
		assets[i].WithPublicURLs(s.publicPath)
	}
}

func applyFile(asset *model.Asset, stored *storage.StoredFile, meta FileMetadata) {
	asset.FilePath = stored.Name
	asset.OriginalName = stored.OriginalName
	asset.FileType = stored.Extension
	asset.MimeType = stored.MimeType
	asset.Size = stored.Size
	asset.ImageWidth = meta.ImageWidth
	asset.ImageHeight = meta.ImageHeight
	asset.PageCount = meta.PageCount
	asset.ThumbnailPath = meta.ThumbnailPath
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
