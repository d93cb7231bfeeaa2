package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"asset-catalog/internal/model"
)

const (
	likeEscape        = "!"
	referencedChunkSz = 500
)

type AssetRepository struct {
	db *gorm.DB
}

type AssetListQuery struct {
	Offset int
	Limit  int
	Search string
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts the asset row and links the given tags in one transaction.
func (r *AssetRepository) Create(ctx context.Context, asset *model.Asset, tags []model.Tag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(asset).Error; err != nil {
			return fmt.Errorf("create asset failed: %w", err)
		}
		if len(tags) == 0 {
			return nil
		}
		if err := tx.Model(asset).Association("Tags").Append(tags); err != nil {
			return fmt.Errorf("link asset tags failed: %w", err)
		}
		return nil
	})
}

// Update saves all columns of the asset. A nil tags slice leaves links as
// they are; an empty one clears them.
func (r *AssetRepository) Update(ctx context.Context, asset *model.Asset, tags *[]model.Tag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(asset).Error; err != nil {
			return fmt.Errorf("update asset failed: %w", err)
		}
		if tags == nil {
			return nil
		}
		assoc := tx.Model(asset).Association("Tags")
		if len(*tags) == 0 {
			if err := assoc.Clear(); err != nil {
				return fmt.Errorf("clear asset tags failed: %w", err)
			}
			return nil
		}
		if err := assoc.Replace(*tags); err != nil {
			return fmt.Errorf("replace asset tags failed: %w", err)
		}
		return nil
	})
}

func (r *AssetRepository) GetByID(ctx context.Context, id uint) (*model.Asset, error) {
	var asset model.Asset
	err := r.withRelations(r.db.WithContext(ctx)).First(&asset, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get asset failed: %w", err)
	}
	return &asset, nil
}

// List returns one page of assets, newest first, and the total match count.
func (r *AssetRepository) List(ctx context.Context, q AssetListQuery) ([]model.Asset, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.Asset{})
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := likePattern(term)
		base = base.Where(
			"LOWER(name) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(description) LIKE ? ESCAPE '"+likeEscape+"'",
			pattern, pattern,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count assets failed: %w", err)
	}

	var list []model.Asset
	err := r.withRelations(base.Session(&gorm.Session{})).
		Order("created_at DESC").
		Order("id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list assets failed: %w", err)
	}
	return list, total, nil
}

func (r *AssetRepository) ListByOwnerID(ctx context.Context, ownerID uint) ([]model.Asset, error) {
	var list []model.Asset
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list assets by owner failed: %w", err)
	}
	return list, nil
}

// IDsByOwner, IDsByCategory and IDsByTag list the assets whose embedded
// owner, category or tags would change with that row.
func (r *AssetRepository) IDsByOwner(ctx context.Context, ownerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Asset{}).Where("owner_id = ?", ownerID).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list asset ids by owner failed: %w", err)
	}
	return ids, nil
}

func (r *AssetRepository) IDsByCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Asset{}).Where("category_id = ?", categoryID).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list asset ids by category failed: %w", err)
	}
	return ids, nil
}

func (r *AssetRepository) IDsByTag(ctx context.Context, tagID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Table("asset_tags").Where("tag_id = ?", tagID).Pluck("asset_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list asset ids by tag failed: %w", err)
	}
	return ids, nil
}

// DeleteByID removes the asset row and its tag links.
func (r *AssetRepository) DeleteByID(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM asset_tags WHERE asset_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete asset tags failed: %w", err)
		}
		if err := tx.Delete(&model.Asset{}, id).Error; err != nil {
			return fmt.Errorf("delete asset failed: %w", err)
		}
		return nil
	})
}

// ReferencedFiles reports which of the given stored names are still used as
// a file or thumbnail by some asset.
func (r *AssetRepository) ReferencedFiles(ctx context.Context, names []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(names))
	for start := 0; start < len(names); start += referencedChunkSz {
		end := start + referencedChunkSz
		if end > len(names) {
			end = len(names)
		}
		chunk := names[start:end]

		var rows []model.Asset
		err := r.db.WithContext(ctx).
			Select("file_path", "thumbnail_path").
			Where("file_path IN ? OR thumbnail_path IN ?", chunk, chunk).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("query referenced files failed: %w", err)
		}
		for _, row := range rows {
			if row.FilePath != "" {
				found[row.FilePath] = struct{}{}
			}
			if row.ThumbnailPath != "" {
				found[row.ThumbnailPath] = struct{}{}
			}
		}
	}
	return found, nil
}

func (r *AssetRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner").Preload("Category").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	})
}

// likePattern lowercases the term and escapes LIKE wildcards so the term is
// matched literally as a substring.
func likePattern(term string) string {
	replacer := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return "%" + replacer.Replace(strings.ToLower(term)) + "%"
}
