package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"asset-catalog/internal/model"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) Create(ctx context.Context, tag *model.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create tag failed: %w", err)
	}
	return nil
}

func (r *TagRepository) Update(ctx context.Context, tag *model.Tag) error {
	if err := r.db.WithContext(ctx).Save(tag).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update tag failed: %w", err)
	}
	return nil
}

func (r *TagRepository) List(ctx context.Context) ([]model.Tag, error) {
	var list []model.Tag
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list tags failed: %w", err)
	}
	return list, nil
}

func (r *TagRepository) GetByID(ctx context.Context, id uint) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tag failed: %w", err)
	}
	return &tag, nil
}

func (r *TagRepository) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tag by name failed: %w", err)
	}
	return &tag, nil
}

// GetByIDs returns the tags that exist among ids, ordered by id.
func (r *TagRepository) GetByIDs(ctx context.Context, ids []uint) ([]model.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []model.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get tags by ids failed: %w", err)
	}
	return list, nil
}

func (r *TagRepository) DeleteByID(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM asset_tags WHERE tag_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink tag from assets failed: %w", err)
		}
		if err := tx.Delete(&model.Tag{}, id).Error; err != nil {
			return fmt.Errorf("delete tag failed: %w", err)
		}
		return nil
	})
}
