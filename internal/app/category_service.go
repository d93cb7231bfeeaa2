package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"asset-catalog/internal/model"
	"asset-catalog/internal/repository"
)

type CategoryService struct {
	repo      *repository.CategoryRepository
	assetRepo *repository.AssetRepository
	cache     AssetCache
	log       zerolog.Logger
}

type CategoryInput struct {
	Name        string `validate:"required,max=128"`
	Description string `validate:"max=1000"`
}

type CategoryPatch struct {
	Name        *string `validate:"omitnil,min=1,max=128"`
	Description *string `validate:"omitnil,max=1000"`
}

// NewCategoryService builds the service. Updates and deletes drop cached assets
// that embed the category; cache may be nil.
func NewCategoryService(repo *repository.CategoryRepository, assetRepo *repository.AssetRepository, cache AssetCache, log zerolog.Logger) *CategoryService {
	return &CategoryService{repo: repo, assetRepo: assetRepo, cache: cache, log: log}
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*model.Category, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCategoryExists
	}

	category := &model.Category{Name: input.Name, Description: input.Description}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, patch CategoryPatch) (*model.Category, error) {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != category.Name {
		existing, err := s.repo.GetByName(ctx, *patch.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, ErrCategoryExists
		}
		category.Name = *patch.Name
	}
	if patch.Description != nil {
		category.Description = *patch.Description
	}

	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	s.invalidate(ctx, s.linkedAssets(ctx, id))
	return category, nil
}

// Delete leaves the category's assets uncategorised.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	linked := s.linkedAssets(ctx, id)
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, linked)
	return nil
}

func (s *CategoryService) linkedAssets(ctx context.Context, id uint) []uint {
	if s.cache == nil {
		return nil
	}
	ids, err := s.assetRepo.IDsByCategory(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Uint("category_id", id).Msg("list category assets for cache invalidate failed")
	}
	return ids
}

func (s *CategoryService) invalidate(ctx context.Context, ids []uint) {
	invalidateAssets(ctx, s.cache, s.log, ids...)
}
