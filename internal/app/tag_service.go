package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"asset-catalog/internal/model"
	"asset-catalog/internal/repository"
)

type TagService struct {
	repo      *repository.TagRepository
	assetRepo *repository.AssetRepository
	cache     AssetCache
	log       zerolog.Logger
}

type TagInput struct {
	Name        string `validate:"required,max=64"`
	Description string `validate:"max=1000"`
}

type TagPatch struct {
	Name        *string `validate:"omitnil,min=1,max=64"`
	Description *string `validate:"omitnil,max=1000"`
}

// NewTagService builds the service. Updates and deletes drop cached assets
// that embed the tag; cache may be nil.
func NewTagService(repo *repository.TagRepository, assetRepo *repository.AssetRepository, cache AssetCache, log zerolog.Logger) *TagService {
	return &TagService{repo: repo, assetRepo: assetRepo, cache: cache, log: log}
}

func (s *TagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.repo.List(ctx)
}

func (s *TagService) Get(ctx context.Context, id uint) (*model.Tag, error) {
	tag, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, ErrTagNotFound
	}
	return tag, nil
}

func (s *TagService) Create(ctx context.Context, input TagInput) (*model.Tag, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTagExists
	}

	tag := &model.Tag{Name: input.Name, Description: input.Description}
	if err := s.repo.Create(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Update(ctx context.Context, id uint, patch TagPatch) (*model.Tag, error) {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	if err := validateInput(patch); err != nil {
		return nil, err
	}

	tag, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != tag.Name {
		existing, err := s.repo.GetByName(ctx, *patch.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, ErrTagExists
		}
		tag.Name = *patch.Name
	}
	if patch.Description != nil {
		tag.Description = *patch.Description
	}

	if err := s.repo.Update(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	s.invalidate(ctx, s.linkedAssets(ctx, id))
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, id uint) error {
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

func (s *TagService) linkedAssets(ctx context.Context, id uint) []uint {
	if s.cache == nil {
		return nil
	}
	ids, err := s.assetRepo.IDsByTag(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Uint("tag_id", id).Msg("list tag assets for cache invalidate failed")
	}
	return ids
}

func (s *TagService) invalidate(ctx context.Context, ids []uint) {
	invalidateAssets(ctx, s.cache, s.log, ids...)
}
