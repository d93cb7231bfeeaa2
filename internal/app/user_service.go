package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"asset-catalog/internal/model"
	"asset-catalog/internal/repository"
	"asset-catalog/internal/storage"
)

// UserService covers the caller's own profile and the administrative user
// removal used by the CLI.
type UserService struct {
	userRepo   *repository.UserRepository
	assetRepo  *repository.AssetRepository
	store      *storage.Store
	cache      AssetCache
	bcryptCost int
	log        zerolog.Logger
}

type ProfileInput struct {
	FirstName *string `validate:"omitnil,max=64"`
	LastName  *string `validate:"omitnil,max=64"`
	Email     *string `validate:"omitnil,email,max=128"`
}

type ChangePasswordInput struct {
	CurrentPassword string `validate:"required,max=128"`
	NewPassword     string `validate:"required,min=6,max=128"`
}

// DeleteUserResult summarises an administrative user removal.
type DeleteUserResult struct {
	UserID        uint
	AssetsDeleted int
	FilesFailed   []string
}

func NewUserService(userRepo *repository.UserRepository, assetRepo *repository.AssetRepository, store *storage.Store, cache AssetCache, bcryptCost int, log zerolog.Logger) *UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:   userRepo,
		assetRepo:  assetRepo,
		store:      store,
		cache:      cache,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input ProfileInput) (*model.User, error) {
	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		input.Email = &email
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil && *input.Email != user.Email {
		other, err := s.userRepo.GetByEmail(ctx, *input.Email)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != user.ID {
			return nil, ErrEmailExists
		}
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	s.invalidateOwned(ctx, user.ID)
	return user, nil
}

// invalidateOwned drops the cached assets that embed the user as owner.
func (s *UserService) invalidateOwned(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	ids, err := s.assetRepo.IDsByOwner(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("list owned assets for cache invalidate failed")
		return
	}
	invalidateAssets(ctx, s.cache, s.log, ids...)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uint, input ChangePasswordInput) error {
	if err := validateInput(input); err != nil {
		return err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}
	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	s.log.Info().Uint("user_id", userID).Msg("password changed")
	return nil
}

// DeleteUser removes the user's stored files, then the user row. Owned asset
// rows go with the user. Files that cannot be removed are reported and left
// for the orphan sweeper.
func (s *UserService) DeleteUser(ctx context.Context, username string) (*DeleteUserResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	assets, err := s.assetRepo.ListByOwnerID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	result := &DeleteUserResult{UserID: user.ID, AssetsDeleted: len(assets)}
	for _, asset := range assets {
		for _, name := range []string{asset.FilePath, asset.ThumbnailPath} {
			if name == "" {
				continue
			}
			if err := s.store.Remove(ctx, name); err != nil {
				s.log.Warn().Err(err).Str("file", name).Msg("remove user file failed")
				result.FilesFailed = append(result.FilesFailed, name)
			}
		}
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(assets))
	for _, asset := range assets {
		ids = append(ids, asset.ID)
	}
	invalidateAssets(ctx, s.cache, s.log, ids...)

	s.log.Info().Uint("user_id", user.ID).Int("assets", len(assets)).Msg("user deleted")
	return result, nil
}
