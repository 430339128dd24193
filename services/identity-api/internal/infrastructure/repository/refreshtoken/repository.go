package refreshtoken

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
	domain "github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/database/entities"
)

// Repository persists rotation token hashes.
type Repository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRepository(db *gorm.DB, cfg *config.Config) *Repository {
	return &Repository{db: db, timeout: cfg.DBQueryTimeout}
}

func (r *Repository) Create(ctx context.Context, token *domain.RotationToken) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entity := entities.RefreshToken{
		ID:        token.ID,
		UserID:    token.UserID,
		TokenHash: token.TokenHash,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to store refresh token", err, "27e0c9b4-5a3f-4d81-8b6e-f1a4d3097c25")
	}
	return nil
}

func (r *Repository) FindByHash(ctx context.Context, hash string) (*domain.RotationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var entity entities.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find refresh token", err, "a95f3e16-c0d7-4b28-9e41-6d8b2a07f3c1")
	}
	return &domain.RotationToken{
		ID:        entity.ID,
		UserID:    entity.UserID,
		TokenHash: entity.TokenHash,
		ExpiresAt: entity.ExpiresAt,
		CreatedAt: entity.CreatedAt,
	}, nil
}

// DeleteByHash issues a single conditional DELETE; the database decides which of
// several concurrent callers removes the row.
func (r *Repository) DeleteByHash(ctx context.Context, hash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).Where("token_hash = ?", hash).Delete(&entities.RefreshToken{})
	if result.Error != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to delete refresh token", result.Error, "4b7c2e90-d816-4f5a-a3b9-0e6c5d1f8a72")
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).Where("expires_at <= ?", before).Delete(&entities.RefreshToken{})
	if result.Error != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to purge refresh tokens", result.Error, "e0d4a7b2-91c3-4e68-b5f0-2a9c3d7e1b84")
	}
	return result.RowsAffected, nil
}
