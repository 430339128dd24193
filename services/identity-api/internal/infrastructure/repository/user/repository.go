package user

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	pkgcredential "github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/config"
	domain "github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"
	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/database/entities"
)

// Repository handles user persistence.
type Repository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRepository(db *gorm.DB, cfg *config.Config) *Repository {
	return &Repository{db: db, timeout: cfg.DBQueryTimeout}
}

func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entity := entities.User{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				"user already exists", err, "3e8b1d0f-7c42-4a95-b6d3-e02f9a18c5b7")
		}
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create user", err, "f47a2c91-08d5-4e3b-9a6c-15b7e0d83f24")
	}
	user.CreatedAt = entity.CreatedAt
	return nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var entity entities.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find user by email", err, "8c05e7b3-94a1-4f26-b0d8-c3e61f72a59d")
	}
	user := mapEntity(entity)
	return &user, nil
}

func (r *Repository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to check user existence", err, "b2f6a804-3d1e-4c97-85a0-7e9d4c16b3f2")
	}
	return count > 0, nil
}

// ResolveIdentity loads the credential subject for userID.
func (r *Repository) ResolveIdentity(ctx context.Context, userID string) (pkgcredential.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var entity entities.User
	err := r.db.WithContext(ctx).Select("id", "username").Where("id = ?", userID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgcredential.Identity{}, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"user not found", err, "6a1d9f3c-e2b7-4805-93c4-0f8e5b27d1a6")
		}
		return pkgcredential.Identity{}, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to load user", err, "d3c7e5a1-6f08-4b92-a1e4-59b0c2f87d36")
	}
	return pkgcredential.Identity{UserID: entity.ID, Username: entity.Username}, nil
}

func mapEntity(entity entities.User) domain.User {
	return domain.User{
		ID:           entity.ID,
		Username:     entity.Username,
		Email:        entity.Email,
		PasswordHash: entity.PasswordHash,
		CreatedAt:    entity.CreatedAt,
	}
}
