package media

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	domain "github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/database/entities"
)

// Repository handles media object persistence.
type Repository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRepository(db *gorm.DB, cfg *config.Config) *Repository {
	return &Repository{db: db, timeout: cfg.DBQueryTimeout}
}

func (r *Repository) Create(ctx context.Context, obj *domain.MediaObject) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entity := entities.MediaObject{
		ID:           obj.ID,
		PublicID:     obj.PublicID,
		OriginalName: obj.OriginalName,
		MimeType:     obj.MimeType,
		Bytes:        obj.Bytes,
		URL:          obj.URL,
		UserID:       obj.UserID,
		CreatedAt:    obj.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&entity).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create media object",
			err,
			"9b2e4f5a-6c7d-4e8f-9a0b-1c2d3e4f5a6b",
		)
	}
	obj.CreatedAt = entity.CreatedAt
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.MediaObject, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var entity entities.MediaObject
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to get media by id",
			err,
			"2d3e4f5a-6b7c-4d8e-9f0a-1b2c3d4e5f6a",
		)
	}
	obj := mapEntity(entity)
	return &obj, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.MediaObject, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []entities.MediaObject
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list media",
			err,
			"5e7a1c39-d084-4f62-b3a5-8c1f0e94d27b",
		)
	}
	items := make([]domain.MediaObject, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEntity(row))
	}
	return items, nil
}

// Delete removes the record and reports whether a row was deleted.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.MediaObject{})
	if result.Error != nil {
		return false, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete media object",
			result.Error,
			"1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f",
		)
	}
	return result.RowsAffected > 0, nil
}

func mapEntity(entity entities.MediaObject) domain.MediaObject {
	return domain.MediaObject{
		ID:           entity.ID,
		PublicID:     entity.PublicID,
		OriginalName: entity.OriginalName,
		MimeType:     entity.MimeType,
		Bytes:        entity.Bytes,
		URL:          entity.URL,
		UserID:       entity.UserID,
		CreatedAt:    entity.CreatedAt,
	}
}
