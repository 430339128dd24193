package post

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/post-api/internal/config"
	domain "github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
	"github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/database/entities"
)

// Repository handles post persistence.
type Repository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewRepository(db *gorm.DB, cfg *config.Config) *Repository {
	return &Repository{db: db, timeout: cfg.DBQueryTimeout}
}

func (r *Repository) Create(ctx context.Context, post *domain.Post) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entity, err := toEntity(post)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode media ids", err, "4b7e1c08-d2a5-4f93-86c1-e9035a7db2f4")
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create post", err, "91d3a7f6-0c5e-4b28-a4f1-6e82b0c9d537")
	}
	post.CreatedAt = entity.CreatedAt
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var entity entities.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"post not found", err, "e5c0b3a9-46d1-4f7e-9b28-1a7d6f4c0e83")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find post", err, "37f9d2c4-8a16-4e0b-b5c3-d4e8a1f70b96")
	}
	post, err := fromEntity(entity)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to decode media ids", err, "a0e46f1b-9d73-42c5-8e6a-3b5f0c92d7e1")
	}
	return &post, nil
}

// List returns one page ordered newest first and the total row count.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]domain.Post, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var total int64
	if err := r.db.WithContext(ctx).Model(&entities.Post{}).Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to count posts", err, "c2b81e5d-7f04-4a39-96d2-08e3f5a1b6c7")
	}

	var rows []entities.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list posts", err, "6f1a4d87-b3e2-4c05-a9d6-5e0c7b28f413")
	}

	posts := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		post, err := fromEntity(row)
		if err != nil {
			return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
				"failed to decode media ids", err, "a0e46f1b-9d73-42c5-8e6a-3b5f0c92d7e1")
		}
		posts = append(posts, post)
	}
	return posts, total, nil
}

// DeleteOwned deletes the post only when userID owns it.
func (r *Repository) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&entities.Post{})
	if result.Error != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to delete post", result.Error, "d84b2f60-1e97-4a3c-b7f5-92c6e0a4d318")
	}
	return result.RowsAffected == 1, nil
}

func toEntity(post *domain.Post) (entities.Post, error) {
	ids := post.MediaIDs
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return entities.Post{}, err
	}
	return entities.Post{
		ID:        post.ID,
		UserID:    post.UserID,
		Content:   post.Content,
		MediaIDs:  datatypes.JSON(raw),
		CreatedAt: post.CreatedAt,
	}, nil
}

func fromEntity(entity entities.Post) (domain.Post, error) {
	ids := []string{}
	if len(entity.MediaIDs) > 0 {
		if err := json.Unmarshal(entity.MediaIDs, &ids); err != nil {
			return domain.Post{}, err
		}
	}
	return domain.Post{
		ID:        entity.ID,
		UserID:    entity.UserID,
		Content:   entity.Content,
		MediaIDs:  ids,
		CreatedAt: entity.CreatedAt,
	}, nil
}
