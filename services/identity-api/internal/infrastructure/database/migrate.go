package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/murmurhq/murmur-server/services/identity-api/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(&entities.User{}, &entities.RefreshToken{}); err != nil {
		return err
	}
	log.Info().Msg("applied identity migrations")
	return nil
}
