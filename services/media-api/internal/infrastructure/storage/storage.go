package storage

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
)

// Backend is implemented by every blob store.
type Backend interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
	Health(ctx context.Context) error
}

// New returns the backend selected by MEDIA_STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Backend, error) {
	if cfg.IsLocalStorage() {
		return NewLocalStorage(cfg, log)
	}
	return NewS3Storage(ctx, cfg, log)
}
