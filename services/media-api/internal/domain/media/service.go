package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/pkg/idgen"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/media-api/internal/config"
	"github.com/murmurhq/murmur-server/services/media-api/internal/infrastructure/metrics"
)

// Repository defines persistence operations needed by the service.
// FindByID returns nil, nil when the record does not exist.
type Repository interface {
	Create(ctx context.Context, obj *MediaObject) error
	FindByID(ctx context.Context, id string) (*MediaObject, error)
	List(ctx context.Context) ([]MediaObject, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Storage defines blob storage operations. Delete treats a missing object as success.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Locker serializes work on a name across replicas.
type Locker interface {
	WithLock(ctx context.Context, name string, ttl time.Duration, fn func() error) error
}

// Service orchestrates media uploads and post.deleted cascades.
type Service struct {
	cfg     *config.Config
	repo    Repository
	storage Storage
	locker  Locker
	log     zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, storage Storage, locker Locker, log zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		storage: storage,
		locker:  locker,
		log:     log.With().Str("component", "media-service").Logger(),
	}
}

// Upload detects the content type, stores the blob and persists its record.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*MediaObject, error) {
	size := int64(len(in.Data))
	if size == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"No file found in request. Please add a file and try again!", nil, "6b0e3f91-c2d7-4a58-9e14-73fa0d85b2c6")
	}
	if size > s.cfg.MaxMediaBytes {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypePayloadTooLarge,
			fmt.Sprintf("File exceeds the maximum size of %d bytes", s.cfg.MaxMediaBytes), nil, "d3a95c17-6e40-4b82-a1f9-0c7e2b64d58a")
	}

	detected := mimetype.Detect(in.Data)
	mimeType := detected.String()
	if !s.allowed(mimeType) {
		metrics.RecordUpload(mimeType, "rejected", size)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"Unsupported media type "+mimeType, nil, "f81c4a0e-97b3-4d25-8e6c-2a1d5b90f734")
	}

	id := idgen.New(idgen.PrefixMedia)
	key := fmt.Sprintf("uploads/%s%s", id, detected.Extension())

	if err := s.upload(ctx, key, in.Data, mimeType); err != nil {
		metrics.RecordUpload(mimeType, "error", size)
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"Failed to store media", err, "2c7f08d4-b159-4e6a-93c0-e58a1d4f7b26")
	}

	obj := &MediaObject{
		ID:           id,
		PublicID:     key,
		OriginalName: in.OriginalName,
		MimeType:     mimeType,
		Bytes:        size,
		URL:          s.storage.URL(key),
		UserID:       in.UserID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, obj); err != nil {
		metrics.RecordUpload(mimeType, "error", size)
		if delErr := s.deleteBlob(ctx, key); delErr != nil {
			s.log.Error().Err(delErr).Str("public_id", key).Msg("failed to remove orphaned blob")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to persist media")
	}

	metrics.RecordUpload(mimeType, "success", size)
	s.log.Info().
		Str("media_id", obj.ID).
		Str("user_id", obj.UserID).
		Str("mime", mimeType).
		Int64("bytes", size).
		Msg("media uploaded")
	return obj, nil
}

// List returns every media record.
func (s *Service) List(ctx context.Context) ([]MediaObject, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list media")
	}
	if items == nil {
		items = []MediaObject{}
	}
	return items, nil
}

// Cascade deletes the media a deleted post referenced. Each id is handled on
// its own: a failure is logged and counted and the rest still run. Only media
// owned by the post's author are removed. Running the same event twice is a no-op.
func (s *Service) Cascade(ctx context.Context, evt *eventbus.PostDeleted) CascadeResult {
	start := time.Now()
	log := s.log.With().Str("post_id", evt.PostID).Str("event_id", evt.EventID).Logger()

	var result CascadeResult
	run := func() error {
		result = s.cascade(ctx, log, evt)
		return nil
	}

	lockName := "cascade:post:" + evt.PostID
	if err := s.locker.WithLock(ctx, lockName, s.cfg.CascadeLockTTL, run); err != nil {
		// The cascade is idempotent, so an unavailable lock only costs duplicate work.
		log.Warn().Err(err).Msg("cascade lock unavailable, running unlocked")
		_ = run()
	}

	metrics.RecordCascade(result.Deleted, result.Missing, result.Failed, result.Skipped, time.Since(start).Seconds())
	log.Info().
		Int("deleted", result.Deleted).
		Int("missing", result.Missing).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("processed media cascade for deleted post")
	return result
}

func (s *Service) cascade(ctx context.Context, log zerolog.Logger, evt *eventbus.PostDeleted) CascadeResult {
	var result CascadeResult

	ids := slices.Clone(evt.MediaIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			result.Failed++
			continue
		}

		obj, err := s.repo.FindByID(ctx, id)
		if err != nil {
			result.Failed++
			log.Error().Err(err).Str("media_id", id).Msg("failed to look up media")
			continue
		}
		if obj == nil {
			result.Missing++
			continue
		}
		if obj.UserID != evt.UserID {
			result.Skipped++
			log.Warn().Str("media_id", id).Str("owner_id", obj.UserID).Str("user_id", evt.UserID).Msg("skipping media not owned by post author")
			continue
		}

		if err := s.deleteBlob(ctx, obj.PublicID); err != nil {
			result.Failed++
			log.Error().Err(err).Str("media_id", id).Str("public_id", obj.PublicID).Msg("failed to delete blob")
			continue
		}
		deleted, err := s.repo.Delete(ctx, id)
		if err != nil {
			result.Failed++
			log.Error().Err(err).Str("media_id", id).Msg("failed to delete media record")
			continue
		}
		if !deleted {
			result.Missing++
			continue
		}

		result.Deleted++
		log.Info().Str("media_id", id).Msg("deleted media for deleted post")
	}
	return result
}

func (s *Service) allowed(mimeType string) bool {
	if len(s.cfg.AllowedMIMEPrefixes) == 0 {
		return true
	}
	for _, prefix := range s.cfg.AllowedMIMEPrefixes {
		if prefix = strings.TrimSpace(prefix); prefix != "" && strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

func (s *Service) upload(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()

	start := time.Now()
	err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	metrics.RecordStorageOperation("upload", status(err), time.Since(start).Seconds())
	return err
}

func (s *Service) deleteBlob(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()

	start := time.Now()
	err := s.storage.Delete(ctx, key)
	metrics.RecordStorageOperation("delete", status(err), time.Since(start).Seconds())
	return err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
