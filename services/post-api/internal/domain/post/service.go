package post

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/murmurhq/murmur-server/pkg/cache"
	"github.com/murmurhq/murmur-server/pkg/eventbus"
	"github.com/murmurhq/murmur-server/pkg/idgen"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	"github.com/murmurhq/murmur-server/services/post-api/internal/config"
	"github.com/murmurhq/murmur-server/services/post-api/internal/infrastructure/metrics"
)

// Repository persists posts. FindByID returns a NOT_FOUND platform error when
// the post does not exist.
type Repository interface {
	Create(ctx context.Context, post *Post) error
	FindByID(ctx context.Context, id string) (*Post, error)
	List(ctx context.Context, offset, limit int) ([]Post, int64, error)
	DeleteOwned(ctx context.Context, id, userID string) (bool, error)
}

// Cache is the read-through store. Get returns cache.ErrMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, evt eventbus.Event) error
}

// Service implements post creation, cached reads and deletion.
type Service struct {
	repo      Repository
	cache     Cache
	publisher Publisher
	ttl       time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(cfg *config.Config, repo Repository, cache Cache, publisher Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		ttl:       cfg.CacheTTL,
		log:       log.With().Str("component", "post-service").Logger(),
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Post, error) {
	if in.UserID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"Authentication required! Please login to continue", nil, "5d1f0a3e-8b27-4c96-a4e1-0f73c9b2d815")
	}
	if msg := in.Validate(); msg != "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			msg, nil, "a8c2e6f1-3b94-47d0-9e5a-6d10b7f4c283")
	}

	mediaIDs := make([]string, 0, len(in.MediaIDs))
	for _, id := range in.MediaIDs {
		mediaIDs = append(mediaIDs, strings.ToLower(strings.TrimSpace(id)))
	}
	post := &Post{
		ID:        idgen.New(idgen.PrefixPost),
		UserID:    in.UserID,
		Content:   strings.TrimSpace(in.Content),
		MediaIDs:  mediaIDs,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create post")
	}

	s.invalidateLists(ctx)
	s.log.Info().Str("post_id", post.ID).Str("user_id", post.UserID).Int("media_count", len(mediaIDs)).Msg("post created")
	return post, nil
}

// Get reads through item:<id>. Cache failures degrade to the store.
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	key := itemKey(id)
	if cached, ok := lookup[Post](ctx, s, "item", key); ok {
		return cached, nil
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
				"Post not found", err, "0e6b4d92-71fa-4c38-b5d7-2a9f8e13c604")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load post")
	}

	s.store(ctx, key, post)
	return post, nil
}

// List reads through list:<page>:<size>.
func (s *Service) List(ctx context.Context, paging Paging) (*Page, error) {
	paging = ParsePaging(paging.Page, paging.Size)
	key := listKey(paging)

	if cached, ok := lookup[Page](ctx, s, "list", key); ok {
		return cached, nil
	}

	posts, total, err := s.repo.List(ctx, paging.Offset(), paging.Size)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list posts")
	}
	if posts == nil {
		posts = []Post{}
	}
	page := &Page{
		Posts:       posts,
		CurrentPage: paging.Page,
		TotalPages:  TotalPages(total, paging.Size),
		TotalPosts:  total,
	}

	s.store(ctx, key, page)
	return page, nil
}

// Delete removes a post owned by requesterID, invalidates the cache and
// publishes post.deleted. A failed publish does not undo the delete.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
				"Post not found", err, "0e6b4d92-71fa-4c38-b5d7-2a9f8e13c604")
		}
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load post")
	}
	if post.UserID != requesterID {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"You are not allowed to delete this post", nil, "c7a3f519-2e08-4d6b-8f94-b15e0d27a6c3")
	}

	deleted, err := s.repo.DeleteOwned(ctx, id, requesterID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete post")
	}
	if !deleted {
		// Lost a race with a concurrent delete.
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"Post not found", nil, "0e6b4d92-71fa-4c38-b5d7-2a9f8e13c604")
	}

	if err := s.cache.Delete(ctx, itemKey(id)); err != nil {
		metrics.RecordInvalidationFailure()
		s.log.Warn().Err(err).Str("post_id", id).Msg("failed to invalidate cached post")
	}
	s.invalidateLists(ctx)

	mediaIDs := post.MediaIDs
	if mediaIDs == nil {
		mediaIDs = []string{}
	}
	evt := &eventbus.PostDeleted{PostID: id, UserID: requesterID, MediaIDs: mediaIDs}
	if err := s.publisher.Publish(ctx, eventbus.TopicPostDeleted, evt); err != nil {
		metrics.RecordPublishFailure(eventbus.TopicPostDeleted)
		s.log.Error().Err(err).Str("post_id", id).Strs("media_ids", mediaIDs).Msg("failed to publish post.deleted")
		return nil
	}

	s.log.Info().Str("post_id", id).Str("user_id", requesterID).Int("media_count", len(mediaIDs)).Msg("post deleted")
	return nil
}

// lookup decodes key into a T. Misses, backend errors and corrupt values all
// report false so the caller falls back to the store.
func lookup[T any](ctx context.Context, s *Service, kind, key string) (*T, bool) {
	cached, err := cache.GetJSON[T](ctx, s.cache, key)
	switch {
	case err == nil:
		metrics.RecordCacheLookup(kind, "hit")
		return cached, true
	case errors.Is(err, cache.ErrMiss):
		metrics.RecordCacheLookup(kind, "miss")
	case errors.Is(err, cache.ErrUndecodable):
		metrics.RecordCacheLookup(kind, "error")
		s.log.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
	default:
		metrics.RecordCacheLookup(kind, "error")
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to store")
	}
	return nil, false
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to populate cache")
	}
}

func (s *Service) invalidateLists(ctx context.Context) {
	if _, err := s.cache.DeletePattern(ctx, listPattern); err != nil {
		metrics.RecordInvalidationFailure()
		s.log.Warn().Err(err).Msg("failed to invalidate cached listings")
	}
}
