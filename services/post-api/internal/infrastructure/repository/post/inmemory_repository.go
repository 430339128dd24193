package post

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	domain "github.com/murmurhq/murmur-server/services/post-api/internal/domain/post"
)

// InMemoryRepository is a thread-safe post store for tests and local runs.
type InMemoryRepository struct {
	mu    sync.RWMutex
	posts map[string]domain.Post
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{posts: make(map[string]domain.Post)}
}

func (r *InMemoryRepository) Create(ctx context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *post
	stored.MediaIDs = slices.Clone(post.MediaIDs)
	r.posts[post.ID] = stored
	return nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"post not found", nil, "e5c0b3a9-46d1-4f7e-9b28-1a7d6f4c0e83")
	}
	post.MediaIDs = slices.Clone(post.MediaIDs)
	return &post, nil
}

func (r *InMemoryRepository) List(ctx context.Context, offset, limit int) ([]domain.Post, int64, error) {
	r.mu.RLock()
	all := make([]domain.Post, 0, len(r.posts))
	for _, post := range r.posts {
		all = append(all, post)
	}
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b domain.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	total := int64(len(all))
	if offset < 0 || limit <= 0 || offset >= len(all) {
		return []domain.Post{}, total, nil
	}
	end := len(all)
	if limit < end-offset {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (r *InMemoryRepository) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.UserID != userID {
		return false, nil
	}
	delete(r.posts, id)
	return true, nil
}
