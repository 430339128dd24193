package media

import (
	"context"
	"slices"
	"sync"

	domain "github.com/murmurhq/murmur-server/services/media-api/internal/domain/media"
)

// InMemoryRepository is a thread-safe media store for tests and local runs.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]domain.MediaObject
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]domain.MediaObject)}
}

func (r *InMemoryRepository) Create(ctx context.Context, obj *domain.MediaObject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[obj.ID] = *obj
	return nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (*domain.MediaObject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &obj, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]domain.MediaObject, error) {
	r.mu.RLock()
	items := make([]domain.MediaObject, 0, len(r.items))
	for _, obj := range r.items {
		items = append(items, obj)
	}
	r.mu.RUnlock()

	slices.SortFunc(items, func(a, b domain.MediaObject) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return items, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}
