package refreshtoken

import (
	"context"
	"sync"
	"time"

	domain "github.com/murmurhq/murmur-server/services/identity-api/internal/domain/credential"
)

// InMemoryRepository is a thread-safe token store for tests and local runs.
// Its delete is atomic under the mutex, matching the database's conditional delete.
type InMemoryRepository struct {
	mu     sync.Mutex
	byHash map[string]domain.RotationToken
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byHash: make(map[string]domain.RotationToken)}
}

func (r *InMemoryRepository) Create(ctx context.Context, token *domain.RotationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[token.TokenHash] = *token
	return nil
}

func (r *InMemoryRepository) FindByHash(ctx context.Context, hash string) (*domain.RotationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.byHash[hash]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (r *InMemoryRepository) DeleteByHash(ctx context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[hash]; !ok {
		return false, nil
	}
	delete(r.byHash, hash)
	return true, nil
}

func (r *InMemoryRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, token := range r.byHash {
		if !token.ExpiresAt.After(before) {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored tokens.
func (r *InMemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash)
}
