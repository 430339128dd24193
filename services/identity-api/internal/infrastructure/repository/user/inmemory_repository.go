package user

import (
	"context"
	"errors"
	"sync"

	pkgcredential "github.com/murmurhq/murmur-server/pkg/credential"
	"github.com/murmurhq/murmur-server/pkg/platformerrors"
	domain "github.com/murmurhq/murmur-server/services/identity-api/internal/domain/identity"
)

// InMemoryRepository is a thread-safe repository for tests and local runs.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]domain.User)}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				"user already exists", errors.New("duplicate key"), "3e8b1d0f-7c42-4a95-b6d3-e02f9a18c5b7")
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *InMemoryRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) ResolveIdentity(ctx context.Context, userID string) (pkgcredential.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return pkgcredential.Identity{}, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"user not found", nil, "6a1d9f3c-e2b7-4805-93c4-0f8e5b27d1a6")
	}
	return pkgcredential.Identity{UserID: u.ID, Username: u.Username}, nil
}
