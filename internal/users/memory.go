package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/domperidog/docshare/internal/models"
	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory identity store for tests and for
// running without MongoDB.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: map[string]*models.User{}}
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Favorites = append([]string{}, u.Favorites...)
	return &cp
}

func (m *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[username]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (m *MemoryUserRepository) Insert(ctx context.Context, u *models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.Username]; exists {
		return "", ErrDuplicateUsername
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.Favorites == nil {
		u.Favorites = []string{}
	}
	m.users[u.Username] = cloneUser(u)
	return u.ID, nil
}

func (m *MemoryUserRepository) Delete(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, username)
	return nil
}

func (m *MemoryUserRepository) UpdateFavorites(ctx context.Context, username string, op FavoriteOp, documentID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	switch op {
	case FavoriteAdd:
		if !u.HasFavorite(documentID) {
			u.Favorites = append(u.Favorites, documentID)
		}
	case FavoriteRemove:
		u.Favorites = without(u.Favorites, documentID)
	}
	return cloneUser(u), nil
}

func (m *MemoryUserRepository) ToggleFavorite(ctx context.Context, username, documentID string) (*models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, false, ErrUserNotFound
	}
	if u.HasFavorite(documentID) {
		u.Favorites = without(u.Favorites, documentID)
		return cloneUser(u), false, nil
	}
	u.Favorites = append(u.Favorites, documentID)
	return cloneUser(u), true, nil
}

func (m *MemoryUserRepository) RemoveFavoriteEverywhere(ctx context.Context, documentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.HasFavorite(documentID) {
			u.Favorites = without(u.Favorites, documentID)
			n++
		}
	}
	return n, nil
}

// Usernames lists all usernames in sorted order.
func (m *MemoryUserRepository) Usernames(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.users))
	for name := range m.users {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func without(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
