package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rmorel/userhub/internal/domain/user"
)

// UsersRepo is an in-memory account store used by tests and local dev. It
// mirrors the postgres guarantees that matter to the core: case-insensitive
// email uniqueness and atomic per-record updates.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.findByEmail(email)

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.findByEmail(u.Email); ok {
		return user.User{}, user.ErrEmailTaken
	}

	now := time.Now().UTC()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now

	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[u.ID]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if other, taken := r.findByEmail(u.Email); taken && other.ID != u.ID {
		return user.User{}, user.ErrEmailTaken
	}

	current.FullName = u.FullName
	current.Email = strings.ToLower(u.Email)
	current.UpdatedAt = time.Now().UTC()

	r.items[current.ID] = current

	return current, nil
}

func (r *UsersRepo) UpdateStatus(ctx context.Context, id, status string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	current.Status = status
	current.UpdatedAt = time.Now().UTC()
	r.items[id] = current

	return current, nil
}

func (r *UsersRepo) UpdateRole(ctx context.Context, id, role string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	current.Role = role
	current.UpdatedAt = time.Now().UTC()
	r.items[id] = current

	return current, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]

	if !ok {
		return user.ErrNotFound
	}

	current.PasswordHash = passwordHash
	current.UpdatedAt = time.Now().UTC()
	r.items[id] = current

	return nil
}

func (r *UsersRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]

	if !ok {
		return user.ErrNotFound
	}

	current.LastLogin = &at
	r.items[id] = current

	return nil
}

func (r *UsersRepo) List(ctx context.Context, offset, limit int) ([]user.User, error) {
	r.mu.RLock()

	all := make([]user.User, 0, len(r.items))

	for _, u := range r.items {
		all = append(all, u)
	}

	r.mu.RUnlock()

	// newest first, id as tiebreaker so pages are stable
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []user.User{}, nil
	}

	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}

	return all[offset:end], nil
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items), nil
}

func (r *UsersRepo) findByEmail(email string) (user.User, bool) {
	needle := strings.ToLower(email)

	for _, u := range r.items {
		if strings.ToLower(u.Email) == needle {
			return u, true
		}
	}

	return user.User{}, false
}
