// Package memory holds process-local repositories used by tests and by
// STORE_DRIVER=memory for running the service without Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*entity.User
	byEmail map[string]int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]*entity.User),
		byEmail: make(map[string]int64),
	}
}

// Create enforces email uniqueness under the write lock so that two racing
// registrations for the same email cannot both succeed.
func (r *UserRepository) Create(_ context.Context, fullname, email, passwordHash string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, repository.ErrDuplicateEmail
	}
	r.nextID++
	now := time.Now().UTC()
	u := &entity.User{
		ID:        r.nextID,
		Fullname:  fullname,
		Email:     email,
		Password:  passwordHash,
		Role:      entity.RoleMember,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID

	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

// Count reports how many users are stored.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

var _ repository.UserRepository = (*UserRepository)(nil)
