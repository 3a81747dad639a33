package auth

import (
	"context"
	"sync"
	"time"

	"github.com/example/todo-evolution/domain/apperr"
	domain "github.com/example/todo-evolution/domain/user"
)

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

var _ domain.Repository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; ok {
		return apperr.AlreadyExists("user %s already exists", user.ID)
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return apperr.AlreadyExists("user with email %s already exists", user.Email)
	}
	r.byID[user.ID] = cloneUser(user)
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperr.NotFound("user with email %s not found", email)
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}

	next := cloneUser(current)
	update.Apply(next)
	if next.Email != current.Email {
		if owner, taken := r.byEmail[next.Email]; taken && owner != id {
			return nil, apperr.AlreadyExists("user with email %s already exists", next.Email)
		}
		delete(r.byEmail, current.Email)
		r.byEmail[next.Email] = id
	}
	next.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	r.byID[id] = next
	return cloneUser(next), nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.FullName != nil {
		name := *u.FullName
		c.FullName = &name
	}
	return &c
}
