package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/storefront-gateway/internal/domain"
)

type userRecord struct {
	user domain.User
}

// UserRepository implements domain.UserRepository in memory
type UserRepository struct {
	store *Store
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := r.store.userByEmail[email]; taken {
		return fmt.Errorf("email %s: %w", email, domain.ErrConflict)
	}
	if _, taken := r.store.users[user.ID.String()]; taken {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrConflict)
	}

	r.store.users[user.ID.String()] = &userRecord{user: *user}
	r.store.userByEmail[email] = user.ID.String()
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rec, ok := r.store.users[id.String()]
	if !ok {
		return nil, nil
	}
	return copyUser(&rec.user), nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.userByEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return copyUser(&r.store.users[id].user), nil
}

// UpdateLastLogin updates the user's last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.users[id.String()]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	rec.user.LastLogin = &at
	rec.user.UpdatedAt = at
	return nil
}

// Delete removes a user. Sessions of a deleted user stop resolving.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.users[id.String()]
	if !ok {
		return nil
	}
	delete(r.store.userByEmail, strings.ToLower(rec.user.Email))
	delete(r.store.users, id.String())
	return nil
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}
