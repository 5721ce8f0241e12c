// Package memory is an in-process store with the same uniqueness rules as
// the database backends. It backs the memory driver and tests.
package memory

import (
	"context"
	"sync"
)

// Store holds users and shop connections behind one lock
type Store struct {
	mu sync.RWMutex

	users       map[string]*userRecord
	userByEmail map[string]string

	shops        map[string]*shopRecord
	shopByDomain map[string]string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:        make(map[string]*userRecord),
		userByEmail:  make(map[string]string),
		shops:        make(map[string]*shopRecord),
		shopByDomain: make(map[string]string),
	}
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Users returns a UserRepository over the store
func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

// Shops returns a ShopRepository over the store
func (s *Store) Shops() *ShopRepository {
	return &ShopRepository{store: s}
}
