package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/animgate/pkg/domain"
)

// Store implements ports.ControllerStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Controller
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store, optionally seeded with controllers
// keyed by id.
func NewStore(seed map[string]*domain.Controller) *Store {
	s := &Store{data: make(map[string]*domain.Controller, len(seed))}
	for id, c := range seed {
		s.data[id] = c.Clone()
	}
	return s
}

// Save persists a copy of the controller.
func (s *Store) Save(ctx context.Context, id string, c *domain.Controller) error {
	copied := c.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = copied
	return nil
}

// Load returns a copy so the caller can't mutate the store by pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[id]
	if !ok {
		return nil, domain.ErrControllerNotFound
	}
	return c.Clone(), nil
}

// Delete removes the controller.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
